package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
)

type SocketOptions struct {
	AllowedOrigins []string
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

// RelayController upgrades authenticated requests to websocket connections
// and pumps frames between the socket and the relay.
type RelayController struct {
	relay    service.RelayInteractor
	auth     service.Authenticator
	log      *slog.Logger
	opts     SocketOptions
	upgrader websocket.Upgrader
}

func NewRelayController(relay service.RelayInteractor, auth service.Authenticator, log *slog.Logger, opts SocketOptions) *RelayController {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 64 << 10
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = (opts.PongWait * 9) / 10
	}

	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origins[origin] = struct{}{}
	}

	return &RelayController{
		relay: relay,
		auth:  auth,
		log:   log,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

func (c *RelayController) Connect(ctx *gin.Context) {
	const op = "api.http.relay.connect"
	log := c.log.With(slog.String("op", op), slog.String("remote", ctx.ClientIP()))

	identity, err := c.auth.Authenticate(bearerToken(ctx.Request))
	if err != nil {
		log.Info("handshake rejected", sl.Err(err))
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}

	ws, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}

	reqCtx := ctx.Request.Context()
	conn := c.relay.Connect(reqCtx, identity)
	defer c.relay.Disconnect(context.WithoutCancel(reqCtx), conn)

	go c.writePump(ws, conn)
	c.readLoop(reqCtx, ws, conn)
}

// readLoop handles inbound frames one at a time so a sender's events are
// processed in the order they arrived.
func (c *RelayController) readLoop(ctx context.Context, ws *websocket.Conn, conn *domain.Connection) {
	log := c.log.With(slog.String("conn_id", conn.ID), slog.Uint64("user_id", uint64(conn.Identity.ID)))
	defer ws.Close()

	ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		messageType, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", sl.Err(err))
			} else {
				log.Debug("websocket closed", sl.Err(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := domain.DecodeClientEvent(raw)
		if err != nil {
			log.Debug("rejected frame", sl.Err(err))
			c.relay.EmitError(ctx, conn, err)
			continue
		}

		if err := c.relay.Handle(ctx, conn, event); err != nil {
			log.Debug("event failed", slog.String("event", string(event.Name())), sl.Err(err))
			c.relay.EmitError(ctx, conn, err)
		}
	}
}

func (c *RelayController) writePump(ws *websocket.Conn, conn *domain.Connection) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame := <-conn.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("failed to write frame", slog.String("conn_id", conn.ID), sl.Err(err))
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-conn.Done():
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteWait),
			)
			return
		}
	}
}
