package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSendBuffer       = 256
	defaultMaxMessageLength = 4000
)

type RelayOptions struct {
	SendBuffer       int
	MaxMessageLength int
}

// RelayService is the real-time core: it owns the subscriber sets and call
// tracking for every room served by this process.
type RelayService struct {
	rooms    repository.RoomRepository
	members  repository.MembershipRepository
	messages repository.MessageRepository
	log      *slog.Logger
	opts     RelayOptions

	directory *Directory
	calls     *CallTracker
	lookups   singleflight.Group
	metrics   *relayMetrics
	now       func() time.Time
}

func NewRelayService(
	rooms repository.RoomRepository,
	members repository.MembershipRepository,
	messages repository.MessageRepository,
	log *slog.Logger,
	opts RelayOptions,
) *RelayService {
	if log == nil {
		log = slog.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = defaultMaxMessageLength
	}
	return &RelayService{
		rooms:     rooms,
		members:   members,
		messages:  messages,
		log:       log,
		opts:      opts,
		directory: NewDirectory(),
		calls:     NewCallTracker(),
		metrics:   newRelayMetrics(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Connect registers a new connection for an authenticated identity and
// queues the connected greeting.
func (s *RelayService) Connect(ctx context.Context, identity domain.Identity) *domain.Connection {
	conn := domain.NewConnection(identity, s.opts.SendBuffer)
	s.directory.Register(conn)
	s.metrics.connections.Add(ctx, 1)

	s.emit(conn, domain.EventConnected, domain.ConnectedPayload{
		ConnectionID: conn.ID,
		UserID:       identity.ID,
		UserName:     identity.Name,
	})

	s.log.Info("connection opened",
		slog.String("conn_id", conn.ID),
		slog.Uint64("user_id", uint64(identity.ID)),
		slog.String("user_name", identity.Name),
	)
	return conn
}

// Handle dispatches one decoded client event. The returned error, if any,
// is meant for the sending connection only.
func (s *RelayService) Handle(ctx context.Context, conn *domain.Connection, event domain.ClientEvent) error {
	conn.Touch()
	roomID := event.Room()

	switch e := event.(type) {
	case *domain.JoinRoom:
		return s.Join(ctx, conn, roomID)
	case *domain.LeaveRoom:
		s.Leave(conn, roomID)
		return nil
	case *domain.SendMessage:
		_, err := s.SendMessage(ctx, conn, roomID, e.Content)
		return err
	case *domain.Typing:
		return s.Typing(conn, roomID)
	case *domain.StopTyping:
		return s.StopTyping(conn, roomID)
	case *domain.MarkRead:
		return s.MarkRead(ctx, conn, roomID)
	case *domain.CallOffer, *domain.CallAnswer, *domain.ICECandidate, *domain.CallEnd, *domain.CallReject:
		return s.RelaySignal(ctx, conn, event)
	default:
		return newError(ErrProtocol, MsgUnknownEvent, nil)
	}
}

func (s *RelayService) Join(ctx context.Context, conn *domain.Connection, roomID uint) error {
	const op = "service.relay.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", conn.ID),
		slog.Uint64("room_id", uint64(roomID)),
		slog.Uint64("user_id", uint64(conn.Identity.ID)),
	)

	if err := s.authorize(ctx, roomID, conn.Identity.ID, MsgJoinFailed); err != nil {
		log.Warn("join rejected", sl.Err(err))
		return err
	}

	if !s.directory.Add(conn, roomID) {
		log.Debug("connection closed before join completed")
		return nil
	}

	s.emit(conn, domain.EventRoomJoined, domain.RoomJoinedPayload{RoomID: roomID})
	s.metrics.joins.Add(ctx, 1)
	log.Info("joined room", slog.Int("subscribers", s.directory.Count(roomID)))
	return nil
}

// Leave unsubscribes conn from the room. Leaving a room that was never
// joined is a no-op.
func (s *RelayService) Leave(conn *domain.Connection, roomID uint) {
	if s.directory.Remove(conn, roomID) {
		s.log.Info("left room",
			slog.String("conn_id", conn.ID),
			slog.Uint64("room_id", uint64(roomID)),
		)
	}
}

// Disconnect removes conn from every room and ends any unresolved call in a
// room it was subscribed to or was a party of. It is safe to call more than once.
func (s *RelayService) Disconnect(ctx context.Context, conn *domain.Connection) {
	const op = "service.relay.disconnect"
	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", conn.ID),
		slog.Uint64("user_id", uint64(conn.Identity.ID)),
	)

	rooms, ok := s.directory.Drop(conn)
	if !ok {
		return
	}
	s.metrics.connections.Add(ctx, -1)

	for _, roomID := range s.calls.Abandon(conn.ID, rooms) {
		delivered := s.broadcast(roomID, domain.EventCallEnd, nil, conn.ID)
		s.metrics.callEnds.Add(ctx, 1)
		log.Info("call ended by disconnect",
			slog.Uint64("room_id", uint64(roomID)),
			slog.Int("delivered", delivered),
		)
	}

	now := s.now()
	log.Info("connection closed",
		slog.Int("rooms", len(rooms)),
		slog.Duration("lifetime", now.Sub(conn.ConnectedAt)),
		slog.Duration("idle", now.Sub(conn.LastSeen())),
	)
}

// SendMessage persists content and broadcasts the stored row to every
// subscriber of the room, the sender included. The sender must have joined
// the room.
func (s *RelayService) SendMessage(ctx context.Context, conn *domain.Connection, roomID uint, content string) (*domain.Message, error) {
	const op = "service.relay.send"
	log := s.log.With(
		slog.String("op", op),
		slog.String("conn_id", conn.ID),
		slog.Uint64("room_id", uint64(roomID)),
		slog.Uint64("user_id", uint64(conn.Identity.ID)),
	)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newError(ErrValidation, MsgEmptyContent, nil)
	}
	if utf8.RuneCountInString(content) > s.opts.MaxMessageLength {
		return nil, newError(ErrValidation, MsgContentTooLong, nil)
	}

	if err := s.authorize(ctx, roomID, conn.Identity.ID, MsgSendFailed); err != nil {
		log.Warn("send rejected", sl.Err(err))
		return nil, err
	}
	if !s.directory.IsJoined(conn.ID, roomID) {
		return nil, newError(ErrProtocol, MsgNotJoined, nil)
	}

	msg, err := s.messages.CreateWithSender(ctx, roomID, conn.Identity.ID, content)
	if err != nil {
		log.Error("failed to persist message", sl.Err(err))
		return nil, newError(ErrPersistence, MsgSendFailed, err)
	}

	delivered := s.broadcast(roomID, domain.EventNewMessage, msg, "")
	s.metrics.messages.Add(ctx, 1)
	log.Debug("message broadcast",
		slog.Uint64("message_id", uint64(msg.ID)),
		slog.Int("delivered", delivered),
	)
	return msg, nil
}

func (s *RelayService) Typing(conn *domain.Connection, roomID uint) error {
	return s.typing(conn, roomID, domain.EventUserTyping)
}

func (s *RelayService) StopTyping(conn *domain.Connection, roomID uint) error {
	return s.typing(conn, roomID, domain.EventUserStoppedTyping)
}

func (s *RelayService) typing(conn *domain.Connection, roomID uint, event domain.EventName) error {
	if !s.directory.IsJoined(conn.ID, roomID) {
		return newError(ErrProtocol, MsgNotJoined, nil)
	}
	s.broadcast(roomID, event, domain.TypingPayload{
		UserID:   conn.Identity.ID,
		UserName: conn.Identity.Name,
	}, conn.ID)
	return nil
}

// MarkRead moves the read watermark of the connection's user to now and
// tells the other subscribers about it.
func (s *RelayService) MarkRead(ctx context.Context, conn *domain.Connection, roomID uint) error {
	const op = "service.relay.mark_read"

	if !s.directory.IsJoined(conn.ID, roomID) {
		return newError(ErrProtocol, MsgNotJoined, nil)
	}

	if err := s.members.UpdateLastRead(ctx, roomID, conn.Identity.ID, s.now()); err != nil {
		s.log.Error("failed to update read watermark",
			slog.String("op", op),
			slog.Uint64("room_id", uint64(roomID)),
			slog.Uint64("user_id", uint64(conn.Identity.ID)),
			sl.Err(err),
		)
		return newError(ErrPersistence, MsgMarkReadFailed, err)
	}

	s.broadcast(roomID, domain.EventMessagesRead, domain.MessagesReadPayload{
		RoomID: roomID,
		UserID: conn.Identity.ID,
	}, conn.ID)
	return nil
}

// RelaySignal forwards a call signaling event to every other subscriber of
// the room, tagged with the sender's connection id.
func (s *RelayService) RelaySignal(ctx context.Context, conn *domain.Connection, event domain.ClientEvent) error {
	roomID := event.Room()
	if !s.directory.IsJoined(conn.ID, roomID) {
		return newError(ErrProtocol, MsgNotJoined, nil)
	}

	switch e := event.(type) {
	case *domain.CallOffer:
		s.calls.Offer(roomID, conn.ID, e.Caller, e.Video)
		delivered := s.broadcast(roomID, domain.EventCallOffer, domain.CallOfferPayload{
			Offer:  *e.Offer,
			Video:  e.Video,
			Caller: e.Caller,
			From:   conn.ID,
		}, conn.ID)
		if delivered > 0 {
			s.calls.Ringing(roomID, conn.ID)
		}
	case *domain.CallAnswer:
		s.calls.Answer(roomID, conn.ID, e.Caller)
		s.broadcast(roomID, domain.EventCallAnswer, domain.CallAnswerPayload{
			Answer: *e.Answer,
			Caller: e.Caller,
			From:   conn.ID,
		}, conn.ID)
	case *domain.ICECandidate:
		s.broadcast(roomID, domain.EventICECandidate, domain.ICECandidatePayload{
			Candidate: *e.Candidate,
			From:      conn.ID,
		}, conn.ID)
	case *domain.CallEnd:
		s.calls.Reset(roomID)
		s.broadcast(roomID, domain.EventCallEnd, nil, conn.ID)
	case *domain.CallReject:
		s.calls.Reset(roomID)
		s.broadcast(roomID, domain.EventCallReject, domain.CallRejectPayload{
			Caller: e.Caller,
			From:   conn.ID,
		}, conn.ID)
	default:
		return newError(ErrProtocol, MsgUnknownEvent, nil)
	}

	s.metrics.signal(ctx, string(event.Name()))
	s.log.Debug("signal relayed",
		slog.String("type", string(event.Name())),
		slog.String("conn_id", conn.ID),
		slog.Uint64("room_id", uint64(roomID)),
	)
	return nil
}

// EmitError sends err to conn as an error event.
func (s *RelayService) EmitError(ctx context.Context, conn *domain.Connection, err error) {
	s.metrics.failure(ctx, errorKind(err))
	s.emit(conn, domain.EventError, ClientMessage(err))
}

func (s *RelayService) Subscribers(roomID uint) int {
	return s.directory.Count(roomID)
}

func (s *RelayService) IsJoined(conn *domain.Connection, roomID uint) bool {
	return s.directory.IsJoined(conn.ID, roomID)
}

func (s *RelayService) CallPhase(roomID uint) domain.CallPhase {
	return s.calls.Phase(roomID)
}

// CloseAll closes every open connection. Their transports then run the
// regular disconnect path.
func (s *RelayService) CloseAll() {
	conns := s.directory.Connections()
	for _, conn := range conns {
		conn.Close()
	}
	s.log.Info("closed all connections", slog.Int("count", len(conns)))
}

// authorize checks that the room exists and, for a private room, that the
// user holds a membership row. failure is the message used for store errors.
func (s *RelayService) authorize(ctx context.Context, roomID, userID uint, failure string) error {
	room, err := s.room(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return newError(ErrValidation, MsgRoomNotFound, err)
		}
		return newError(ErrPersistence, failure, err)
	}
	if !room.IsPrivate() {
		return nil
	}

	if _, err := s.members.Get(ctx, roomID, userID); err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return newError(ErrAuthorization, MsgNotMember, err)
		}
		return newError(ErrPersistence, failure, err)
	}
	return nil
}

// room looks a room up once for all concurrent callers. The shared lookup is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func (s *RelayService) room(ctx context.Context, roomID uint) (*domain.Room, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.lookups.DoChan(strconv.FormatUint(uint64(roomID), 10), func() (any, error) {
		return s.rooms.GetByID(shared, roomID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Room), nil
	}
}

func (s *RelayService) broadcast(roomID uint, event domain.EventName, data any, exclude string) int {
	frame, err := domain.EncodeFrame(event, data)
	if err != nil {
		s.log.Error("failed to encode frame", slog.String("event", string(event)), sl.Err(err))
		return 0
	}
	return s.directory.Broadcast(roomID, frame, exclude)
}

func (s *RelayService) emit(conn *domain.Connection, event domain.EventName, data any) bool {
	frame, err := domain.EncodeFrame(event, data)
	if err != nil {
		s.log.Error("failed to encode frame", slog.String("event", string(event)), sl.Err(err))
		return false
	}
	if !conn.Enqueue(frame) {
		s.log.Warn("connection queue unavailable",
			slog.String("conn_id", conn.ID),
			slog.String("event", string(event)),
		)
		return false
	}
	return true
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrValidation), errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrUnknownEvent):
		return "validation"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "internal"
	}
}
