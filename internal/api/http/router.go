package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/chat_relay/internal/ratelimit"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/pion/webrtc/v3"
)

type RouterConfig struct {
	AllowedOrigins []string
	STUNServers    []string
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.Limiter
}

func SetupRouter(
	cfg RouterConfig,
	auth service.Authenticator,
	relayController *RelayController,
	roomController *RoomController,
	recordingController *RecordingController,
	log *slog.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		config.AllowOrigins = cfg.AllowedOrigins
		config.AllowCredentials = true
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	if cfg.Limiter != nil {
		api.Use(RateLimit(cfg.Limiter, log))
	}

	iceServers := rtcConfig(cfg.STUNServers)
	api.GET("/rtc-config", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	})

	if relayController != nil {
		api.GET("/socket", relayController.Connect)
	}

	authed := api.Group("", RequireAuth(auth))

	if roomController != nil {
		rooms := authed.Group("/rooms")
		rooms.POST("/:roomID/join", roomController.JoinRoom)
		rooms.PUT("/:roomID/members", roomController.AddMembers)
		authed.GET("/unread", roomController.Unread)
	}

	if recordingController != nil {
		authed.POST("/recordings", recordingController.Upload)
		authed.GET("/recordings", recordingController.List)
		api.GET("/recordings/file/:name", recordingController.File)
	}

	return router
}

func rtcConfig(stunServers []string) []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(stunServers))
	for _, url := range stunServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return servers
}
