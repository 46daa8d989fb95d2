package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/chat_relay/internal/api/http"
	"github.com/immxrtalbeast/chat_relay/internal/config"
	"github.com/immxrtalbeast/chat_relay/internal/ratelimit"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/immxrtalbeast/chat_relay/internal/repository/model"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/immxrtalbeast/chat_relay/internal/telemetry"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
	"github.com/immxrtalbeast/chat_relay/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Error("failed to init telemetry", sl.Err(err))
		os.Exit(1)
	}

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", sl.Err(err))
		os.Exit(1)
	}

	roomRepo := repository.NewGormRoomRepository(db)
	memberRepo := repository.NewGormMembershipRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	recordingRepo := repository.NewGormRecordingRepository(db)

	authService := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	relayService := service.NewRelayService(roomRepo, memberRepo, messageRepo, log, service.RelayOptions{
		SendBuffer:       cfg.Relay.SendBuffer,
		MaxMessageLength: cfg.Relay.MaxMessageLength,
	})
	roomService := service.NewRoomService(roomRepo, memberRepo, log)
	recordingService := service.NewRecordingService(recordingRepo, cfg.Recordings.Dir, log)

	relayController := httpapi.NewRelayController(relayService, authService, log, httpapi.SocketOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		WriteWait:      cfg.Relay.WriteWait,
		PongWait:       cfg.Relay.PongWait,
		PingPeriod:     cfg.Relay.PingPeriod,
	})
	roomController := httpapi.NewRoomController(roomService)
	recordingController := httpapi.NewRecordingController(recordingService)

	routerCfg := httpapi.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		STUNServers:    cfg.WebRTC.STUNServers,
	}
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		routerCfg.Limiter = ratelimit.NewLimiter(rdb, "chat_relay:rl:", cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		log.Info("rate limiting enabled", slog.String("redis", cfg.Redis.Address))
	}

	router := httpapi.SetupRouter(routerCfg, authService, relayController, roomController, recordingController, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown.
		relayService.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", sl.Err(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("http server stopped", sl.Err(err))
		os.Exit(1)
	}
	log.Info("application stopped")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(model.All()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
