package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/galactic-tictactoe/internal/api/controller"
	"ctchen222/galactic-tictactoe/internal/api/service"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/config"
	"ctchen222/galactic-tictactoe/internal/db"
	"ctchen222/galactic-tictactoe/internal/hub"
	"ctchen222/galactic-tictactoe/internal/logger"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/room"
	"ctchen222/galactic-tictactoe/internal/server"
	"ctchen222/galactic-tictactoe/internal/telemetry"
	"ctchen222/galactic-tictactoe/internal/transport"
	"ctchen222/galactic-tictactoe/internal/transport/polling"
	"ctchen222/galactic-tictactoe/internal/transport/relay"

	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the config file; empty reads the environment only")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logger.Init(conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	if conf.Telemetry.Enabled {
		shutdown, err := telemetry.InitOtel(ctx, conf.Telemetry.Endpoint)
		if err != nil {
			slog.Error("failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("Error shutting down telemetry", "error", err)
			}
		}()
	}

	// Initialize Redis
	var rdb *redis.Client
	if conf.UseRedis() {
		var err error
		rdb, err = db.NewRedisClient(ctx, conf.Redis.Addr)
		if err != nil {
			slog.Error("failed to initialize redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	// Initialize SQLite DB
	sqlDB, err := db.Connect(ctx, conf.SQLitePath)
	if err != nil {
		slog.Error("failed to initialize sqlite db", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Create repositories
	var sessions repository.SessionRepository
	if rdb != nil {
		sessions = repository.NewSessionRepository(rdb, conf.SessionTTL)
	} else {
		sessions = repository.NewMemorySessionRepository(conf.SessionTTL, nil)
	}
	history := repository.NewHistoryRepository(sqlDB)

	var transports transport.Factory
	switch conf.Transport {
	case config.TransportRelay:
		transports = relay.NewFactory(rdb, sessions)
	default:
		transports = polling.NewFactory(sessions, conf.PollInterval)
	}

	metrics, err := room.NewMetrics()
	if err != nil {
		slog.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	// Create hub
	h := hub.NewHub(hub.Config{
		Selector:   bot.NewEngine(nil),
		Transports: transports,
		History:    history,
		Metrics:    metrics,
		AIDelay:    conf.AIDelay,
	})
	hubDone := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(hubDone)
	}()

	// Create services and controllers
	tokens := service.NewTokenIssuer(conf.JWTSecret, conf.SeatTTL)
	roomService := service.NewRoomService(h, history, tokens)
	roomController := controller.NewRoomController(roomService)

	// Create the Gin-based server
	srv := server.NewServer(roomService, roomController)

	httpServer := &http.Server{
		Addr:    conf.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", conf.HTTPAddr, "transport", conf.Transport)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-hubDone

	slog.Info("Server exiting")
}
