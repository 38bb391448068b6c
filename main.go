package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DhavalSuthar-24/crease/config"
	_ "github.com/DhavalSuthar-24/crease/docs"
	"github.com/DhavalSuthar-24/crease/internal/broadcast"
	"github.com/DhavalSuthar-24/crease/internal/database"
	"github.com/DhavalSuthar-24/crease/internal/eventlog"
	"github.com/DhavalSuthar-24/crease/internal/interpreter"
	"github.com/DhavalSuthar-24/crease/internal/logging"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/scoring"
	"github.com/DhavalSuthar-24/crease/internal/team"
	"github.com/DhavalSuthar-24/crease/routes"
)

// @title Crease live scoring API
// @version 1.0
// @description Ball-by-ball cricket scoring with undo, spoken commands and live viewer streams.
// @host localhost:8088
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := config.Initialize(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	cfg := config.GetConfig()
	logging.Setup(cfg.App.Env, cfg.App.LogLevel, "crease")

	if err := database.RunMigrations(cfg.DSN()); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	slog.Info("Migrations applied")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vocab, err := interpreter.LoadVocabulary(cfg.Scoring.VocabularyPath)
	if err != nil {
		log.Fatalf("Failed to load vocabulary: %v", err)
	}
	slog.Info("Vocabulary loaded", "phrases", vocab.Len(), "path", cfg.Scoring.VocabularyPath)

	pending := interpreter.NewPendingStore(cfg.Scoring.PendingCommandTTL, time.Now)
	go pending.Run(ctx, max(cfg.Scoring.PendingCommandTTL/2, time.Second))

	svc := scoring.NewService(
		match.NewGormRepository(config.DB),
		eventlog.NewGormStore(config.DB),
		team.NewGormRoster(config.DB),
		interpreter.New(vocab),
		pending,
		scoring.Options{
			DefaultOvers:            cfg.Scoring.DefaultOvers,
			FreeHitOnNoBall:         cfg.Scoring.FreeHitOnNoBall,
			FreeHitOnBoundaryNoBall: cfg.Scoring.FreeHitOnBoundaryNoBall,
			QueueDepth:              cfg.Scoring.QueueDepth,
		},
	)
	defer svc.Close()

	hub := broadcast.NewHub(svc.StreamSnapshot, broadcast.Config{
		QueueSize:       cfg.Broadcast.QueueSize,
		ClientBuffer:    cfg.Broadcast.ClientBuffer,
		SnapshotTimeout: cfg.Broadcast.SnapshotTimeout,
	})
	svc.SetPublisher(hub)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		mirror := broadcast.NewRedisMirror(redisClient, cfg.Redis.StreamMaxLen, cfg.Redis.LatestTTL)
		hub.SetMirror(mirror)
		go mirror.Run(ctx)
		slog.Info("Mirroring deltas to Redis", "addr", cfg.Redis.Addr)
	}
	go hub.Run(ctx)

	r := routes.SetupRoutes(cfg, svc, broadcast.NewHandler(ctx, hub, cfg.App.AllowedOrigins))
	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down")

	// Stops the hub, viewer pumps, mirror and sweeper.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	slog.Info("Shutdown complete")
}
