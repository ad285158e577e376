package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/config"
	"github.com/stemsi/practice-backend/internal/database"
	"github.com/stemsi/practice-backend/internal/events"
	"github.com/stemsi/practice-backend/internal/handler"
	"github.com/stemsi/practice-backend/internal/identity"
	"github.com/stemsi/practice-backend/internal/logger"
	"github.com/stemsi/practice-backend/internal/metrics"
	"github.com/stemsi/practice-backend/internal/middleware"
	"github.com/stemsi/practice-backend/internal/repository"
	"github.com/stemsi/practice-backend/internal/router"
	"github.com/stemsi/practice-backend/internal/scoring"
	"github.com/stemsi/practice-backend/internal/service"
	"github.com/stemsi/practice-backend/internal/validator"
	"github.com/stemsi/practice-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting practice backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if cfg.MetricsEnabled {
		metrics.RegisterPool(pool.Stat)
	}

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	contentRepo := repository.NewContentRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	resolver := identity.NewResolver(identity.NewJWTProvider(cfg.JWTSecret), rdb, cfg.IdentityCacheTTL, log)
	builder := service.NewSnapshotBuilder(contentRepo, log)
	attemptService := service.NewAttemptService(attemptRepo, contentRepo, builder, scoring.NewEngine(), log)
	contentService := service.NewContentService(contentRepo, events.NewPublisher(rdb), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Attempt: handler.NewAttemptHandler(attemptService, log),
		Content: handler.NewContentHandler(contentService, log),
		WS:      handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pool,
			"redis":    handler.PingFunc(database.PingRedis(rdb)),
		}, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	eventWorker := worker.NewContentEventWorker(pool, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		eventWorker.Start(workerCtx)
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go limiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(resolver, limiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the event queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
