package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/ieltsprep/ielts-backend/internal/config"
	"github.com/ieltsprep/ielts-backend/internal/database"
	"github.com/ieltsprep/ielts-backend/internal/evaluator"
	"github.com/ieltsprep/ielts-backend/internal/handler"
	"github.com/ieltsprep/ielts-backend/internal/logger"
	"github.com/ieltsprep/ielts-backend/internal/repository"
	"github.com/ieltsprep/ielts-backend/internal/router"
	"github.com/ieltsprep/ielts-backend/internal/service"
	"github.com/ieltsprep/ielts-backend/internal/session"
	"github.com/ieltsprep/ielts-backend/internal/validator"
	"github.com/ieltsprep/ielts-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting IELTS Prep Backend")

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

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	testRepo := repository.NewTestRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	registry := session.NewRegistry()
	sessionService := service.NewSessionService(testRepo, sessionRepo, responseRepo, registry, rdb, cfg, log)
	testService := service.NewTestService(testRepo, rdb, log)
	resultService := service.NewResultService(testRepo, sessionRepo, responseRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Test:    handler.NewTestHandler(testService),
		Session: handler.NewSessionHandler(sessionService),
		Result:  handler.NewResultHandler(resultService),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	progressWorker := worker.NewProgressWorker(responseRepo, rdb, log)
	go progressWorker.Start(workerCtx)

	sweepWorker := worker.NewSweepWorker(sessionRepo, 5*time.Minute, log)
	go sweepWorker.Start(workerCtx)

	// The evaluation worker only runs when an evaluator endpoint is
	// configured; essays stay pending otherwise.
	if cfg.EvaluatorBaseURL != "" {
		ai := evaluator.New(cfg.EvaluatorBaseURL, cfg.EvaluatorAPIKey, cfg.EvaluatorModel)
		evaluationWorker := worker.NewEvaluationWorker(responseRepo, ai, rdb, log)
		go evaluationWorker.Start(workerCtx)
	} else {
		log.Warn().Msg("EVALUATOR_BASE_URL not set; writing evaluation worker disabled")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
