package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/app"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/handler"
	"github.com/stemsi/student-registry/internal/logger"
	"github.com/stemsi/student-registry/internal/router"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/session"
	"github.com/stemsi/student-registry/internal/validator"
	ws "github.com/stemsi/student-registry/internal/websocket"
	"github.com/stemsi/student-registry/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.MustLoad()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("sessions", cfg.SessionDriver).
		Msg("Starting Student Registry")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Stores ───────────────────────────────────────────────────
	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer infra.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg, infra.Records, infra.Sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	hub := ws.NewHub(32, log)
	studentService := service.NewStudentService(infra.Records, hub, cfg.StrictClassLabels)

	// ─── Seed Admin ────────────────────────────────────────────────────
	created, err := authService.EnsureSeedAdmin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin account")
	}
	if created {
		log.Info().Str("username", cfg.SeedAdminUsername).Msg("Seeded admin account")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg, log),
		Student: handler.NewStudentHandler(studentService, log),
		WS:      handler.NewWSHandler(hub, authService, cfg.WSSessionCheckInterval, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(infra.Checks, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	var sweeper *worker.SessionSweeper
	if s, ok := infra.Sessions.(session.Sweeper); ok {
		sweeper = worker.NewSessionSweeper(s, cfg.SessionTTL, cfg.SessionSweepInterval, log)
		go sweeper.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(workerCtx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop background workers and wait for them.
	workerCancel()
	if sweeper != nil {
		select {
		case <-sweeper.Done():
		case <-shutdownCtx.Done():
			log.Warn().Msg("Session sweeper did not stop in time")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
