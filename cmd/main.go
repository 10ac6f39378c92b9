// cmd/main.go is the application entry point.
// It wires together all layers, connects the chat bridge, and serves the
// liveness endpoint the hosting platform polls.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mcotta/presenca-bot/internal/chat"
	"github.com/mcotta/presenca-bot/internal/config"
	"github.com/mcotta/presenca-bot/internal/database"
	"github.com/mcotta/presenca-bot/internal/handler"
	"github.com/mcotta/presenca-bot/internal/service"
	"github.com/mcotta/presenca-bot/internal/store"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.Debug)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Pick the persistence backend ──────────────────────────────────
	var st store.EventStore
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalw("database", "error", err)
		}
		defer pool.Close()
		st = store.NewPostgresStore(pool)
		log.Infow("using postgres store")
	} else {
		st = store.NewFileStore(cfg.DataFile)
		log.Infow("using file store", "path", cfg.DataFile)
	}
	if err := st.Load(ctx); err != nil {
		// No recovery path for unparseable state; refuse to start rather
		// than risk overwriting a file an operator could still salvage.
		log.Fatalw("load store", "error", err)
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	svc := service.NewAttendanceService(st)
	bridge := chat.NewBridgeClient(cfg.BridgeURL, cfg.Token, log)
	router := handler.NewRouter(svc, bridge, log, handler.DefaultSelectTimeout)

	// ── 3. Liveness endpoint ─────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Get("/health", healthCheck)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Infow("liveness endpoint up", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("liveness server", "error", err)
		}
	}()

	// ── 4. Connect and run the chat bridge ───────────────────────────────
	if err := bridge.Dial(ctx); err != nil {
		log.Fatalw("bridge", "error", err)
	}
	bridgeErr := make(chan error, 1)
	go func() {
		bridgeErr <- bridge.Run(ctx, router)
	}()
	log.Infow("bot online", "bridge", cfg.BridgeURL)

	// ── 5. Block until SIGINT/SIGTERM or bridge failure ──────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Infow("shutting down")
	case err := <-bridgeErr:
		log.Errorw("bridge stopped", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	log.Infow("stopped")
}

// healthCheck handles GET /health.
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func newLogger(debug bool) *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}
