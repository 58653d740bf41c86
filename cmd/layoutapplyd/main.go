// Command layoutapplyd is the composition root: it wires Config, the HTTP
// session, the driver registry, the scheduler, the Postgres-backed store,
// and the lifecycle controller, then serves the admission/cancel/resume
// surface. The CLI/HTTP façade itself is out of scope (spec §1); this main
// exposes the minimum surface needed to drive the executor from a shell,
// grounded on the teacher's cmd/bmdemo-server/main.go for the ambient
// pattern: flag-based log level, slog setup, signal.NotifyContext for
// graceful shutdown, a long-lived background context for apply execution
// kept separate from the short per-request context.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/config"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/driver"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/httpx"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/lifecycle"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/scheduler"
	"github.com/vpatelsj/layoutapply/internal/layoutapply/store"
)

func main() {
	var (
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
		addr     = flag.String("addr", ":8080", "admission/cancel/resume listen address")
		dsn      = flag.String("db-dsn", os.Getenv("LAYOUTAPPLY_DB_DSN"), "Postgres DSN for the state store")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dsn == "" {
		logger.Error("db-dsn is required (flag or LAYOUTAPPLY_DB_DSN)")
		os.Exit(1)
	}

	if err := store.Migrate(ctx, *dsn, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, *dsn, logger)
	if err != nil {
		logger.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cfg := config.Default()
	validator := config.NewValidator()
	if err := validator.Validate(cfg); err != nil {
		logger.Error("default config failed validation", "error", err)
		os.Exit(1)
	}

	session := httpx.NewSession()
	registry := driver.NewRegistry(cfg, session, logger)
	sched := scheduler.New(registry, cfg.MaxWorkers)
	controller := lifecycle.New(st, sched, logger, cfg.RollbackOnFailure, nil)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(controller, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newMux exposes the minimal admission/cancel/resume surface a shell or
// the out-of-scope CLI façade would call into. Response shaping beyond raw
// JSON is explicitly out of scope (spec §1's "report-formatting helpers").
func newMux(c *lifecycle.Controller, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /applies", func(w http.ResponseWriter, r *http.Request) {
		var plan model.Plan
		if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		applyID, err := c.Run(r.Context(), plan)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"applyId": applyID})
	})

	mux.HandleFunc("POST /applies/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Rollback bool `json:"rollback"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		transition, err := c.Cancel(r.Context(), r.PathValue("id"), body.Rollback)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, transition)
	})

	mux.HandleFunc("POST /applies/{id}/resume", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Resume(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("request failed", "error", err)
	status := http.StatusInternalServerError
	msg := err.Error()
	writeJSON(w, status, map[string]string{"error": fmt.Sprint(msg)})
}
