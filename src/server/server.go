package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"yieldengine/src/health"
)

// StartServer runs the ops HTTP server exposing the health probes. It
// returns once ctx is cancelled and the server has shut down.
func StartServer(ctx context.Context, port string, manager *health.Manager) {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Get("/health/components", func(w http.ResponseWriter, r *http.Request) {
		reports := manager.Overall()

		status := http.StatusOK
		for _, report := range reports {
			if report.Status == health.StatusUnhealthy {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(reports); err != nil {
			logger.WithError(err).Error("/health/components encode error")
		}
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("ops server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("ops server crashed")
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down ops server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("ops server shutdown error")
	}
}
