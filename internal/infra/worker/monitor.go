package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitorServer exposes the worker's operational endpoints when it runs in
// scheduled mode:
//   - /health: liveness probe, always 200
//   - /health/ready: readiness probe, 200 once the scheduler is up
//   - /metrics: Prometheus metrics
//
// The server shuts down gracefully on context cancellation.
type MonitorServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	server  *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewMonitorServer creates a monitoring server that will listen on addr.
func NewMonitorServer(addr string, logger *slog.Logger) *MonitorServer {
	return &MonitorServer{
		addr:    addr,
		logger:  logger,
		isReady: &atomic.Bool{},
	}
}

// Start serves until the context is cancelled or the listener fails. It
// returns http.ErrServerClosed after a graceful shutdown.
func (m *MonitorServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.handleLiveness)
	mux.HandleFunc("/health/ready", m.handleReadiness)
	mux.Handle("/metrics", promhttp.Handler())

	m.server = &http.Server{
		Addr:         m.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		m.logger.Info("monitor server starting", slog.String("addr", m.addr))
		if err := m.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		m.logger.Info("monitor server shutting down")
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			m.logger.Error("monitor server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed

	case err := <-errChan:
		if err != http.ErrServerClosed {
			m.logger.Error("monitor server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady flips the readiness state reported by /health/ready.
func (m *MonitorServer) SetReady(ready bool) {
	m.isReady.Store(ready)
	m.logger.Info("monitor server readiness changed", slog.Bool("ready", ready))
}

func (m *MonitorServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, "ok", m.logger)
}

func (m *MonitorServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if m.isReady.Load() {
		writeHealth(w, http.StatusOK, "ok", m.logger)
		return
	}
	writeHealth(w, http.StatusServiceUnavailable, "not ready", m.logger)
}

func writeHealth(w http.ResponseWriter, code int, status string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: status}); err != nil {
		logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
