package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/remindcli/remind/internal/build"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
)

// HealthServer represents the health check HTTP server for the scheduler
type HealthServer struct {
	server   *http.Server
	listener net.Listener
	port     int
	status   func() Status
	metrics  http.Handler
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Scheduler Status `json:"scheduler"`
}

// NewHealthServer creates a health check server on localhost:port that
// reports status. metrics, if not nil, is served at /metrics. Port 0
// disables the server.
func NewHealthServer(port int, status func() Status, metrics http.Handler) *HealthServer {
	return &HealthServer{
		port:    port,
		status:  status,
		metrics: metrics,
	}
}

// Start binds the port and serves in the background.
func (h *HealthServer) Start(ctx context.Context) error {
	if h.port == 0 {
		logger.Info(ctx, "Scheduler health check server disabled (port=0)")
		return nil
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", h.healthHandler)
	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", h.port))
	if err != nil {
		return err
	}
	h.listener = ln
	h.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "Starting scheduler health check server", tag.Addr(ln.Addr().String()))
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Health check server error", tag.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or "" when the server is not running.
func (h *HealthServer) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop gracefully stops the health check server
func (h *HealthServer) Stop(ctx context.Context) error {
	if h.server == nil {
		return nil
	}

	logger.Info(ctx, "Stopping scheduler health check server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Failed to shutdown scheduler health check server", tag.Error(err))
		return err
	}
	return nil
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: build.Version,
	}
	if h.status != nil {
		response.Scheduler = h.status()
		if response.Scheduler.Degraded {
			response.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error but don't write anything else to avoid corrupting response
		logger.Error(r.Context(), "Failed to encode health response", tag.Error(err))
	}
}
