// server.go wires the dashboard's HTTP server together, adapted from the
// teacher's internal/api/server.go — same mux/hub/handlers composition
// and graceful-shutdown shape. Where the teacher forwards an engine
// event channel into the hub, this server instead polls SnapshotProvider
// on a fixed interval, since diagnostics.Monitor has no event stream of
// its own (it is deliberately pull-only, per its no-action design).
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"featuregraph/internal/config"
)

const broadcastInterval = 2 * time.Second

// Server runs the HTTP/WebSocket diagnostics dashboard.
type Server struct {
	cfg           config.DashboardConfig
	pipelineName  string
	provider      SnapshotProvider
	storeProvider StoreStatsProvider
	hub           *Hub
	handlers      *Handlers
	httpServer    *http.Server
	logger        *slog.Logger
}

// NewServer builds a Server that will listen on cfg.Port once started.
func NewServer(cfg config.DashboardConfig, pipelineName string, provider SnapshotProvider, storeProvider StoreStatsProvider, logger *slog.Logger) *Server {
	logger = logger.With("component", "api_server")
	hub := NewHub(logger)
	handlers := NewHandlers(pipelineName, provider, storeProvider, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/metrics", handlers.HandleMetrics)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:           cfg,
		pipelineName:  pipelineName,
		provider:      provider,
		storeProvider: storeProvider,
		hub:           hub,
		handlers:      handlers,
		httpServer:    httpServer,
		logger:        logger,
	}
}

// Run starts the hub, the periodic broadcaster, and the HTTP listener.
// Blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	go s.broadcastLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("dashboard server: %w", err)
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := BuildSnapshot(s.pipelineName, s.provider, s.storeProvider)
			s.hub.BroadcastEvent(NewSnapshotEvent(snapshot))
		}
	}
}
