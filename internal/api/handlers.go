// handlers.go implements the dashboard's HTTP surface, adapted from the
// teacher's internal/api/handlers.go — the health check, snapshot, and
// websocket-upgrade handlers follow the same shape (including the
// CheckOrigin allowlist logic) with the metrics endpoint added, since
// this engine exposes Prometheus metrics where the teacher did not.
package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"featuregraph/internal/config"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	pipelineName  string
	provider      SnapshotProvider
	storeProvider StoreStatsProvider
	cfg           config.DashboardConfig
	hub           *Hub
	logger        *slog.Logger
}

// NewHandlers builds a Handlers bound to provider's diagnostics and
// storeProvider's State Store stats.
func NewHandlers(pipelineName string, provider SnapshotProvider, storeProvider StoreStatsProvider, cfg config.DashboardConfig, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		pipelineName:  pipelineName,
		provider:      provider,
		storeProvider: storeProvider,
		cfg:           cfg,
		hub:           hub,
		logger:        logger.With("component", "api_handlers"),
	}
}

// HandleHealth returns a trivial liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the current diagnostics state as JSON.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.pipelineName, h.provider, h.storeProvider)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleMetrics serves Prometheus metrics for scraping.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HandleWebSocket upgrades the connection and registers a new Client,
// sending it an immediate snapshot so the dashboard never starts blank.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	evt := NewSnapshotEvent(BuildSnapshot(h.pipelineName, h.provider, h.storeProvider))
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal initial snapshot", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to new client")
	}
}

func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			u, err := url.Parse(allowed)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	return host == normalizeHost(reqHost)
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
