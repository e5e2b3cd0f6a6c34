// Command engine runs the feature-graph pipeline: it loads a pipeline
// definition, builds the State Store and DAG, ingests market data from
// the configured demo feed, and recomputes every downstream feature on a
// frequency_secs cadence for each instrument the feed has observed. It
// optionally serves a diagnostics dashboard.
//
// Architecture:
//
//	internal/config     — YAML configuration + env overrides
//	internal/store       — time-indexed State Store
//	internal/catalog      — feature implementations (sma, ema, vwap, volume, spread)
//	internal/engine       — DAG construction and parallel evaluation
//	internal/diagnostics  — observational per-node failure-rate monitor
//	internal/feed         — demo REST/WebSocket ingestion
//	internal/metrics      — Prometheus collectors
//	internal/api          — diagnostics dashboard (HTTP + WebSocket)
//
// Grounded on the teacher's cmd/bot/main.go: config load → Validate →
// slog setup → component construction → signal-driven shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"featuregraph/internal/api"
	"featuregraph/internal/config"
	"featuregraph/internal/diagnostics"
	"featuregraph/internal/engine"
	"featuregraph/internal/feed"
	"featuregraph/internal/metrics"
	"featuregraph/internal/store"
	"featuregraph/pkg/types"
)

// instrumentRegistry tracks every instrument the feed has observed, so the
// frequency_secs-cadenced driver below knows what to recompute on each
// tick without the feed package needing to know about the pipeline.
type instrumentRegistry struct {
	mu   sync.RWMutex
	seen map[types.Instrument]struct{}
}

func newInstrumentRegistry() *instrumentRegistry {
	return &instrumentRegistry{seen: make(map[types.Instrument]struct{})}
}

func (r *instrumentRegistry) add(inst types.Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[inst] = struct{}{}
}

func (r *instrumentRegistry) snapshot() []types.Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Instrument, 0, len(r.seen))
	for inst := range r.seen {
		out = append(out, inst)
	}
	return out
}

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("FEATUREGRAPH_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	st := store.New(cfg.Store)

	pipeline, err := engine.New(cfg.Pipeline, st, logger)
	if err != nil {
		logger.Error("failed to construct pipeline", "error", err)
		os.Exit(1)
	}

	monitor := diagnostics.NewMonitor(cfg.Diagnostics, logger)
	pipeline.WithDiagnostics(monitor)

	met := metrics.New()
	pipeline.WithMetrics(met)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go monitor.Run(ctx)

	instruments := newInstrumentRegistry()
	onEvent := func(instrument types.Instrument, eventTime types.Timestamp) {
		instruments.add(instrument)
	}

	go runCalculateLoop(ctx, pipeline, instruments, cfg.Pipeline.FrequencySecs, logger)

	if cfg.Feed.Enabled {
		if cfg.Feed.WSURL != "" {
			wsFeed := feed.NewWSFeed(cfg.Feed, st, onEvent, logger)
			go func() {
				if err := wsFeed.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("websocket feed stopped", "error", err)
				}
			}()
		}
		if cfg.Feed.RestBaseURL != "" {
			poller := feed.NewPoller(cfg.Feed, st, onEvent, logger)
			go func() {
				if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("rest poller stopped", "error", err)
				}
			}()
		}
	}

	var dashboard *api.Server
	if cfg.Dashboard.Enabled {
		dashboard = api.NewServer(cfg.Dashboard, cfg.Pipeline.Name, monitor, st, logger)
		go func() {
			if err := dashboard.Run(ctx); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	logger.Info("feature graph engine started", "pipeline", cfg.Pipeline.Name, "feed_enabled", cfg.Feed.Enabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
}

// runCalculateLoop drives Calculate() at the configured frequency_secs
// cadence (spec.md §6: "drives the caller's invocation cadence") for every
// instrument the feed has observed so far. A zero or negative cadence
// disables the loop entirely — ingestion still populates the store, but
// nothing recomputes, which is only useful for store-only integration
// tests driving Calculate by hand.
func runCalculateLoop(ctx context.Context, pipeline *engine.Pipeline, instruments *instrumentRegistry, frequencySecs int, logger *slog.Logger) {
	if frequencySecs <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(frequencySecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, inst := range instruments.snapshot() {
				events := pipeline.Calculate(inst, now)
				logger.Debug("calculate tick", "instrument", inst, "events", len(events))
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
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
