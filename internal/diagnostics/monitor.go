// Package diagnostics provides pure observation of the pipeline engine's
// per-node failure rate — no cancellation, no kill switch. Adapted from
// the teacher's internal/risk.Manager (report channel, periodic ticker,
// RWMutex-guarded aggregate, Snapshot accessor), with every enforcement
// action (kill signals, cooldowns) stripped out: spec.md §5 rules out
// cancellation inside the engine entirely, so this collaborator only
// ever reports.
package diagnostics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"featuregraph/internal/config"
	"featuregraph/pkg/types"
)

// FailureKind distinguishes the two runtime error categories a node can
// hit, per spec.md §7's taxonomy (ConfigError never reaches here — it's
// fatal at construction, before a Monitor exists).
type FailureKind string

const (
	DataInsufficient FailureKind = "data_insufficient"
	NumericError     FailureKind = "numeric_error"
)

type failureEvent struct {
	node types.NodeId
	kind FailureKind
	at   time.Time
}

type evaluationEvent struct {
	node types.NodeId
	at   time.Time
}

// NodeStats summarizes one node's recent behavior within the configured
// failure window.
type NodeStats struct {
	Node        types.NodeId
	Evaluated   int
	Failed      int
	FailureRate float64
}

// Snapshot is the dashboard-facing view of current diagnostics state.
type Snapshot struct {
	Nodes          map[types.NodeId]NodeStats
	AlertThreshold float64
	Alerting       []types.NodeId // nodes whose failure rate exceeds AlertThreshold
}

// Monitor aggregates node evaluation/failure events over a rolling
// window and answers dashboard queries. It takes no action on what it
// observes — purely diagnostic, matching spec.md §5's no-cancellation
// rule for this layer.
type Monitor struct {
	cfg    config.DiagnosticsConfig
	logger *slog.Logger

	mu          sync.RWMutex
	evaluations map[types.NodeId][]time.Time
	failures    map[types.NodeId][]failureEvent

	reportCh chan failureEvent
	evalCh   chan evaluationEvent
}

// NewMonitor builds a Monitor. A cfg.FailureWindow of zero or less makes
// Run fall back to a 5-minute window, so eviction always runs while Run
// is active.
func NewMonitor(cfg config.DiagnosticsConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:         cfg,
		logger:      logger.With("component", "diagnostics"),
		evaluations: make(map[types.NodeId][]time.Time),
		failures:    make(map[types.NodeId][]failureEvent),
		reportCh:    make(chan failureEvent, 256),
		evalCh:      make(chan evaluationEvent, 256),
	}
}

// Run drives the aggregation loop until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	window := m.cfg.FailureWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.reportCh:
			m.recordFailure(ev)
		case ev := <-m.evalCh:
			m.recordEvaluation(ev)
		case <-ticker.C:
			m.evict(window)
		}
	}
}

// RecordEvaluation notes that a node was attempted, regardless of
// outcome. Non-blocking: a full channel drops the observation rather
// than stalling the engine's worker loop.
func (m *Monitor) RecordEvaluation(node types.NodeId) {
	select {
	case m.evalCh <- evaluationEvent{node: node, at: time.Now().UTC()}:
	default:
		m.logger.Warn("diagnostics evaluation channel full, dropping observation", "node", node)
	}
}

// RecordFailure notes that a node's calculate() raised a DataInsufficient
// or NumericError condition (spec.md §7's recovered, per-node errors).
func (m *Monitor) RecordFailure(node types.NodeId, kind FailureKind, reason string) {
	m.logger.Debug("feature evaluation recovered", "node", node, "kind", kind, "reason", reason)
	select {
	case m.reportCh <- failureEvent{node: node, kind: kind, at: time.Now().UTC()}:
	default:
		m.logger.Warn("diagnostics report channel full, dropping failure", "node", node)
	}
}

func (m *Monitor) recordEvaluation(ev evaluationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[ev.node] = append(m.evaluations[ev.node], ev.at)
}

func (m *Monitor) recordFailure(ev failureEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[ev.node] = append(m.failures[ev.node], ev)
}

func (m *Monitor) evict(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-window)
	for node, ts := range m.evaluations {
		m.evaluations[node] = dropBefore(ts, cutoff)
	}
	for node, evs := range m.failures {
		kept := evs[:0]
		for _, e := range evs {
			if e.at.After(cutoff) {
				kept = append(kept, e)
			}
		}
		m.failures[node] = kept
	}
}

func dropBefore(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Snapshot returns the current aggregate view across every observed node.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make(map[types.NodeId]NodeStats, len(m.evaluations))
	var alerting []types.NodeId

	for node, ts := range m.evaluations {
		evaluated := len(ts)
		failed := len(m.failures[node])
		var rate float64
		if evaluated > 0 {
			rate = float64(failed) / float64(evaluated)
		}
		nodes[node] = NodeStats{
			Node:        node,
			Evaluated:   evaluated,
			Failed:      failed,
			FailureRate: rate,
		}
		if m.cfg.AlertThreshold > 0 && rate > m.cfg.AlertThreshold {
			alerting = append(alerting, node)
		}
	}

	return Snapshot{
		Nodes:          nodes,
		AlertThreshold: m.cfg.AlertThreshold,
		Alerting:       alerting,
	}
}
