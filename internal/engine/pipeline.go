// Package engine constructs the feature DAG from configuration and
// evaluates it in parallel per (instrument, event-time) trigger.
// Grounded on original_source/arkin/src/pipeline.rs's Pipeline, with its
// sentinel-based termination check (spec.md §9's flagged Open Question)
// replaced by an atomic outstanding-node counter and channel close — the
// pattern other_examples' graph/scheduler.go uses atomic.Int64 counters
// for exactly this kind of concurrent completion tracking.
package engine

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"featuregraph/internal/catalog"
	"featuregraph/internal/config"
	"featuregraph/internal/diagnostics"
	"featuregraph/internal/metrics"
	"featuregraph/internal/store"
	"featuregraph/pkg/types"
)

// Pipeline is immutable after New: its graph never changes, so it's safe
// to call Calculate concurrently for different instruments (spec.md §5).
type Pipeline struct {
	name    string
	g       *graph
	store   *store.Store
	logger  *slog.Logger
	workers int
	diag    *diagnostics.Monitor // optional; nil disables observation
	metrics *metrics.Metrics     // optional; nil disables instrumentation
}

// WithDiagnostics attaches a Monitor that observes every node evaluation
// and recovered failure. Purely additive — Calculate's behavior is
// identical with or without one attached.
func (p *Pipeline) WithDiagnostics(m *diagnostics.Monitor) *Pipeline {
	p.diag = m
	return p
}

// WithMetrics attaches Prometheus collectors for node/pass timing. Purely
// additive, like WithDiagnostics.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// New constructs the DAG from cfg: instantiates one node per feature
// config, resolves edges automatically against declared sources, computes
// a topological order once, and rejects cycles — all as ConfigErrors, all
// at construction (spec.md §4.3).
func New(cfg config.PipelineConfig, st *store.Store, logger *slog.Logger) (*Pipeline, error) {
	features, err := catalog.FromConfigs(cfg.Features)
	if err != nil {
		return nil, newConfigError("%v", err)
	}
	g, err := newGraph(features)
	if err != nil {
		return nil, err
	}

	logger = logger.With("component", "pipeline", "pipeline", cfg.Name)
	logger.Debug("constructed feature graph",
		"nodes", len(g.nodes),
		"edges", countEdges(g.edges),
		"order", nodeIDs(g),
	)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(g.nodes) && len(g.nodes) > 0 {
		workers = len(g.nodes)
	}

	return &Pipeline{
		name:    cfg.Name,
		g:       g,
		store:   st,
		logger:  logger,
		workers: workers,
	}, nil
}

func countEdges(edges [][]int) int {
	n := 0
	for _, e := range edges {
		n += len(e)
	}
	return n
}

func nodeIDs(g *graph) []types.NodeId {
	ids := make([]types.NodeId, len(g.order))
	for i, idx := range g.order {
		ids[i] = g.nodes[idx].ID()
	}
	return ids
}

// Calculate evaluates every node in dependency order for (instrument,
// eventTime) and returns the batch of FeatureEvents produced. It always
// succeeds: per-node failures are caught, logged, and skipped (spec.md
// §7) rather than aborting the call. There is no cancellation or timeout
// parameter by design (spec.md §5): a mid-flight deadline would leave the
// graph half-computed and the store with a non-atomic partial update.
func (p *Pipeline) Calculate(instrument types.Instrument, eventTime types.Timestamp) []types.FeatureEvent {
	n := len(p.g.nodes)
	if n == 0 {
		return nil
	}

	if p.metrics != nil {
		start := time.Now()
		defer func() { p.metrics.CalculateDuration.Observe(time.Since(start).Seconds()) }()
	}

	inDegree := make([]int32, n)
	for i, d := range p.g.inDegree {
		inDegree[i] = int32(d)
	}

	ready := make(chan int, n)
	var outstanding atomic.Int64
	outstanding.Store(int64(n))
	var closeOnce sync.Once
	closeReady := func() { closeOnce.Do(func() { close(ready) }) }

	// Seed zero-in-degree nodes in topological order so enqueue order is
	// deterministic within a level (spec.md §4.3's tie-break rule).
	for _, idx := range p.g.order {
		if inDegree[idx] == 0 {
			ready <- idx
		}
	}

	var mu sync.Mutex
	var batch []types.FeatureEvent

	var eg errgroup.Group
	for w := 0; w < p.workers; w++ {
		eg.Go(func() error {
			for idx := range ready {
				events := p.evaluateNode(idx, instrument, eventTime)
				if len(events) > 0 {
					mu.Lock()
					batch = append(batch, events...)
					mu.Unlock()
				}

				// Enqueue newly-ready neighbors before touching the
				// outstanding counter: the goroutine that brings
				// outstanding to zero must have already finished every
				// enqueue it will ever perform, or the channel could be
				// closed while another goroutine still holds a pending
				// send.
				for _, next := range p.g.edges[idx] {
					if atomic.AddInt32(&inDegree[next], -1) == 0 {
						ready <- next
					}
				}

				if outstanding.Add(-1) == 0 {
					closeReady()
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	if p.metrics != nil {
		p.metrics.StorePoints.Set(float64(p.store.Stats().Points))
	}

	return batch
}

// evaluateNode queries the store for one node's declared data requests,
// invokes its pure Calculate, and writes back every produced value as a
// FeatureEvent. A node-level failure is recovered here and never
// propagated: the node simply contributes nothing to the batch.
func (p *Pipeline) evaluateNode(idx int, instrument types.Instrument, eventTime types.Timestamp) []types.FeatureEvent {
	node := p.g.nodes[idx]
	if p.diag != nil {
		p.diag.RecordEvaluation(node.ID())
	}
	if p.metrics != nil {
		p.metrics.NodesEvaluated.WithLabelValues(string(node.ID())).Inc()
		start := time.Now()
		defer func() { p.metrics.EvaluationDuration.WithLabelValues(string(node.ID())).Observe(time.Since(start).Seconds()) }()
	}

	data := p.store.ReadFeatures(instrument, eventTime, node.DataRequests())
	values, err := node.Calculate(data)
	if err != nil {
		p.logger.Debug("feature calculation failed", "node", node.ID(), "error", err)
		if p.diag != nil {
			p.diag.RecordFailure(node.ID(), diagnostics.DataInsufficient, err.Error())
		}
		if p.metrics != nil {
			p.metrics.NodesFailed.WithLabelValues(string(node.ID()), string(diagnostics.DataInsufficient)).Inc()
		}
		return nil
	}
	if len(values) == 0 {
		p.logger.Debug("feature produced no output", "node", node.ID())
		if p.diag != nil {
			p.diag.RecordFailure(node.ID(), diagnostics.DataInsufficient, "empty result")
		}
		if p.metrics != nil {
			p.metrics.NodesFailed.WithLabelValues(string(node.ID()), string(diagnostics.DataInsufficient)).Inc()
		}
		return nil
	}

	events := make([]types.FeatureEvent, 0, len(values))
	for featureID, value := range values {
		if math.IsNaN(value) {
			if p.diag != nil {
				p.diag.RecordFailure(node.ID(), diagnostics.NumericError, "numerically undefined result (NaN)")
			}
			if p.metrics != nil {
				p.metrics.NodesFailed.WithLabelValues(string(node.ID()), string(diagnostics.NumericError)).Inc()
			}
		}
		event := types.FeatureEvent{
			FeatureId:  featureID,
			Instrument: instrument,
			EventTime:  eventTime,
			Value:      value,
		}
		p.store.AddFeature(event)
		events = append(events, event)
	}
	return events
}
