// Package store implements the time-indexed, thread-safe State Store: the
// engine's only channel between raw market data / computed features and
// the nodes that read them back. Locking is per (instrument, feature-id)
// bucket, not global, so that unrelated series never contend — grounded
// on the teacher's internal/market/book.go (one RWMutex per symbol) and
// original_source/src/state/market/mod.rs's RwLock<HashMap<Instrument,
// VecDeque<_>>> shape, combined here into a single bucketed map.
package store

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"featuregraph/internal/config"
	"featuregraph/pkg/types"
)

// Store is infallible: every ingest/read call either returns data or an
// empty result, never an error. Construction-time misconfiguration is
// caught by internal/engine before a Store is ever built (spec.md §7:
// "no StoreError — store operations are infallible").
type Store struct {
	interner *interner

	mu     sync.RWMutex
	series map[*types.Instrument]map[types.FeatureId]*bucket

	tickRetention  time.Duration
	tradeRetention time.Duration
}

// New builds an empty Store. Retention of zero means unbounded, per the
// resolved Open Question on retention policy.
func New(cfg config.StoreConfig) *Store {
	return &Store{
		interner:       newInterner(),
		series:         make(map[*types.Instrument]map[types.FeatureId]*bucket),
		tickRetention:  cfg.TickRetention,
		tradeRetention: cfg.TradeRetention,
	}
}

func (s *Store) retentionFor(id types.FeatureId) time.Duration {
	switch id {
	case types.BidPrice, types.AskPrice, types.BidQty, types.AskQty, types.MidPrice:
		return s.tickRetention
	case types.TradePrice, types.TradeQty, types.AggTradePrice, types.AggTradeQty:
		return s.tradeRetention
	default:
		return 0
	}
}

func (s *Store) getOrCreateBucket(inst *types.Instrument, id types.FeatureId) *bucket {
	s.mu.Lock()
	byFeature, ok := s.series[inst]
	if !ok {
		byFeature = make(map[types.FeatureId]*bucket)
		s.series[inst] = byFeature
	}
	b, ok := byFeature[id]
	if !ok {
		b = newBucket(s.retentionFor(id))
		byFeature[id] = b
	}
	s.mu.Unlock()
	return b
}

func (s *Store) getBucket(inst *types.Instrument, id types.FeatureId) (*bucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byFeature, ok := s.series[inst]
	if !ok {
		return nil, false
	}
	b, ok := byFeature[id]
	return b, ok
}

// IngestTick records a quote update, populating the bid_price, ask_price,
// bid_qty, ask_qty, and mid_price base identifier series for the tick's
// instrument.
func (s *Store) IngestTick(tick types.Tick) {
	inst := s.interner.intern(tick.Instrument)
	s.getOrCreateBucket(inst, types.BidPrice).insert(tick.EventTime, tick.BidPrice)
	s.getOrCreateBucket(inst, types.AskPrice).insert(tick.EventTime, tick.AskPrice)
	s.getOrCreateBucket(inst, types.BidQty).insert(tick.EventTime, tick.BidQty)
	s.getOrCreateBucket(inst, types.AskQty).insert(tick.EventTime, tick.AskQty)
	s.getOrCreateBucket(inst, types.MidPrice).insert(tick.EventTime, tick.MidPrice())
}

// IngestTrade records an execution print, populating the trade_price and
// trade_qty base identifier series.
func (s *Store) IngestTrade(trade types.Trade) {
	inst := s.interner.intern(trade.Instrument)
	s.getOrCreateBucket(inst, types.TradePrice).insert(trade.EventTime, trade.Price)
	s.getOrCreateBucket(inst, types.TradeQty).insert(trade.EventTime, trade.Qty)
}

// IngestAggTrade records an exchange-aggregated trade print in a buffer
// distinct from IngestTrade's individual fills, per the supplemented
// agg_trades behavior carried over from the original market state model.
func (s *Store) IngestAggTrade(trade types.Trade) {
	inst := s.interner.intern(trade.Instrument)
	s.getOrCreateBucket(inst, types.AggTradePrice).insert(trade.EventTime, trade.Price)
	s.getOrCreateBucket(inst, types.AggTradeQty).insert(trade.EventTime, trade.Qty)
}

// AddFeature records a node's computed output. The float64 crossing back
// to decimal.Decimal here is lossy by construction — FeatureEvent.Value is
// already the engine's final boundary crossing (SPEC_FULL.md §3) — but
// keeping every series in the store as decimal keeps query arithmetic
// uniform regardless of whether a series is raw market data or computed.
func (s *Store) AddFeature(event types.FeatureEvent) {
	// shopspring/decimal has no NaN/Inf representation; a NumericError
	// result (spec.md §7) is still returned to the caller in the
	// calculate() batch but isn't re-entered as a decimal series point,
	// since nothing downstream can query it back out meaningfully.
	if math.IsNaN(event.Value) || math.IsInf(event.Value, 0) {
		return
	}
	inst := s.interner.intern(event.Instrument)
	value := decimal.NewFromFloat(event.Value)
	s.getOrCreateBucket(inst, event.FeatureId).insert(event.EventTime, value)
}

// ReadFeatures answers a node's data request: for each requested source,
// resolve its bucket and apply the query's shape (Latest/Window/Periods).
// A source with no data yet returns an empty series, never an error —
// DataInsufficient is a catalog-level concept, raised by calculate() when
// the response it receives is too sparse, not by the store.
func (s *Store) ReadFeatures(instrument types.Instrument, asOf types.Timestamp, requests []types.FeatureDataRequest) types.FeatureDataResponse {
	inst := s.interner.intern(instrument)
	resp := types.NewFeatureDataResponse()

	for _, req := range requests {
		b, ok := s.getBucket(inst, req.Source)
		if !ok {
			resp.Series[req.Source] = nil
			continue
		}
		switch req.Query.Kind {
		case types.QueryLatest:
			if p, found := b.latest(asOf); found {
				resp.Series[req.Source] = []types.FeaturePoint{p}
			}
		case types.QueryWindow:
			resp.Series[req.Source] = b.window(asOf, req.Query.Window)
		case types.QueryPeriods:
			resp.Series[req.Source] = b.periods(asOf, req.Query.Periods)
		}
	}
	return resp
}

// StoreStats summarizes the State Store's current retained footprint,
// for dashboard and metrics consumers that need a point-in-time view
// without reaching into any one series.
type StoreStats struct {
	Instruments int
	Series      int
	Points      int
}

// Stats collects every bucket under the store's read lock, then reads each
// bucket's length under that bucket's own read lock, and reports aggregate
// counts. Approximate under concurrent ingest (a bucket can grow or evict
// between the moment its length is read and the moment Stats returns),
// which is acceptable for a dashboard/metrics snapshot.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	var buckets []*bucket
	for _, byFeature := range s.series {
		for _, b := range byFeature {
			buckets = append(buckets, b)
		}
	}
	stats := StoreStats{Instruments: len(s.series), Series: len(buckets)}
	s.mu.RUnlock()

	for _, b := range buckets {
		stats.Points += b.len()
	}
	return stats
}

// LatestPrice is a convenience read of an instrument's most recent
// mid_price as of asOf. No feature's calculate() uses it (features go
// through ReadFeatures like every other source).
func (s *Store) LatestPrice(instrument types.Instrument, asOf types.Timestamp) (decimal.Decimal, bool) {
	inst := s.interner.intern(instrument)
	b, ok := s.getBucket(inst, types.MidPrice)
	if !ok {
		return decimal.Zero, false
	}
	p, found := b.latest(asOf)
	if !found {
		return decimal.Zero, false
	}
	return p.Value, true
}
