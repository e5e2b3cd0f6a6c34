package types

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// FeatureId names a time-series output; NodeId names a computation node.
// Conventionally equal but kept as distinct types because one node may
// produce several named outputs (e.g. a Bollinger-style node could emit
// both an upper and lower band under two FeatureIds).
type FeatureId string
type NodeId string

// FeatureEvent is the unit written back to the State Store after a node
// computes: (feature-id, instrument, event-time, value). Value is a
// 64-bit float — the only point at which decimal precision is traded for
// the float math downstream statistical consumers expect.
type FeatureEvent struct {
	FeatureId  FeatureId
	Instrument Instrument
	EventTime  Timestamp
	Value      float64
}

// QueryKind enumerates the State Store's three query shapes, exhaustively.
type QueryKind int

const (
	QueryLatest QueryKind = iota
	QueryWindow
	QueryPeriods
)

// QueryType carries the query shape plus its one parameter (a duration for
// Window, a count for Periods; Latest needs neither).
type QueryType struct {
	Kind    QueryKind
	Window  time.Duration
	Periods int
}

func Latest() QueryType               { return QueryType{Kind: QueryLatest} }
func Window(d time.Duration) QueryType { return QueryType{Kind: QueryWindow, Window: d} }
func Periods(n int) QueryType          { return QueryType{Kind: QueryPeriods, Periods: n} }

// FeatureDataRequest names one source a node wants queried: which
// FeatureId (or base identifier) to read, and under which QueryType.
type FeatureDataRequest struct {
	Source FeatureId
	Query  QueryType
}

// FeaturePoint is a single decimal observation returned for a source,
// carrying its composite key so a node can reconstruct ordering if needed.
type FeaturePoint struct {
	Key   CompositeKey
	Value decimal.Decimal
}

// FeatureDataResponse is the State Store's answer to read_features: for
// each requested source, the ordered sequence of points satisfying its
// query. Ascending key order within each source, per spec.md §4.1.
type FeatureDataResponse struct {
	Series map[FeatureId][]FeaturePoint
}

// NewFeatureDataResponse builds an empty response ready to be populated.
func NewFeatureDataResponse() FeatureDataResponse {
	return FeatureDataResponse{Series: make(map[FeatureId][]FeaturePoint)}
}

// Count returns the number of points returned for a source (0 if absent).
func (r FeatureDataResponse) Count(id FeatureId) int {
	return len(r.Series[id])
}

// Sum returns the decimal sum of a source's values, and whether any points
// were present at all.
func (r FeatureDataResponse) Sum(id FeatureId) (decimal.Decimal, bool) {
	points := r.Series[id]
	if len(points) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, p := range points {
		sum = sum.Add(p.Value)
	}
	return sum, true
}

// Mean returns the arithmetic mean of a source's values as a float64, or
// NaN if there are no points — matching the SMA/EMA-seed NaN-on-empty rule
// in spec.md §4.2.
func (r FeatureDataResponse) Mean(id FeatureId) float64 {
	points := r.Series[id]
	if len(points) == 0 {
		return math.NaN()
	}
	sum, _ := r.Sum(id)
	f, _ := sum.Float64()
	return f / float64(len(points))
}

// Latest returns the single most recent value for a source (the last
// element of its ordered sequence), and whether one exists.
func (r FeatureDataResponse) Latest(id FeatureId) (decimal.Decimal, bool) {
	points := r.Series[id]
	if len(points) == 0 {
		return decimal.Zero, false
	}
	return points[len(points)-1].Value, true
}

// Values returns the ordered decimal values for a source (for features
// that need the full series, not just an aggregate).
func (r FeatureDataResponse) Values(id FeatureId) []decimal.Decimal {
	points := r.Series[id]
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
