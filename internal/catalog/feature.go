// Package catalog implements the built-in feature kinds (SMA, EMA, VWAP,
// Volume, Spread) against the shared Feature contract. Every feature is a
// pure function from a queried FeatureDataResponse to a set of named
// outputs — no I/O, no hidden state — grounded on
// original_source/arkin/src/features/ta/sma.rs's Feature trait shape.
package catalog

import "featuregraph/pkg/types"

// Feature is the contract every node in the pipeline's DAG implements.
// Sources and DataRequests are deliberately distinct: Sources names the
// producer edges the pipeline engine must resolve and schedule against;
// DataRequests names every store query Calculate needs, which may include
// a self-referential Latest query on the node's own output (EMA's seeding
// rule) that must never become a DAG edge.
type Feature interface {
	ID() types.NodeId
	Sources() []types.NodeId
	DataRequests() []types.FeatureDataRequest
	Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error)
}
