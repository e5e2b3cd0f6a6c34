package catalog

import "featuregraph/pkg/types"

// SMA computes the arithmetic mean of its input series. Grounded
// file-for-file on original_source/arkin/src/features/ta/sma.rs's
// SMAFeature: the same from-config construction, the same
// mean-over-count-with-NaN-on-zero rule.
type SMA struct {
	id      types.NodeId
	sources []types.NodeId
	from    types.NodeId
	input   types.FeatureId
	query   types.QueryType
	output  types.FeatureId
}

// NewSMA builds an SMA node reading input from the node `from`'s output
// feature `inputFeature`, queried under `query` (Window or Periods).
func NewSMA(id types.NodeId, from types.NodeId, inputFeature types.FeatureId, query types.QueryType, output types.FeatureId) *SMA {
	return &SMA{
		id:      id,
		sources: []types.NodeId{from},
		from:    from,
		input:   inputFeature,
		query:   query,
		output:  output,
	}
}

func (s *SMA) ID() types.NodeId        { return s.id }
func (s *SMA) Sources() []types.NodeId { return s.sources }

func (s *SMA) DataRequests() []types.FeatureDataRequest {
	return []types.FeatureDataRequest{{Source: s.input, Query: s.query}}
}

func (s *SMA) Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error) {
	mean := data.Mean(s.input) // NaN on zero count, matching sma.rs's count==0 branch
	return map[types.FeatureId]float64{s.output: mean}, nil
}
