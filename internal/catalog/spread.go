package catalog

import "featuregraph/pkg/types"

// Spread computes front - back, both queried as Latest.
type Spread struct {
	id      types.NodeId
	sources []types.NodeId
	front   types.NodeId
	back    types.NodeId
	output  types.FeatureId
}

// NewSpread builds a Spread node. front and back name both the producing
// node and its output feature id (spec.md's "conventionally equal" rule).
func NewSpread(id types.NodeId, front, back types.NodeId, output types.FeatureId) *Spread {
	return &Spread{
		id:      id,
		sources: []types.NodeId{front, back},
		front:   front,
		back:    back,
		output:  output,
	}
}

func (s *Spread) ID() types.NodeId        { return s.id }
func (s *Spread) Sources() []types.NodeId { return s.sources }

func (s *Spread) DataRequests() []types.FeatureDataRequest {
	return []types.FeatureDataRequest{
		{Source: types.FeatureId(s.front), Query: types.Latest()},
		{Source: types.FeatureId(s.back), Query: types.Latest()},
	}
}

func (s *Spread) Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error) {
	front, frontOK := data.Latest(types.FeatureId(s.front))
	back, backOK := data.Latest(types.FeatureId(s.back))
	if !frontOK || !backOK {
		return map[types.FeatureId]float64{}, nil // DataInsufficient: emit nothing
	}
	spread, _ := front.Sub(back).Float64()
	return map[types.FeatureId]float64{s.output: spread}, nil
}
