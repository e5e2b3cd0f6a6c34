package catalog

import "featuregraph/pkg/types"

// Volume sums its input quantity series over a trailing window.
type Volume struct {
	id      types.NodeId
	sources []types.NodeId
	from    types.NodeId
	input   types.FeatureId
	window  types.QueryType
	output  types.FeatureId
}

func NewVolume(id types.NodeId, from types.NodeId, input types.FeatureId, window types.QueryType, output types.FeatureId) *Volume {
	return &Volume{
		id:      id,
		sources: []types.NodeId{from},
		from:    from,
		input:   input,
		window:  window,
		output:  output,
	}
}

func (v *Volume) ID() types.NodeId        { return v.id }
func (v *Volume) Sources() []types.NodeId { return v.sources }

func (v *Volume) DataRequests() []types.FeatureDataRequest {
	return []types.FeatureDataRequest{{Source: v.input, Query: v.window}}
}

func (v *Volume) Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error) {
	sum, _ := data.Sum(v.input)
	f, _ := sum.Float64()
	return map[types.FeatureId]float64{v.output: f}, nil
}
