package catalog

import "featuregraph/pkg/types"

// EMA computes alpha*x_t + (1-alpha)*EMA_{t-1}, alpha = 2/(periods+1).
// Seeding rule: if no prior EMA value exists in the store under this
// node's own output id, the seed is the arithmetic mean of the queried
// window — resolved here as a second, self-referential Latest data
// request rather than hidden per-node state, so Calculate stays a pure
// function of its queried inputs (spec.md §4.2's "pure, no hidden state").
type EMA struct {
	id      types.NodeId
	sources []types.NodeId
	from    types.NodeId
	input   types.FeatureId
	query   types.QueryType
	output  types.FeatureId
	alpha   float64
}

// NewEMA builds an EMA node over `periods`, reading input from node
// `from`'s output feature `inputFeature` under `query`.
func NewEMA(id types.NodeId, from types.NodeId, inputFeature types.FeatureId, query types.QueryType, periods int, output types.FeatureId) *EMA {
	return &EMA{
		id:      id,
		sources: []types.NodeId{from},
		from:    from,
		input:   inputFeature,
		query:   query,
		output:  output,
		alpha:   2.0 / (float64(periods) + 1.0),
	}
}

func (e *EMA) ID() types.NodeId        { return e.id }
func (e *EMA) Sources() []types.NodeId { return e.sources }

func (e *EMA) DataRequests() []types.FeatureDataRequest {
	return []types.FeatureDataRequest{
		{Source: e.input, Query: e.query},
		{Source: e.output, Query: types.Latest()},
	}
}

func (e *EMA) Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error) {
	if prior, ok := data.Latest(e.output); ok {
		priorF, _ := prior.Float64()
		latestInput, ok := data.Latest(e.input)
		if !ok {
			// the input series is empty here, so its mean is NaN and the
			// result is NaN (which the store does not persist).
			mean := data.Mean(e.input)
			return map[types.FeatureId]float64{e.output: e.alpha*mean + (1-e.alpha)*priorF}, nil
		}
		inputF, _ := latestInput.Float64()
		return map[types.FeatureId]float64{e.output: e.alpha*inputF + (1-e.alpha)*priorF}, nil
	}

	// no prior EMA: seed with the arithmetic mean of the queried window.
	mean := data.Mean(e.input)
	return map[types.FeatureId]float64{e.output: mean}, nil
}
