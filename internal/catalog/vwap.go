package catalog

import (
	"math"

	"github.com/shopspring/decimal"

	"featuregraph/pkg/types"
)

// VWAP computes sum(price*qty)/sum(qty) over a trailing window; NaN if the
// quantity sum is zero.
type VWAP struct {
	id         types.NodeId
	sources    []types.NodeId
	priceFrom  types.NodeId
	qtyFrom    types.NodeId
	priceInput types.FeatureId
	qtyInput   types.FeatureId
	window     types.QueryType
	output     types.FeatureId
}

// NewVWAP builds a VWAP node over a Window query shared by both inputs.
func NewVWAP(id types.NodeId, priceFrom, qtyFrom types.NodeId, priceInput, qtyInput types.FeatureId, window types.QueryType, output types.FeatureId) *VWAP {
	sources := []types.NodeId{priceFrom}
	if qtyFrom != priceFrom {
		sources = append(sources, qtyFrom)
	}
	return &VWAP{
		id:         id,
		sources:    sources,
		priceFrom:  priceFrom,
		qtyFrom:    qtyFrom,
		priceInput: priceInput,
		qtyInput:   qtyInput,
		window:     window,
		output:     output,
	}
}

func (v *VWAP) ID() types.NodeId        { return v.id }
func (v *VWAP) Sources() []types.NodeId { return v.sources }

func (v *VWAP) DataRequests() []types.FeatureDataRequest {
	return []types.FeatureDataRequest{
		{Source: v.priceInput, Query: v.window},
		{Source: v.qtyInput, Query: v.window},
	}
}

func (v *VWAP) Calculate(data types.FeatureDataResponse) (map[types.FeatureId]float64, error) {
	prices := data.Values(v.priceInput)
	qtys := data.Values(v.qtyInput)

	n := len(prices)
	if len(qtys) < n {
		n = len(qtys)
	}

	sumPQ := decimal.Zero
	sumQ := decimal.Zero
	for i := 0; i < n; i++ {
		sumPQ = sumPQ.Add(prices[i].Mul(qtys[i]))
		sumQ = sumQ.Add(qtys[i])
	}

	if sumQ.IsZero() {
		return map[types.FeatureId]float64{v.output: math.NaN()}, nil
	}
	vwap, _ := sumPQ.Div(sumQ).Float64()
	return map[types.FeatureId]float64{v.output: vwap}, nil
}
