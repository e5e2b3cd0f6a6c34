package catalog

import (
	"fmt"
	"time"

	"featuregraph/internal/config"
	"featuregraph/pkg/types"
)

// resolveInput turns a config.InputRef into the (producer NodeId, source
// FeatureId, QueryType) triple a feature node needs. An empty `From`
// means the input is a base identifier, produced by ingestion directly
// rather than by another node — the caller passes that NodeId through
// unresolved to the pipeline's edge-building pass, which skips base ids.
func resolveInput(ref config.InputRef, windowSecs int) (types.NodeId, types.FeatureId, types.QueryType) {
	from := ref.From
	featureID := types.FeatureId(ref.FeatureId)
	if from == "" {
		from = ref.FeatureId // base identifiers are their own "producer" name for edge-skipping
	}

	var query types.QueryType
	switch {
	case ref.Periods > 0:
		query = types.Periods(ref.Periods)
	case windowSecs > 0:
		query = types.Window(time.Duration(windowSecs) * time.Second)
	default:
		query = types.Latest()
	}
	return types.NodeId(from), featureID, query
}

// FromConfig instantiates the Feature for one FeatureConfig entry.
// Grounded on original_source/arkin/src/pipeline.rs's
// FeatureFactory::from_config dispatch over the FeatureConfig enum,
// generalized from petgraph's enum-of-structs to a Go switch returning
// the shared Feature interface.
func FromConfig(fc config.FeatureConfig) (Feature, error) {
	id := types.NodeId(fc.Id)
	output := types.FeatureId(fc.Output)
	if output == "" {
		output = types.FeatureId(fc.Id)
	}

	switch fc.Kind {
	case "sma":
		from, featureID, query := resolveInput(fc.Input, fc.WindowSecs)
		return NewSMA(id, from, featureID, query, output), nil

	case "ema":
		from, featureID, query := resolveInput(fc.Input, fc.WindowSecs)
		periods := fc.Input.Periods
		if periods == 0 {
			return nil, fmt.Errorf("feature %q: ema requires input.periods", fc.Id)
		}
		return NewEMA(id, from, featureID, query, periods, output), nil

	case "vwap":
		priceFrom, priceFeature, _ := resolveInput(fc.PriceInput, fc.WindowSecs)
		qtyFrom, qtyFeature, _ := resolveInput(fc.QtyInput, fc.WindowSecs)
		if fc.WindowSecs <= 0 {
			return nil, fmt.Errorf("feature %q: vwap requires window_secs > 0", fc.Id)
		}
		window := types.Window(time.Duration(fc.WindowSecs) * time.Second)
		return NewVWAP(id, priceFrom, qtyFrom, priceFeature, qtyFeature, window, output), nil

	case "volume":
		from, featureID, _ := resolveInput(fc.QtyInput, fc.WindowSecs)
		if fc.WindowSecs <= 0 {
			return nil, fmt.Errorf("feature %q: volume requires window_secs > 0", fc.Id)
		}
		window := types.Window(time.Duration(fc.WindowSecs) * time.Second)
		return NewVolume(id, from, featureID, window, output), nil

	case "spread":
		if fc.Front == "" || fc.Back == "" {
			return nil, fmt.Errorf("feature %q: spread requires front and back", fc.Id)
		}
		return NewSpread(id, types.NodeId(fc.Front), types.NodeId(fc.Back), output), nil

	default:
		return nil, fmt.Errorf("feature %q: unknown kind %q", fc.Id, fc.Kind)
	}
}

// FromConfigs instantiates every feature in order, preserving declaration
// order for the engine's deterministic tie-breaking.
func FromConfigs(fcs []config.FeatureConfig) ([]Feature, error) {
	features := make([]Feature, 0, len(fcs))
	for _, fc := range fcs {
		f, err := FromConfig(fc)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
