package store

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"featuregraph/internal/config"
	"featuregraph/pkg/types"
)

func testInstrument() types.Instrument {
	return types.NewSpot("demo", "BTC", "USD")
}

func newTestStore() *Store {
	return New(config.StoreConfig{})
}

func TestIngestTickPopulatesAllFiveBaseIdentifiers(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	ts := time.Unix(1, 0)

	tick := types.NewTick(ts, inst, 1, decimal.NewFromInt(99), decimal.NewFromInt(5), decimal.NewFromInt(101), decimal.NewFromInt(7), "test")
	s.IngestTick(tick)

	resp := s.ReadFeatures(inst, time.Unix(2, 0), []types.FeatureDataRequest{
		{Source: types.BidPrice, Query: types.Latest()},
		{Source: types.AskPrice, Query: types.Latest()},
		{Source: types.BidQty, Query: types.Latest()},
		{Source: types.AskQty, Query: types.Latest()},
		{Source: types.MidPrice, Query: types.Latest()},
	})

	bid, ok := resp.Latest(types.BidPrice)
	if !ok || !bid.Equal(decimal.NewFromInt(99)) {
		t.Errorf("bid_price = %v, ok=%v, want 99", bid, ok)
	}
	ask, ok := resp.Latest(types.AskPrice)
	if !ok || !ask.Equal(decimal.NewFromInt(101)) {
		t.Errorf("ask_price = %v, ok=%v, want 101", ask, ok)
	}
	mid, ok := resp.Latest(types.MidPrice)
	if !ok || !mid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mid_price = %v, ok=%v, want 100", mid, ok)
	}
}

func TestIngestTradePopulatesTradePriceAndQty(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	ts := time.Unix(1, 0)

	s.IngestTrade(types.Trade{EventTime: ts, Instrument: inst, TradeID: 1, Price: decimal.NewFromInt(50), Qty: decimal.NewFromInt(2), Side: types.Buy})

	resp := s.ReadFeatures(inst, time.Unix(2, 0), []types.FeatureDataRequest{
		{Source: types.TradePrice, Query: types.Latest()},
		{Source: types.TradeQty, Query: types.Latest()},
	})

	price, ok := resp.Latest(types.TradePrice)
	if !ok || !price.Equal(decimal.NewFromInt(50)) {
		t.Errorf("trade_price = %v, ok=%v, want 50", price, ok)
	}
}

func TestIngestAggTradeIsDistinctFromIngestTrade(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	ts := time.Unix(1, 0)

	s.IngestTrade(types.Trade{EventTime: ts, Instrument: inst, Price: decimal.NewFromInt(10), Qty: decimal.NewFromInt(1)})
	s.IngestAggTrade(types.Trade{EventTime: ts, Instrument: inst, Price: decimal.NewFromInt(20), Qty: decimal.NewFromInt(2)})

	resp := s.ReadFeatures(inst, time.Unix(2, 0), []types.FeatureDataRequest{
		{Source: types.TradePrice, Query: types.Latest()},
		{Source: types.AggTradePrice, Query: types.Latest()},
	})

	trade, _ := resp.Latest(types.TradePrice)
	agg, _ := resp.Latest(types.AggTradePrice)
	if !trade.Equal(decimal.NewFromInt(10)) || !agg.Equal(decimal.NewFromInt(20)) {
		t.Errorf("trade_price=%v agg_trade_price=%v, want 10 and 20 kept separate", trade, agg)
	}
}

func TestAddFeatureStoresFiniteValue(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	ts := time.Unix(1, 0)

	s.AddFeature(types.FeatureEvent{Instrument: inst, FeatureId: "sma_20", EventTime: ts, Value: 42.5})

	resp := s.ReadFeatures(inst, time.Unix(2, 0), []types.FeatureDataRequest{{Source: "sma_20", Query: types.Latest()}})
	got, ok := resp.Latest("sma_20")
	if !ok {
		t.Fatal("expected sma_20 to be readable after AddFeature")
	}
	f, _ := got.Float64()
	if f != 42.5 {
		t.Errorf("sma_20 = %v, want 42.5", f)
	}
}

func TestAddFeatureSkipsNaNAndInf(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	ts := time.Unix(1, 0)

	s.AddFeature(types.FeatureEvent{Instrument: inst, FeatureId: "vwap_60s", EventTime: ts, Value: math.NaN()})
	s.AddFeature(types.FeatureEvent{Instrument: inst, FeatureId: "vwap_60s", EventTime: ts.Add(time.Second), Value: math.Inf(1)})

	resp := s.ReadFeatures(inst, time.Unix(10, 0), []types.FeatureDataRequest{{Source: "vwap_60s", Query: types.Latest()}})
	if _, ok := resp.Latest("vwap_60s"); ok {
		t.Error("NaN/Inf feature values should not be queryable back out of the store")
	}
}

func TestReadFeaturesOnUnknownSourceReturnsEmptyNotError(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()

	resp := s.ReadFeatures(inst, time.Unix(1, 0), []types.FeatureDataRequest{{Source: "never_ingested", Query: types.Latest()}})
	if _, ok := resp.Latest("never_ingested"); ok {
		t.Error("expected absent, not a stray value, for a source that was never ingested")
	}
}

func TestLatestPriceReflectsMostRecentTick(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()

	s.IngestTick(types.NewTick(time.Unix(1, 0), inst, 1, decimal.NewFromInt(10), decimal.NewFromInt(1), decimal.NewFromInt(20), decimal.NewFromInt(1), "test"))
	s.IngestTick(types.NewTick(time.Unix(2, 0), inst, 2, decimal.NewFromInt(30), decimal.NewFromInt(1), decimal.NewFromInt(40), decimal.NewFromInt(1), "test"))

	price, ok := s.LatestPrice(inst, time.Unix(3, 0))
	if !ok || !price.Equal(decimal.NewFromInt(35)) {
		t.Errorf("LatestPrice = %v, ok=%v, want 35", price, ok)
	}
}

func TestLatestPriceAbsentForUnknownInstrument(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	if _, ok := s.LatestPrice(testInstrument(), time.Unix(1, 0)); ok {
		t.Error("expected absent for an instrument never ingested")
	}
}

func TestRetentionEvictsExpiredTickData(t *testing.T) {
	t.Parallel()
	s := New(config.StoreConfig{TickRetention: 5 * time.Second})
	inst := testInstrument()

	s.IngestTick(types.NewTick(time.Unix(0, 0), inst, 1, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), "test"))
	s.IngestTick(types.NewTick(time.Unix(100, 0), inst, 2, decimal.NewFromInt(5), decimal.NewFromInt(1), decimal.NewFromInt(5), decimal.NewFromInt(1), "test"))

	resp := s.ReadFeatures(inst, time.Unix(101, 0), []types.FeatureDataRequest{{Source: types.BidPrice, Query: types.Periods(10)}})
	points := resp.Values(types.BidPrice)
	if len(points) != 1 {
		t.Fatalf("expected the t=0 tick to be evicted under 5s retention, got %d points: %v", len(points), points)
	}
}

func TestStatsCountsInstrumentsSeriesAndPoints(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	inst := testInstrument()
	other := types.NewSpot("demo", "ETH", "USD")

	s.IngestTick(types.NewTick(time.Unix(1, 0), inst, 1, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), "test"))
	s.IngestTick(types.NewTick(time.Unix(2, 0), inst, 2, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), "test"))
	s.IngestTick(types.NewTick(time.Unix(1, 0), other, 3, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1), "test"))

	stats := s.Stats()
	if stats.Instruments != 2 {
		t.Errorf("Instruments = %d, want 2", stats.Instruments)
	}
	if stats.Series != 10 {
		t.Errorf("Series = %d, want 10 (5 base identifiers x 2 instruments)", stats.Series)
	}
	if stats.Points != 15 {
		t.Errorf("Points = %d, want 15 (5 series x 2 points for inst, 5 series x 1 point for other)", stats.Points)
	}
}

func TestStatsOnEmptyStoreIsZero(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	stats := s.Stats()
	if stats.Instruments != 0 || stats.Series != 0 || stats.Points != 0 {
		t.Errorf("Stats() = %+v, want all zero", stats)
	}
}
