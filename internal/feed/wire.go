package feed

import (
	"github.com/shopspring/decimal"

	"featuregraph/pkg/types"
)

// Source identifies every Tick this package ingests, regardless of
// whether it arrived via REST poll or WebSocket push.
const Source types.Source = "demo_feed"

// TickMessage and TradeMessage are the wire shapes the demo feed's REST
// and WebSocket transports decode into, before being converted to
// types.Tick / types.Trade for ingestion. Kept distinct from the domain
// types so a transport-format change never touches pkg/types.
type TickMessage struct {
	EventType  string          `json:"event_type"`
	Venue      string          `json:"venue"`
	Base       string          `json:"base"`
	Quote      string          `json:"quote"`
	TickID     uint64          `json:"tick_id"`
	EventTime  int64           `json:"event_time_unix_ms"`
	BidPrice   decimal.Decimal `json:"bid_price"`
	BidQty     decimal.Decimal `json:"bid_qty"`
	AskPrice   decimal.Decimal `json:"ask_price"`
	AskQty     decimal.Decimal `json:"ask_qty"`
}

type TradeMessage struct {
	EventType string          `json:"event_type"`
	Venue     string          `json:"venue"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	TradeID   uint64          `json:"trade_id"`
	EventTime int64           `json:"event_time_unix_ms"`
	Price     decimal.Decimal `json:"price"`
	Qty       decimal.Decimal `json:"qty"`
	Side      string          `json:"side"`
	Aggregated bool           `json:"aggregated"`
}
