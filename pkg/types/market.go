package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the aggressor side of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Source identifies the venue/ingestor that produced a Tick.
type Source string

// Tick is a single quote update for an instrument. Prices and quantities
// are decimal.Decimal, never float64 — monetary math stays exact end to
// end until a feature's calculate() crosses to float64 (SPEC_FULL.md §3).
type Tick struct {
	ReceivedTime Timestamp
	EventTime    Timestamp
	Instrument   Instrument
	TickID       uint64
	BidPrice     decimal.Decimal
	BidQty       decimal.Decimal
	AskPrice     decimal.Decimal
	AskQty       decimal.Decimal
	Source       Source
}

// MidPrice returns (bid+ask)/2, the canonical base identifier mid_price.
func (t Tick) MidPrice() decimal.Decimal {
	return t.BidPrice.Add(t.AskPrice).Div(decimal.NewFromInt(2))
}

// Trade is a single execution print for an instrument.
type Trade struct {
	EventTime  Timestamp
	Instrument Instrument
	TradeID    uint64
	Price      decimal.Decimal
	Qty        decimal.Decimal
	Side       Side
}

// NewTick is a convenience constructor mirroring the field order ingestion
// collaborators naturally produce ticks in.
func NewTick(eventTime time.Time, instrument Instrument, tickID uint64, bidPrice, bidQty, askPrice, askQty decimal.Decimal, source Source) Tick {
	return Tick{
		ReceivedTime: time.Now().UTC(),
		EventTime:    eventTime,
		Instrument:   instrument,
		TickID:       tickID,
		BidPrice:     bidPrice,
		BidQty:       bidQty,
		AskPrice:     askPrice,
		AskQty:       askQty,
		Source:       source,
	}
}
