// Package models defines the value objects exchanged between the option
// recommendation engine, the reviewer, and the external data providers.
// All entities are point-in-time values scoped to one (symbol, as-of date)
// run; nothing in this package carries state between runs.
package models

import "time"

// Mode selects how aggressive the decision engine and reviewer are.
type Mode string

const (
	ModeStrict        Mode = "strict"
	ModeOpportunistic Mode = "opportunistic"
	ModeSpeculative   Mode = "speculative"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeStrict, ModeOpportunistic, ModeSpeculative:
		return true
	}
	return false
}

// Side identifies the option leg type using NSE conventions.
type Side string

const (
	SideCall Side = "CE"
	SidePut  Side = "PE"
)

// Bias is the directional view behind a recommendation.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// Instrument identifies what a recommendation trades.
type Instrument string

const (
	InstrumentOption Instrument = "OPTION"
	InstrumentNone   Instrument = "NONE"
)

// Action is the recommended action for a symbol.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
)

// UnderlyingSnapshot is a point-in-time spot observation for one symbol.
type UnderlyingSnapshot struct {
	Symbol     string
	Spot       float64
	ObservedAt time.Time
}

// OptionChainRow is one contract's end-of-day facts. Bid/Ask, day range,
// volume, OI and IV are best-effort vendor fields; zero means absent.
type OptionChainRow struct {
	Strike   float64
	Expiry   time.Time
	Side     Side
	LTP      float64
	Bid      float64
	Ask      float64
	DayHigh  float64
	DayLow   float64
	Volume   float64
	OI       float64
	OIChange float64
	IV       float64 // vendor-quoted, as a fraction
}

// SignalRow is the per-symbol directional feature bundle produced by the
// upstream model for one as-of date. Absent fields are zero and the engine
// degrades gracefully (e.g. zero soft scores disable the range-regime branch).
type SignalRow struct {
	Ticker         string  `csv:"ticker"`
	BuyWin         int     `csv:"buy_win"`
	SellWin        int     `csv:"sell_win"`
	BuySoft        float64 `csv:"buy_soft"`
	SellSoft       float64 `csv:"sell_soft"`
	DirectionScore float64 `csv:"direction_score"` // roughly [-1, 1]
	ATRPoints      float64 `csv:"atr_points"`
	ATRPct         float64 `csv:"atr_pct"`
	AnnualizedVol  float64 `csv:"volatility_annualized"`
	FIISentiment   float64 `csv:"fii_sentiment"` // [-1, 1]
	SmartMoney     float64 `csv:"smart_money"`   // [-1, 1]
	PutCallRatio   float64 `csv:"pcr"`
	BulkDeal       bool    `csv:"bulk_deal"`
}
