package models

import "time"

// DateFormat is the wire format for calendar dates in reports and CSVs.
const DateFormat = "2006-01-02"

// Target is one profit target for a long premium position. Underlying is a
// display-only level derived from ATR; Premium is the actionable target.
type Target struct {
	Premium    float64 `json:"premium"`
	Underlying float64 `json:"underlying,omitempty"`
}

// Diagnostics is the fixed record of optional numeric facts behind a
// recommendation. Pointer fields are nil when the fact was unavailable.
type Diagnostics struct {
	BuyWin         *int     `json:"buy_win,omitempty"`
	SellWin        *int     `json:"sell_win,omitempty"`
	BuySoft        *float64 `json:"buy_soft,omitempty"`
	SellSoft       *float64 `json:"sell_soft,omitempty"`
	DirectionScore *float64 `json:"direction_score,omitempty"`
	Edge           *float64 `json:"edge,omitempty"`
	ATRPoints      *float64 `json:"atr_points,omitempty"`
	ATRPct         *float64 `json:"atr_pct,omitempty"`
	CandidateScore *float64 `json:"candidate_score,omitempty"`
	OI             *float64 `json:"oi,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	AnnualizedVol  *float64 `json:"volatility_annualized,omitempty"`
	FIISentiment   *float64 `json:"fii_sentiment,omitempty"`
	SmartMoney     *float64 `json:"smart_money,omitempty"`
	PutCallRatio   *float64 `json:"pcr,omitempty"`
	OIWallStrike   *float64 `json:"oi_wall_strike,omitempty"`
	ThetaBurnDays  *float64 `json:"theta_burn_days,omitempty"`
	LLMConfAdjust  *float64 `json:"llm_confidence_adj,omitempty"`
}

// RangeLeg is one leg of an advisory non-directional suggestion.
type RangeLeg struct {
	Side   Side    `json:"side"`
	Strike float64 `json:"strike"`
	Expiry string  `json:"expiry"`
	LTP    float64 `json:"ltp,omitempty"`
}

// RangeSuggestion is an advisory straddle with an alternate strangle. It is
// attached to a HOLD recommendation; the engine never emits it as an
// executable single-leg trade.
type RangeSuggestion struct {
	Straddle []RangeLeg `json:"straddle"`
	Strangle []RangeLeg `json:"strangle"`
	SellBy   string     `json:"sell_by"`
	Note     string     `json:"note,omitempty"`
}

// OptionReco is the engine's output for one (symbol, as-of date).
//
// Invariants: Action==ActionHold implies Strike/Expiry/Entry/Targets are
// unset; Action==ActionBuy implies all pricing fields are present, Entry >
// StopLoss, and AsOf <= SellBy <= Expiry-1d.
type OptionReco struct {
	AsOf        time.Time        `json:"-"`
	AsOfDate    string           `json:"as_of"`
	Symbol      string           `json:"symbol"`
	Bias        Bias             `json:"bias"`
	Instrument  Instrument       `json:"instrument"`
	Action      Action           `json:"action"`
	Side        Side             `json:"side,omitempty"`
	Expiry      time.Time        `json:"-"`
	ExpiryDate  string           `json:"expiry,omitempty"`
	Strike      float64          `json:"strike,omitempty"`
	EntryPrice  float64          `json:"entry_price,omitempty"`
	StopLoss    float64          `json:"sl_premium,omitempty"`
	Targets     []Target         `json:"targets,omitempty"`
	Confidence  float64          `json:"confidence"`
	Rationale   []string         `json:"rationale"`
	Diag        Diagnostics      `json:"diagnostics"`
	Spot        float64          `json:"spot,omitempty"`
	IV          *float64         `json:"iv,omitempty"` // percent, e.g. 24.5
	DTE         int              `json:"dte,omitempty"`
	ThetaPerDay *float64         `json:"theta_per_day,omitempty"`
	Delta       *float64         `json:"delta,omitempty"`
	Extrinsic   *float64         `json:"extrinsic,omitempty"`
	SellBy      time.Time        `json:"-"`
	SellByDate  string           `json:"sell_by,omitempty"`
	Breakeven   float64          `json:"breakeven,omitempty"`
	RangeTrade  *RangeSuggestion `json:"range_trade,omitempty"`
}

// Rejection records why the reviewer refused a recommendation.
type Rejection struct {
	Symbol string  `json:"symbol"`
	Side   Side    `json:"side,omitempty"`
	Strike float64 `json:"strike,omitempty"`
	Expiry string  `json:"expiry,omitempty"`
	Reason string  `json:"reason"`
}

// ReviewResult is one batch's review outcome. Both lists preserve the input
// ordering; approved recommendations are forwarded unchanged.
type ReviewResult struct {
	Approved      []OptionReco `json:"approved"`
	Rejected      []Rejection  `json:"rejected"`
	EffectiveMode Mode         `json:"effective_mode"`
	RegimeNote    string       `json:"regime_note,omitempty"`
}

// FloatPtr returns a pointer to v, for populating optional fields.
func FloatPtr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v, for populating optional fields.
func IntPtr(v int) *int { return &v }
