package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/models"
)

// rangeSuggestion builds the advisory straddle/strangle for a range regime:
// weak direction, expanding ATR, two-sided soft signal. The outer action
// stays HOLD; the legs are a suggestion, not an executable single-leg
// trade. ok is false when the chain cannot supply both sides at a usable
// expiry, in which case the caller falls through to the directional path.
func (e *Engine) rangeSuggestion(asOf time.Time, symbol string, sig models.SignalRow, spot, atrPoints float64, chain []models.OptionChainRow, th config.ModeThresholds, diag models.Diagnostics) (models.OptionReco, bool) {
	expiry, ok := nearestTradableExpiry(asOf, chain)
	if !ok {
		return models.OptionReco{}, false
	}
	dte := daysToExpiry(asOf, expiry)

	atm, ok := nearestStrikeBothSides(chain, expiry, spot)
	if !ok {
		return models.OptionReco{}, false
	}

	step := modalStrikeStep(chain)
	wing := math.Round(0.5*atrPoints/step) * step
	if wing < step {
		wing = step
	}

	expiryStr := expiry.Format(models.DateFormat)
	straddle := []models.RangeLeg{
		{Side: models.SideCall, Strike: atm, Expiry: expiryStr, LTP: legLTP(chain, expiry, atm, models.SideCall)},
		{Side: models.SidePut, Strike: atm, Expiry: expiryStr, LTP: legLTP(chain, expiry, atm, models.SidePut)},
	}
	strangle := []models.RangeLeg{
		{Side: models.SideCall, Strike: atm + wing, Expiry: expiryStr, LTP: legLTP(chain, expiry, atm+wing, models.SideCall)},
		{Side: models.SidePut, Strike: atm - wing, Expiry: expiryStr, LTP: legLTP(chain, expiry, atm-wing, models.SidePut)},
	}

	sellBy := staircaseSellBy(asOf, expiry, dte)

	reco := e.hold(asOf, symbol, th.HoldConfidenceFloor, diag,
		fmt.Sprintf("Direction weak (|%.2f| < %.2f) but ATR%% %.3f meets expansion threshold %.3f with two-sided soft signal.",
			sig.DirectionScore, th.MinDirectionScore, sig.ATRPct, th.MinRangeATRPct),
		fmt.Sprintf("Range regime: consider ATM %.0f straddle exp %s, or %.0f/%.0f strangle; exit by %s.",
			atm, expiryStr, atm+wing, atm-wing, sellBy.Format(models.DateFormat)),
	)
	reco.RangeTrade = &models.RangeSuggestion{
		Straddle: straddle,
		Strangle: strangle,
		SellBy:   sellBy.Format(models.DateFormat),
		Note:     "Advisory only; premiums decay fast if the expansion does not arrive.",
	}
	return reco, true
}

// nearestTradableExpiry returns the soonest expiry with DTE >= 1 that
// quotes both sides.
func nearestTradableExpiry(asOf time.Time, chain []models.OptionChainRow) (time.Time, bool) {
	var best time.Time
	found := false
	for _, r := range chain {
		if daysToExpiry(asOf, r.Expiry) < 1 {
			continue
		}
		if !found || r.Expiry.Before(best) {
			best = r.Expiry
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	hasCall, hasPut := false, false
	for _, r := range chain {
		if !r.Expiry.Equal(best) {
			continue
		}
		switch r.Side {
		case models.SideCall:
			hasCall = true
		case models.SidePut:
			hasPut = true
		}
	}
	return best, hasCall && hasPut
}

// nearestStrikeBothSides returns the strike closest to spot that quotes
// both a call and a put at the given expiry.
func nearestStrikeBothSides(chain []models.OptionChainRow, expiry time.Time, spot float64) (float64, bool) {
	sides := make(map[float64]map[models.Side]bool)
	for _, r := range chain {
		if !r.Expiry.Equal(expiry) {
			continue
		}
		if sides[r.Strike] == nil {
			sides[r.Strike] = make(map[models.Side]bool)
		}
		sides[r.Strike][r.Side] = true
	}
	best, bestDist := 0.0, math.MaxFloat64
	found := false
	for strike, s := range sides {
		if !s[models.SideCall] || !s[models.SidePut] {
			continue
		}
		if d := math.Abs(strike - spot); d < bestDist {
			best, bestDist = strike, d
			found = true
		}
	}
	return best, found
}

// legLTP returns the last traded price for an exact leg, zero if unquoted.
func legLTP(chain []models.OptionChainRow, expiry time.Time, strike float64, side models.Side) float64 {
	for _, r := range chain {
		if r.Side == side && r.Strike == strike && r.Expiry.Equal(expiry) {
			return r.LTP
		}
	}
	return 0
}
