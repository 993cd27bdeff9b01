package engine

import (
	"math"
	"sort"
	"time"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/models"
)

// scoredRow is a chain row that survived filtering, with its DTE and score.
type scoredRow struct {
	row   models.OptionChainRow
	dte   int
	score float64
}

// daysToExpiry returns whole calendar days from asOf to expiry, floored at 0.
func daysToExpiry(asOf, expiry time.Time) int {
	a := asOf.Truncate(24 * time.Hour)
	e := expiry.Truncate(24 * time.Hour)
	d := int(e.Sub(a).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// filterCandidates restricts the chain to the chosen side, the mode's DTE
// window, a moneyness band of spot +/- band*ATR, and the liquidity
// minimums. If nothing survives, it relaxes once: any expiry with DTE >= 1
// and half the liquidity minimums. relaxed reports whether the fallback
// pass produced the result.
func (e *Engine) filterCandidates(asOf time.Time, chain []models.OptionChainRow, side models.Side, spot, atrPoints float64, th config.ModeThresholds) (out []scoredRow, relaxed bool) {
	band := th.MoneynessBandATR * atrPoints

	pass := func(minDTE, maxDTE int, minOI, minVolume float64) []scoredRow {
		var rows []scoredRow
		for _, r := range chain {
			if r.Side != side || r.LTP <= 0 {
				continue
			}
			dte := daysToExpiry(asOf, r.Expiry)
			if dte < minDTE || dte > maxDTE {
				continue
			}
			if math.Abs(r.Strike-spot) > band {
				continue
			}
			if r.OI < minOI || r.Volume < minVolume {
				continue
			}
			rows = append(rows, scoredRow{row: r, dte: dte})
		}
		return rows
	}

	out = pass(th.MinDTE, th.MaxDTE, th.MinOI, th.MinVolume)
	if len(out) > 0 {
		return out, false
	}
	return pass(1, math.MaxInt32, th.MinOI/2, th.MinVolume/2), true
}

// applyExpiryGuard enforces the physical-settlement margin window for
// non-index underlyings: when safe expiries (DTE >= margin period) exist,
// danger-zone candidates are dropped; when only danger-zone expiries exist
// they are kept but the position must exit intraday. Index underlyings are
// cash-settled and exempt.
func (e *Engine) applyExpiryGuard(symbol string, candidates []scoredRow) ([]scoredRow, bool) {
	if e.cfg.IsIndex(symbol) {
		return candidates, false
	}
	var safe []scoredRow
	for _, c := range candidates {
		if c.dte >= e.cfg.MarginPeriodDays {
			safe = append(safe, c)
		}
	}
	if len(safe) > 0 {
		return safe, false
	}
	return candidates, true
}

// dteSweetSpot is the DTE at which the selection penalty is zero; nearer
// expiries decay too fast, farther ones overpay for time value.
const dteSweetSpot = 14.0

// pickBest scores every candidate and returns the maximum; ties go to the
// first row encountered. The liquidity bonus is log-scaled so one massive
// OI strike cannot dominate on size alone.
func pickBest(candidates []scoredRow, spot, atrPoints float64) scoredRow {
	best := candidates[0]
	bestSet := false
	for _, c := range candidates {
		dist := math.Abs(c.row.Strike-spot) / math.Max(atrPoints, 1e-9)
		liquidity := 0.10*math.Log10(1+c.row.OI) + 0.05*math.Log10(1+c.row.Volume)
		dtePenalty := 0.02 * math.Abs(float64(c.dte)-dteSweetSpot)
		c.score = -dist + liquidity - dtePenalty
		if !bestSet || c.score > best.score {
			best = c
			bestSet = true
		}
	}
	return best
}

// modalStrikeStep returns the most common positive gap between adjacent
// strikes on either side of the chain, used to size strangle wings. A chain
// with fewer than two strikes falls back to 10 points.
func modalStrikeStep(chain []models.OptionChainRow) float64 {
	seen := make(map[float64]bool)
	var strikes []float64
	for _, r := range chain {
		if !seen[r.Strike] {
			seen[r.Strike] = true
			strikes = append(strikes, r.Strike)
		}
	}
	if len(strikes) < 2 {
		return 10.0
	}
	sort.Float64s(strikes)

	counts := make(map[float64]int)
	mode, modeCount := 0.0, 0
	for i := 1; i < len(strikes); i++ {
		gap := strikes[i] - strikes[i-1]
		if gap <= 0 {
			continue
		}
		counts[gap]++
		if counts[gap] > modeCount {
			mode, modeCount = gap, counts[gap]
		}
	}
	if mode <= 0 {
		return 10.0
	}
	return mode
}
