package engine

import (
	"math"
	"time"
)

// sellByDate computes the time-boxed exit date. When theta and a positive
// extrinsic are known, it is the day the theta-burn budget (a configured
// fraction of extrinsic) runs out, clipped to [1, DTE]; otherwise a
// staircase on DTE. Either way the result lands in [as_of, expiry-1], and
// the expiry-week guard overrides everything to as_of. burnDays is the
// theta-derived horizon when it was used, else 0.
func (e *Engine) sellByDate(asOf, expiry time.Time, dte int, greeksOK bool, thetaPerDay, extrinsic float64, forceIntraday bool) (time.Time, int) {
	if forceIntraday {
		return asOf, 0
	}

	if greeksOK && thetaPerDay != 0 && extrinsic > 0 {
		budget := e.cfg.ThetaBurnBudget * extrinsic
		days := int(math.Floor(budget / math.Abs(thetaPerDay)))
		if days < 1 {
			days = 1
		}
		if days > dte {
			days = dte
		}
		return clampSellBy(asOf, expiry, asOf.AddDate(0, 0, days)), days
	}

	return staircaseSellBy(asOf, expiry, dte), 0
}

// staircaseSellBy is the fallback horizon: same-day for imminent expiries,
// one extra day up to DTE 5, two days beyond that.
func staircaseSellBy(asOf, expiry time.Time, dte int) time.Time {
	var plus int
	switch {
	case dte <= 2:
		plus = 0
	case dte <= 5:
		plus = 1
	default:
		plus = 2
	}
	return clampSellBy(asOf, expiry, asOf.AddDate(0, 0, plus))
}

// clampSellBy bounds a candidate sell-by to [asOf, expiry-1].
func clampSellBy(asOf, expiry, sellBy time.Time) time.Time {
	cap := expiry.AddDate(0, 0, -1)
	if sellBy.After(cap) {
		sellBy = cap
	}
	if sellBy.Before(asOf) {
		sellBy = asOf
	}
	return sellBy
}
