// Package pricing implements European Black-Scholes valuation, a bisection
// implied-volatility solver, Greeks and intrinsic/extrinsic decomposition.
//
// NSE index/stock options are not perfectly European, but this is good
// enough for sizing theta burn and IV sensitivity heuristics at EOD.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vinnzy/stockreco/internal/models"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Implied-vol solver bounds and termination, 0.01% to 500% annualized.
const (
	ivLow      = 1e-4
	ivHigh     = 5.0
	ivMaxIter  = 60
	ivPriceTol = 1e-6
)

// Price returns the Black-Scholes value of a European option. Degenerate
// inputs (expired, zero vol) price at exact intrinsic value rather than
// dividing by zero; non-positive spot or strike prices at zero.
func Price(spot, strike, rate, timeYears, vol float64, side models.Side) float64 {
	if spot <= 0 || strike <= 0 {
		return 0
	}
	if timeYears <= 0 || vol <= 0 {
		intrinsic, _ := IntrinsicExtrinsic(spot, strike, 0, side)
		return intrinsic
	}
	sqrtT := math.Sqrt(timeYears)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*timeYears) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	if side == models.SideCall {
		return spot*stdNormal.CDF(d1) - strike*math.Exp(-rate*timeYears)*stdNormal.CDF(d2)
	}
	return strike*math.Exp(-rate*timeYears)*stdNormal.CDF(-d2) - spot*stdNormal.CDF(-d1)
}

// ImpliedVol solves for the volatility that reproduces premium by bisection
// over [1e-4, 5.0]. If even the upper bound prices below the premium, the
// upper bound is returned (saturation, not failure). Exhausting the
// iteration budget returns the best current midpoint; callers must treat
// the result as a best-effort estimate. ok is false only when premium,
// spot, strike or timeYears is non-positive.
func ImpliedVol(premium, spot, strike, timeYears, rate float64, side models.Side) (iv float64, ok bool) {
	if premium <= 0 || spot <= 0 || strike <= 0 || timeYears <= 0 {
		return 0, false
	}
	if Price(spot, strike, rate, timeYears, ivHigh, side) < premium {
		return ivHigh, true
	}
	lo, hi := ivLow, ivHigh
	mid := 0.5 * (lo + hi)
	for i := 0; i < ivMaxIter; i++ {
		mid = 0.5 * (lo + hi)
		price := Price(spot, strike, rate, timeYears, mid, side)
		if math.Abs(price-premium) < ivPriceTol {
			return mid, true
		}
		if price > premium {
			hi = mid
		} else {
			lo = mid
		}
	}
	return mid, true
}

// Greeks holds first-order sensitivities. Theta is reported per calendar
// day; Vega is per unit of volatility (1.00 = 100 vol points).
type Greeks struct {
	IV          float64
	Delta       float64
	Gamma       float64
	Vega        float64
	ThetaPerDay float64
	Rho         float64
}

// ComputeGreeks returns Black-Scholes Greeks. ok is false for degenerate
// inputs (expired, zero vol, non-positive spot or strike).
func ComputeGreeks(spot, strike, timeYears, rate, vol float64, side models.Side) (Greeks, bool) {
	if spot <= 0 || strike <= 0 || timeYears <= 0 || vol <= 0 {
		return Greeks{}, false
	}
	sqrtT := math.Sqrt(timeYears)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*timeYears) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	pdf := stdNormal.Prob(d1)
	discount := math.Exp(-rate * timeYears)

	var delta, theta, rho float64
	if side == models.SideCall {
		delta = stdNormal.CDF(d1)
		theta = -spot*pdf*vol/(2*sqrtT) - rate*strike*discount*stdNormal.CDF(d2)
		rho = strike * timeYears * discount * stdNormal.CDF(d2)
	} else {
		delta = stdNormal.CDF(d1) - 1
		theta = -spot*pdf*vol/(2*sqrtT) + rate*strike*discount*stdNormal.CDF(-d2)
		rho = -strike * timeYears * discount * stdNormal.CDF(-d2)
	}

	return Greeks{
		IV:          vol,
		Delta:       delta,
		Gamma:       pdf / (spot * vol * sqrtT),
		Vega:        spot * pdf * sqrtT,
		ThetaPerDay: theta / 365.0,
		Rho:         rho,
	}, true
}

// IntrinsicExtrinsic splits a premium into its intrinsic and extrinsic
// parts. Extrinsic is floored at zero for premiums trading below parity.
func IntrinsicExtrinsic(spot, strike, premium float64, side models.Side) (intrinsic, extrinsic float64) {
	if side == models.SideCall {
		intrinsic = math.Max(0, spot-strike)
	} else {
		intrinsic = math.Max(0, strike-spot)
	}
	extrinsic = math.Max(0, premium-intrinsic)
	return intrinsic, extrinsic
}
