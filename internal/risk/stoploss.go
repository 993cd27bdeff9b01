// Package risk converts a maximum-loss budget plus option sensitivities
// into an absolute stop-loss premium for long positions.
package risk

import (
	"math"

	"github.com/vinnzy/stockreco/internal/models"
)

// slFloor is the minimal positive stop-loss premium; NSE quotes tick at 0.05
// but 0.01 keeps the value strictly positive for penny premiums.
const slFloor = 0.01

// DeltaBasedStopLoss returns an absolute stop-loss premium for a long option
// position. It always yields a usable number:
//   - missing/zero delta or non-positive spot falls back to the plain
//     premium-fraction stop entry*(1-maxLossFrac)
//   - deep ITM (high |delta|) tightens the stop, far OTM widens it, with the
//     adjustment clamped to [0.20, 1.25]
//   - large gamma widens the stop by at most 35%
//   - the result never reaches entry and never drops below a positive floor
func DeltaBasedStopLoss(entry, spot, delta, gamma float64, mode models.Mode, maxLossFrac float64) float64 {
	if entry <= 0 {
		return slFloor
	}
	fallback := math.Max(slFloor, entry*(1.0-maxLossFrac))
	if delta == 0 || spot <= 0 {
		return fallback
	}

	d := math.Abs(delta)
	g := math.Abs(gamma)

	// Stricter mode -> tighter stop, speculative -> looser.
	k := 1.00
	switch mode {
	case models.ModeStrict:
		k = 0.85
	case models.ModeSpeculative:
		k = 1.15
	}

	allowedLoss := math.Max(slFloor, entry*maxLossFrac)
	deltaAdjust := clamp(1.0/math.Max(0.15, d), 0.20, 1.25)
	gammaWiden := 1.0 + math.Min(0.35, g*spot)

	loss := allowedLoss * k * (0.75 + 0.25*deltaAdjust) * gammaWiden
	sl := entry - loss
	if sl >= entry {
		sl = entry * 0.99
	}
	return math.Max(slFloor, sl)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
