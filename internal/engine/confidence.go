package engine

import (
	"math"

	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/pkg/utils"
)

// confidenceInput carries everything the confidence chain reads. The chain
// multiplies adjustments onto a signal-strength base and rounds exactly
// once, after the final clamp.
type confidenceInput struct {
	edge       float64
	strikeDist float64
	bandWidth  float64
	dte        int
	ivPct      float64
	ivOK       bool
	side       models.Side
	sig        models.SignalRow
	spot       float64
	nearTarget float64
	chain      []models.OptionChainRow
	chosenOI   float64
	floor      float64
	diag       *models.Diagnostics
}

// Confidence model constants. The base rewards signal strength and strike
// proximity; everything after is a multiplicative adjustment.
const (
	confBase          = 0.25
	confEdgeWeight    = 0.60
	confStrikeWeight  = 0.10
	confCeiling       = 0.95
	thetaCliffDTE     = 3
	thetaCliffPenalty = 0.75
	highIVPct         = 40.0
	highIVPenalty     = 0.90
)

func (e *Engine) confidence(in confidenceInput) float64 {
	normDist := 0.0
	if in.bandWidth > 0 {
		normDist = math.Min(1, in.strikeDist/in.bandWidth)
	}
	conf := confBase + confEdgeWeight*math.Min(1, in.edge) + confStrikeWeight*(1-normDist)

	if in.dte < thetaCliffDTE {
		conf *= thetaCliffPenalty
	}
	if in.ivOK && in.ivPct > highIVPct {
		conf *= highIVPenalty
	}

	conf *= annVolAdjust(in.sig.AnnualizedVol)
	conf *= fiiAdjust(in.side, in.sig.FIISentiment)
	if in.sig.BulkDeal {
		conf *= 1.04
	}
	conf *= smartMoneyAdjust(in.side, in.sig.SmartMoney)
	conf *= pcrAdjust(in.sig.PutCallRatio)

	if wall, found := oiWall(in.chain, in.side, in.spot, in.nearTarget, in.chosenOI); found {
		conf *= 0.90
		in.diag.OIWallStrike = models.FloatPtr(wall)
	}

	conf = math.Max(in.floor, math.Min(confCeiling, conf))
	return utils.Round2(conf)
}

// annVolAdjust boosts the 15-35% annualized-vol sweet spot and penalizes
// dead-calm underlyings where premiums rarely expand.
func annVolAdjust(annVol float64) float64 {
	switch {
	case annVol <= 0:
		return 1.0
	case annVol >= 0.15 && annVol <= 0.35:
		return 1.05
	case annVol < 0.10:
		return 0.92
	default:
		return 1.0
	}
}

// fiiAdjust penalizes positions that fight strong FII net positioning.
func fiiAdjust(side models.Side, fii float64) float64 {
	if side == models.SideCall && fii < -0.3 {
		return 0.93
	}
	if side == models.SidePut && fii > 0.3 {
		return 0.93
	}
	return 1.0
}

// smartMoneyAdjust boosts alignment with large-participant positioning and
// penalizes opposition.
func smartMoneyAdjust(side models.Side, sm float64) float64 {
	aligned := (side == models.SideCall && sm > 0.3) || (side == models.SidePut && sm < -0.3)
	opposed := (side == models.SideCall && sm < -0.3) || (side == models.SidePut && sm > 0.3)
	switch {
	case aligned:
		return 1.06
	case opposed:
		return 0.92
	default:
		return 1.0
	}
}

// pcrAdjust penalizes extreme put/call OI ratios in either direction;
// crowded positioning tends to mean-revert.
func pcrAdjust(pcr float64) float64 {
	if pcr <= 0 {
		return 1.0
	}
	if pcr > 1.7 || pcr < 0.5 {
		return 0.95
	}
	return 1.0
}

// oiWallMultiple is how much larger than the chosen strike's OI a buildup
// must be to count as a wall.
const oiWallMultiple = 2.0

// oiWall looks for heavy same-side open-interest buildup strictly between
// spot and the near underlying target: resistance against a long call,
// support against a long put. Returns the wall strike when found.
func oiWall(chain []models.OptionChainRow, side models.Side, spot, nearTarget, chosenOI float64) (float64, bool) {
	if chosenOI <= 0 {
		return 0, false
	}
	lo, hi := math.Min(spot, nearTarget), math.Max(spot, nearTarget)
	wallStrike, wallOI := 0.0, 0.0
	for _, r := range chain {
		if r.Side != side {
			continue
		}
		if r.Strike <= lo || r.Strike >= hi {
			continue
		}
		if r.OI > wallOI {
			wallStrike, wallOI = r.Strike, r.OI
		}
	}
	if wallOI >= oiWallMultiple*chosenOI && wallOI >= 5000 {
		return wallStrike, true
	}
	return 0, false
}
