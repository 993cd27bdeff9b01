// Package engine implements the option recommendation decision engine. For
// each (symbol, as-of date) it evaluates the directional signal against the
// option chain and emits a BUY, a HOLD, or a HOLD with an advisory range
// suggestion, together with entry, stop-loss, targets, confidence and a
// time-boxed exit date.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/logging"
	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/internal/pricing"
	"github.com/vinnzy/stockreco/internal/risk"
	"github.com/vinnzy/stockreco/pkg/utils"
)

// Engine produces option recommendations. It holds no per-symbol state; a
// single instance is safe for concurrent use across symbols.
type Engine struct {
	cfg config.EngineConfig
	log zerolog.Logger
}

// New creates a recommendation engine. The configuration is assumed to be
// validated at load time.
func New(cfg config.EngineConfig, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, log: logger.With().Str("component", "engine").Logger()}
}

// Recommend evaluates one symbol for one as-of date. It never returns an
// error: data problems degrade to a HOLD recommendation whose rationale
// explains what failed.
func (e *Engine) Recommend(asOf time.Time, symbol string, sig models.SignalRow, underlying models.UnderlyingSnapshot, chain []models.OptionChainRow) models.OptionReco {
	th := e.cfg.Thresholds()
	spot := underlying.Spot

	diag := baseDiagnostics(sig)

	// ATR fallback keeps moneyness bands usable when the signal row lacks it.
	atrPoints := sig.ATRPoints
	if atrPoints <= 0 {
		atrPoints = spot * 0.008
	}
	diag.ATRPoints = models.FloatPtr(atrPoints)

	// No-edge gate: nothing in the signal clears any threshold.
	if sig.BuyWin == 0 && sig.SellWin == 0 &&
		math.Abs(sig.DirectionScore) < th.MinDirectionScore &&
		sig.BuySoft == 0 && sig.SellSoft == 0 {
		return e.hold(asOf, symbol, th.HoldConfidenceFloor, diag, fmt.Sprintf(
			"No directional edge: |direction_score| %.2f below %.2f, win flags 0, soft scores 0.",
			math.Abs(sig.DirectionScore), th.MinDirectionScore))
	}

	side, bias, edge := pickSide(sig)
	diag.Edge = models.FloatPtr(edge)

	// Range regime: weak direction but expanding range with two-sided soft
	// signal. Strict mode deliberately never takes this branch and falls
	// through to the directional path instead, whatever the threshold table
	// says.
	if e.cfg.Mode != models.ModeStrict &&
		th.MinRangeATRPct > 0 && math.Abs(sig.DirectionScore) < th.MinDirectionScore &&
		sig.ATRPct >= th.MinRangeATRPct && comparableSoft(sig.BuySoft, sig.SellSoft) {
		if reco, ok := e.rangeSuggestion(asOf, symbol, sig, spot, atrPoints, chain, th, diag); ok {
			return reco
		}
	}

	candidates, relaxed := e.filterCandidates(asOf, chain, side, spot, atrPoints, th)
	if len(candidates) == 0 {
		return e.hold(asOf, symbol, th.HoldConfidenceFloor, diag, fmt.Sprintf(
			"No suitable %s options in chain after filters (DTE window, moneyness band, liquidity).", side))
	}

	candidates, forceIntraday := e.applyExpiryGuard(symbol, candidates)

	best := pickBest(candidates, spot, atrPoints)
	row := best.row
	diag.CandidateScore = models.FloatPtr(utils.Round2(best.score))
	diag.OI = models.FloatPtr(row.OI)
	diag.Volume = models.FloatPtr(row.Volume)

	entry := row.LTP * (1.0 - th.EntrySlippage)

	timeYears := math.Max(1e-6, float64(best.dte)/365.0)
	iv, ivOK := pricing.ImpliedVol(row.LTP, spot, row.Strike, timeYears, e.cfg.RiskFreeRate, side)

	var greeks pricing.Greeks
	greeksOK := false
	if ivOK {
		greeks, greeksOK = pricing.ComputeGreeks(spot, row.Strike, timeYears, e.cfg.RiskFreeRate, iv, side)
	}
	_, extrinsic := pricing.IntrinsicExtrinsic(spot, row.Strike, row.LTP, side)

	var delta, gamma float64
	if greeksOK {
		delta, gamma = greeks.Delta, greeks.Gamma
	}
	stop := risk.DeltaBasedStopLoss(entry, spot, delta, gamma, e.cfg.Mode, th.MaxLossFraction)

	riskPerUnit := entry - stop
	var t1u, t2u float64
	if side == models.SideCall {
		t1u, t2u = spot+0.5*atrPoints, spot+1.0*atrPoints
	} else {
		t1u, t2u = spot-0.5*atrPoints, spot-1.0*atrPoints
	}
	targets := []models.Target{
		{Premium: utils.Round2(entry + th.Target1RR*riskPerUnit), Underlying: utils.Round2(t1u)},
		{Premium: utils.Round2(entry + th.Target2RR*riskPerUnit), Underlying: utils.Round2(t2u)},
	}

	sellBy, burnDays := e.sellByDate(asOf, row.Expiry, best.dte, greeksOK, greeks.ThetaPerDay, extrinsic, forceIntraday)
	if burnDays > 0 {
		diag.ThetaBurnDays = models.FloatPtr(float64(burnDays))
	}

	ivPct := 0.0
	if ivOK {
		ivPct = iv * 100
	}
	conf := e.confidence(confidenceInput{
		edge:       edge,
		strikeDist: math.Abs(row.Strike - spot),
		bandWidth:  th.MoneynessBandATR * atrPoints,
		dte:        best.dte,
		ivPct:      ivPct,
		ivOK:       ivOK,
		side:       side,
		sig:        sig,
		spot:       spot,
		nearTarget: t1u,
		chain:      chain,
		chosenOI:   row.OI,
		floor:      th.BuyConfidenceFloor,
		diag:       &diag,
	})

	var breakeven float64
	if side == models.SideCall {
		breakeven = row.Strike + entry
	} else {
		breakeven = row.Strike - entry
	}

	rationale := []string{
		fmt.Sprintf("direction_score=%.2f, buy_soft=%.2f, sell_soft=%.2f (%s).", sig.DirectionScore, sig.BuySoft, sig.SellSoft, bias),
		fmt.Sprintf("Selected %s %.0f exp %s (DTE %d, OI %.0f, vol %.0f).", side, row.Strike, row.Expiry.Format(models.DateFormat), best.dte, row.OI, row.Volume),
		fmt.Sprintf("Entry %.2f (LTP %.2f less %.1f%% slippage), SL %.2f, targets %.2f/%.2f.", utils.Round2(entry), row.LTP, th.EntrySlippage*100, utils.Round2(stop), targets[0].Premium, targets[1].Premium),
	}
	if relaxed {
		rationale = append(rationale, "Primary filters empty; relaxed to DTE>=1 and half liquidity minimums.")
	}
	if forceIntraday {
		rationale = append(rationale, fmt.Sprintf(
			"Only expiries inside the %d-day margin window available; Capping to INTRADAY exit (sell_by = as_of).", e.cfg.MarginPeriodDays))
	}
	rationale = append(rationale, fmt.Sprintf("Sell-by %s to manage theta decay.", sellBy.Format(models.DateFormat)))

	reco := models.OptionReco{
		AsOf:       asOf,
		AsOfDate:   asOf.Format(models.DateFormat),
		Symbol:     symbol,
		Bias:       bias,
		Instrument: models.InstrumentOption,
		Action:     models.ActionBuy,
		Side:       side,
		Expiry:     row.Expiry,
		ExpiryDate: row.Expiry.Format(models.DateFormat),
		Strike:     row.Strike,
		EntryPrice: utils.Round2(entry),
		StopLoss:   utils.Round2(stop),
		Targets:    targets,
		Confidence: conf,
		Rationale:  rationale,
		Diag:       diag,
		Spot:       utils.Round2(spot),
		DTE:        best.dte,
		SellBy:     sellBy,
		SellByDate: sellBy.Format(models.DateFormat),
		Breakeven:  utils.Round2(breakeven),
	}
	if ivOK {
		reco.IV = models.FloatPtr(utils.Round2(ivPct))
	}
	if greeksOK {
		reco.Delta = models.FloatPtr(utils.Round2(greeks.Delta))
		reco.ThetaPerDay = models.FloatPtr(utils.Round2(greeks.ThetaPerDay))
	}
	reco.Extrinsic = models.FloatPtr(utils.Round2(extrinsic))

	logging.LogRecommendation(e.log, symbol, string(models.ActionBuy), row.Strike, conf)

	return reco
}

// hold builds a HOLD recommendation with the given rationale lines.
func (e *Engine) hold(asOf time.Time, symbol string, confidence float64, diag models.Diagnostics, rationale ...string) models.OptionReco {
	return models.OptionReco{
		AsOf:       asOf,
		AsOfDate:   asOf.Format(models.DateFormat),
		Symbol:     symbol,
		Bias:       models.BiasNeutral,
		Instrument: models.InstrumentNone,
		Action:     models.ActionHold,
		Confidence: confidence,
		Rationale:  rationale,
		Diag:       diag,
	}
}

// pickSide chooses the trade direction from whichever signal component
// agrees most strongly, and returns the edge used for confidence.
func pickSide(sig models.SignalRow) (models.Side, models.Bias, float64) {
	bull := math.Max(math.Max(0, sig.DirectionScore), sig.BuySoft)
	if sig.BuyWin > 0 {
		bull = math.Max(bull, 0.5)
	}
	bear := math.Max(math.Max(0, -sig.DirectionScore), sig.SellSoft)
	if sig.SellWin > 0 {
		bear = math.Max(bear, 0.5)
	}

	if bull >= bear {
		edge := math.Max(math.Abs(sig.DirectionScore), math.Max(sig.BuySoft, 0.2))
		return models.SideCall, models.BiasBullish, edge
	}
	edge := math.Max(math.Abs(sig.DirectionScore), math.Max(sig.SellSoft, 0.2))
	return models.SidePut, models.BiasBearish, edge
}

// comparableSoft reports whether both directions carry a similar soft
// signal, the two-sided condition for a range regime.
func comparableSoft(buySoft, sellSoft float64) bool {
	if buySoft <= 0 || sellSoft <= 0 {
		return false
	}
	return math.Abs(buySoft-sellSoft) <= 0.15
}

func baseDiagnostics(sig models.SignalRow) models.Diagnostics {
	d := models.Diagnostics{
		BuyWin:         models.IntPtr(sig.BuyWin),
		SellWin:        models.IntPtr(sig.SellWin),
		BuySoft:        models.FloatPtr(sig.BuySoft),
		SellSoft:       models.FloatPtr(sig.SellSoft),
		DirectionScore: models.FloatPtr(sig.DirectionScore),
	}
	if sig.ATRPct > 0 {
		d.ATRPct = models.FloatPtr(sig.ATRPct)
	}
	if sig.AnnualizedVol > 0 {
		d.AnnualizedVol = models.FloatPtr(sig.AnnualizedVol)
	}
	if sig.FIISentiment != 0 {
		d.FIISentiment = models.FloatPtr(sig.FIISentiment)
	}
	if sig.SmartMoney != 0 {
		d.SmartMoney = models.FloatPtr(sig.SmartMoney)
	}
	if sig.PutCallRatio > 0 {
		d.PutCallRatio = models.FloatPtr(sig.PutCallRatio)
	}
	return d
}
