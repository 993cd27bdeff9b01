package engine

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/models"
)

// liquidChain builds a symmetric chain around spot with generous liquidity
// so recommendations are driven by the generated signal, not data gaps.
func liquidChain(spot float64, dtes []int) []models.OptionChainRow {
	var chain []models.OptionChainRow
	for _, dte := range dtes {
		for _, offset := range []float64{-30, -20, -10, 0, 10, 20, 30} {
			strike := spot + offset
			ltp := 25.0 - offset/4
			if ltp < 2 {
				ltp = 2
			}
			chain = append(chain,
				chainRow(models.SideCall, strike, dte, ltp, 8000, 5000),
				chainRow(models.SidePut, strike, dte, 50-ltp, 8000, 5000),
			)
		}
	}
	return chain
}

// Property: every BUY lands inside the mode's confidence corridor and its
// exit date inside [as-of, expiry-1]; every HOLD carries a rationale.
func TestProperty_RecommendationInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	modes := []models.Mode{models.ModeStrict, models.ModeOpportunistic, models.ModeSpeculative}
	chain := liquidChain(1000, []int{2, 9, 23, 37})

	properties.Property("BUY confidence and sell-by invariants hold", prop.ForAll(
		func(ds, buySoft, sellSoft, atrPoints, atrPct, annVol, fii, sm, pcr float64, modeIdx int) bool {
			cfg := config.Default().Engine
			cfg.Mode = modes[modeIdx]
			eng := New(cfg, zerolog.Nop())

			sig := models.SignalRow{
				DirectionScore: ds,
				BuySoft:        buySoft,
				SellSoft:       sellSoft,
				ATRPoints:      atrPoints,
				ATRPct:         atrPct,
				AnnualizedVol:  annVol,
				FIISentiment:   fii,
				SmartMoney:     sm,
				PutCallRatio:   pcr,
			}
			reco := eng.Recommend(testAsOf, "RELIANCE", sig, snapshot("RELIANCE", 1000), chain)

			th := cfg.Modes[cfg.Mode]
			switch reco.Action {
			case models.ActionBuy:
				if reco.Confidence < th.BuyConfidenceFloor || reco.Confidence > 0.95 {
					return false
				}
				if reco.SellBy.Before(reco.AsOf) || !reco.SellBy.Before(reco.Expiry) {
					return false
				}
				if reco.StopLoss >= reco.EntryPrice || reco.StopLoss < 0.01 {
					return false
				}
				return reco.EntryPrice > 0 && len(reco.Targets) == 2
			case models.ActionHold:
				return len(reco.Rationale) > 0
			}
			return false
		},
		gen.Float64Range(-1.0, 1.0),
		gen.Float64Range(0.0, 1.0),
		gen.Float64Range(0.0, 1.0),
		gen.Float64Range(0.0, 60.0),
		gen.Float64Range(0.0, 0.05),
		gen.Float64Range(0.0, 0.8),
		gen.Float64Range(-1.0, 1.0),
		gen.Float64Range(-1.0, 1.0),
		gen.Float64Range(0.0, 3.0),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
