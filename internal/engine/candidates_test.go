package engine

import (
	"testing"

	"github.com/vinnzy/stockreco/internal/models"
)

func TestDaysToExpiry(t *testing.T) {
	if got := daysToExpiry(testAsOf, testAsOf.AddDate(0, 0, 7)); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if got := daysToExpiry(testAsOf, testAsOf); got != 0 {
		t.Errorf("same day = %d, want 0", got)
	}
	// Past expiries floor at zero rather than going negative.
	if got := daysToExpiry(testAsOf, testAsOf.AddDate(0, 0, -3)); got != 0 {
		t.Errorf("past expiry = %d, want 0", got)
	}
}

func TestModalStrikeStep(t *testing.T) {
	mk := func(strikes ...float64) []models.OptionChainRow {
		var chain []models.OptionChainRow
		for _, s := range strikes {
			chain = append(chain, models.OptionChainRow{Strike: s, Side: models.SideCall, Expiry: testAsOf.AddDate(0, 0, 7)})
		}
		return chain
	}

	if got := modalStrikeStep(mk(100, 150, 200, 250)); got != 50 {
		t.Errorf("uniform 50 steps = %v, want 50", got)
	}
	// The modal gap wins even with a stray wide gap.
	if got := modalStrikeStep(mk(100, 110, 120, 130, 200)); got != 10 {
		t.Errorf("modal step = %v, want 10", got)
	}
	// Duplicate strikes (both sides quoted) do not distort the step.
	chain := append(mk(100, 110, 120), mk(100, 110, 120)...)
	if got := modalStrikeStep(chain); got != 10 {
		t.Errorf("deduplicated step = %v, want 10", got)
	}
	// Degenerate chains fall back to 10 points.
	if got := modalStrikeStep(mk(100)); got != 10 {
		t.Errorf("single strike fallback = %v, want 10", got)
	}
}

func TestPickBest_PrefersCloserStrike(t *testing.T) {
	candidates := []scoredRow{
		{row: models.OptionChainRow{Strike: 1030, OI: 5000, Volume: 3000}, dte: 14},
		{row: models.OptionChainRow{Strike: 1010, OI: 5000, Volume: 3000}, dte: 14},
	}
	best := pickBest(candidates, 1000, 20)
	if best.row.Strike != 1010 {
		t.Errorf("best strike = %v, want the nearer 1010", best.row.Strike)
	}
}

func TestPickBest_LiquidityBreaksTies(t *testing.T) {
	candidates := []scoredRow{
		{row: models.OptionChainRow{Strike: 1010, OI: 500, Volume: 600}, dte: 14},
		{row: models.OptionChainRow{Strike: 1010, OI: 90000, Volume: 60000}, dte: 14},
	}
	best := pickBest(candidates, 1000, 20)
	if best.row.OI != 90000 {
		t.Errorf("best OI = %v, want the deeper 90000 book", best.row.OI)
	}
}

func TestApplyExpiryGuard(t *testing.T) {
	eng := newTestEngine(models.ModeOpportunistic)
	mixed := []scoredRow{{dte: 2}, {dte: 12}, {dte: 3}}

	kept, forced := eng.applyExpiryGuard("RELIANCE", mixed)
	if forced {
		t.Error("safe expiries exist; must not force intraday")
	}
	if len(kept) != 1 || kept[0].dte != 12 {
		t.Errorf("kept %+v, want only the 12-day expiry", kept)
	}

	dangerOnly := []scoredRow{{dte: 2}, {dte: 3}}
	kept, forced = eng.applyExpiryGuard("RELIANCE", dangerOnly)
	if !forced || len(kept) != 2 {
		t.Errorf("danger-only chain should be kept with forced intraday, got %d rows forced=%v", len(kept), forced)
	}

	// Indices are cash-settled and exempt.
	kept, forced = eng.applyExpiryGuard("NIFTY", mixed)
	if forced || len(kept) != 3 {
		t.Errorf("index chain must pass untouched, got %d rows forced=%v", len(kept), forced)
	}
}
