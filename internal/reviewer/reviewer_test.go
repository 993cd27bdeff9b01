package reviewer

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/models"
)

func newTestReviewer(mode models.Mode) *Reviewer {
	cfg := config.Default().Reviewer
	cfg.Mode = mode
	return New(cfg, zerolog.Nop())
}

// buyReco builds a BUY that passes every strict check by default.
func buyReco(symbol string, confidence float64) models.OptionReco {
	return models.OptionReco{
		Symbol:      symbol,
		Action:      models.ActionBuy,
		Side:        models.SideCall,
		Strike:      1000,
		EntryPrice:  15,
		Confidence:  confidence,
		DTE:         10,
		IV:          models.FloatPtr(30.0),
		ThetaPerDay: models.FloatPtr(-0.5),
	}
}

func holdReco(symbol string, rationale ...string) models.OptionReco {
	return models.OptionReco{
		Symbol:    symbol,
		Action:    models.ActionHold,
		Rationale: rationale,
	}
}

func TestReview_ConfidenceFloorBoundary(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)

	// Exactly at the floor is approved; epsilon below is rejected.
	atFloor := rev.Review([]models.OptionReco{buyReco("RELIANCE", 0.35)}, 0)
	if len(atFloor.Approved) != 1 || len(atFloor.Rejected) != 0 {
		t.Fatalf("at-floor candidate should pass: approved %d, rejected %d", len(atFloor.Approved), len(atFloor.Rejected))
	}

	below := rev.Review([]models.OptionReco{buyReco("RELIANCE", 0.34)}, 0)
	if len(below.Rejected) != 1 {
		t.Fatalf("below-floor candidate should be rejected")
	}
	if !strings.Contains(below.Rejected[0].Reason, "Confidence") {
		t.Errorf("rejection reason %q should name the confidence check", below.Rejected[0].Reason)
	}
}

func TestReview_DTECheck(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	reco := buyReco("TCS", 0.60)
	reco.DTE = 3 // strict minimum is 5

	result := rev.Review([]models.OptionReco{reco}, 0)
	if len(result.Rejected) != 1 {
		t.Fatal("expected DTE rejection")
	}
	if !strings.Contains(result.Rejected[0].Reason, "DTE") {
		t.Errorf("reason %q should name DTE", result.Rejected[0].Reason)
	}
}

func TestReview_IVCheck(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	reco := buyReco("TCS", 0.60)
	reco.IV = models.FloatPtr(72.0) // strict maximum is 60

	result := rev.Review([]models.OptionReco{reco}, 0)
	if len(result.Rejected) != 1 || !strings.Contains(result.Rejected[0].Reason, "IV") {
		t.Fatalf("expected IV rejection, got %+v", result)
	}

	// Unknown IV skips the check rather than rejecting.
	reco.IV = nil
	result = rev.Review([]models.OptionReco{reco}, 0)
	if len(result.Approved) != 1 {
		t.Error("missing IV should not reject")
	}
}

func TestReview_ThetaCheck(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	reco := buyReco("TCS", 0.60)
	// 2.0/day against a 15 entry is 13.3% daily decay, above the strict 8%.
	reco.ThetaPerDay = models.FloatPtr(-2.0)

	result := rev.Review([]models.OptionReco{reco}, 0)
	if len(result.Rejected) != 1 || !strings.Contains(result.Rejected[0].Reason, "Theta") {
		t.Fatalf("expected theta rejection, got %+v", result)
	}
}

func TestReview_EntryStrikeRatio(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	reco := buyReco("TCS", 0.60)
	reco.Strike = 50
	reco.EntryPrice = 12 // 24% of strike, above the 15% cap

	result := rev.Review([]models.OptionReco{reco}, 0)
	if len(result.Rejected) != 1 || !strings.Contains(result.Rejected[0].Reason, "Entry/Strike") {
		t.Fatalf("expected entry/strike rejection, got %+v", result)
	}
}

func TestReview_HoldPassThrough(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	recos := []models.OptionReco{
		holdReco("A", "No directional edge: direction_score 0.02 below threshold."),
		holdReco("B", "Failed to load derivatives/provider data: data not found"),
	}

	result := rev.Review(recos, 0)

	if len(result.Approved) != 1 || result.Approved[0].Symbol != "A" {
		t.Fatalf("deliberate HOLD should pass through: %+v", result.Approved)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Symbol != "B" {
		t.Fatalf("error-masking HOLD should be rejected: %+v", result.Rejected)
	}
	if !strings.Contains(result.Rejected[0].Reason, "System Error") {
		t.Errorf("reason %q should flag the system error", result.Rejected[0].Reason)
	}
}

func TestReview_RegimeEscalation(t *testing.T) {
	// High proxy forces strict thresholds onto a speculative reviewer.
	rev := newTestReviewer(models.ModeSpeculative)
	reco := buyReco("RELIANCE", 0.30) // clears speculative 0.22, not strict 0.35

	calm := rev.Review([]models.OptionReco{reco}, 15)
	if len(calm.Approved) != 1 {
		t.Fatal("mid-regime speculative candidate should pass")
	}
	if calm.EffectiveMode != models.ModeSpeculative {
		t.Errorf("effective mode = %s, want speculative", calm.EffectiveMode)
	}

	stressed := rev.Review([]models.OptionReco{reco}, 25)
	if stressed.EffectiveMode != models.ModeStrict {
		t.Errorf("effective mode = %s, want strict above the high proxy", stressed.EffectiveMode)
	}
	if !strings.Contains(stressed.RegimeNote, "STRICT") {
		t.Errorf("regime note %q should announce the escalation", stressed.RegimeNote)
	}
	if len(stressed.Rejected) != 1 {
		t.Fatal("candidate should fail the escalated confidence floor")
	}
}

func TestReview_RegimeRelaxation(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	reco := buyReco("RELIANCE", 0.30)
	reco.DTE = 3 // fails strict min DTE 5, clears opportunistic min 2

	relaxed := rev.Review([]models.OptionReco{reco}, 8)
	if relaxed.EffectiveMode != models.ModeOpportunistic {
		t.Errorf("effective mode = %s, want opportunistic below the low proxy", relaxed.EffectiveMode)
	}
	if len(relaxed.Approved) != 1 {
		t.Fatalf("candidate should clear the relaxed thresholds: %+v", relaxed.Rejected)
	}

	// No proxy means no regime shift.
	unchanged := rev.Review([]models.OptionReco{reco}, 0)
	if unchanged.EffectiveMode != models.ModeStrict {
		t.Errorf("effective mode = %s, want configured strict when proxy absent", unchanged.EffectiveMode)
	}
	if len(unchanged.Rejected) != 1 {
		t.Error("candidate should fail strict thresholds without the relaxation")
	}
}

func TestReview_PreservesOrder(t *testing.T) {
	rev := newTestReviewer(models.ModeStrict)
	recos := []models.OptionReco{
		buyReco("C", 0.60),
		holdReco("A", "No directional edge."),
		buyReco("B", 0.55),
	}

	result := rev.Review(recos, 0)
	if len(result.Approved) != 3 {
		t.Fatalf("approved %d, want 3", len(result.Approved))
	}
	want := []string{"C", "A", "B"}
	for i, sym := range want {
		if result.Approved[i].Symbol != sym {
			t.Errorf("approved[%d] = %s, want %s", i, result.Approved[i].Symbol, sym)
		}
	}
}
