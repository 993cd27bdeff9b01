// Package reviewer applies rule-based acceptance checks to option
// recommendations: IV levels, theta decay risk, DTE constraints, confidence
// thresholds and liquidity, with thresholds scaled by a volatility-regime
// proxy. A rejection is a normal negative outcome, never an error.
package reviewer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/logging"
	"github.com/vinnzy/stockreco/internal/models"
)

// Reviewer filters recommendation batches against mode-scaled thresholds.
type Reviewer struct {
	cfg config.ReviewerConfig
	log zerolog.Logger
}

// New creates a reviewer. The configuration is assumed to be validated at
// load time.
func New(cfg config.ReviewerConfig, logger zerolog.Logger) *Reviewer {
	return &Reviewer{cfg: cfg, log: logger.With().Str("component", "reviewer").Logger()}
}

// Review evaluates a batch of recommendations. volProxy is an optional
// volatility-regime proxy (an index's annualized volatility as a VIX
// stand-in); pass <= 0 when unavailable. Both output lists preserve the
// input ordering and approved recommendations are forwarded unchanged.
func (r *Reviewer) Review(recos []models.OptionReco, volProxy float64) models.ReviewResult {
	effectiveMode, regimeNote := r.effectiveMode(volProxy)

	result := models.ReviewResult{
		Approved:      make([]models.OptionReco, 0, len(recos)),
		Rejected:      make([]models.Rejection, 0),
		EffectiveMode: effectiveMode,
		RegimeNote:    regimeNote,
	}

	for _, reco := range recos {
		if reco.Action == models.ActionHold {
			// HOLDs pass through unless they mask a system/data error, which
			// is surfaced as a rejection for audit visibility.
			if errText, isErr := systemError(reco.Rationale); isErr {
				result.Rejected = append(result.Rejected, models.Rejection{
					Symbol: reco.Symbol,
					Reason: "System Error: " + errText,
				})
			} else {
				result.Approved = append(result.Approved, reco)
			}
			continue
		}

		if reason := r.check(reco, effectiveMode); reason != "" {
			if regimeNote != "" {
				reason += " " + regimeNote
			}
			result.Rejected = append(result.Rejected, models.Rejection{
				Symbol: reco.Symbol,
				Side:   reco.Side,
				Strike: reco.Strike,
				Expiry: reco.ExpiryDate,
				Reason: reason,
			})
			r.log.Debug().Str("symbol", reco.Symbol).Str("reason", reason).Msg("Recommendation rejected")
		} else {
			result.Approved = append(result.Approved, reco)
		}
	}

	logging.LogReview(r.log, string(effectiveMode), len(result.Approved), len(result.Rejected))

	return result
}

// effectiveMode applies the regime escalation: a high proxy forces strict
// thresholds regardless of configured mode, a low proxy permits relaxing
// strict to opportunistic.
func (r *Reviewer) effectiveMode(volProxy float64) (models.Mode, string) {
	mode := r.cfg.Mode
	if volProxy <= 0 {
		return mode, ""
	}
	if volProxy > r.cfg.HighVolProxy && mode != models.ModeStrict {
		return models.ModeStrict, fmt.Sprintf(
			"[Market Regime: High vol proxy (%.1f) -> Enforcing STRICT mode]", volProxy)
	}
	if volProxy < r.cfg.LowVolProxy && mode == models.ModeStrict {
		return models.ModeOpportunistic, fmt.Sprintf(
			"[Market Regime: Low vol proxy (%.1f) -> Allowing OPPORTUNISTIC mode]", volProxy)
	}
	return mode, ""
}

// check runs the per-candidate filters in a fixed order; the first failure
// wins. An empty string means approved.
func (r *Reviewer) check(reco models.OptionReco, mode models.Mode) string {
	th := r.cfg.Thresholds[mode]

	if reco.Confidence < th.MinConfidence {
		return fmt.Sprintf("Confidence %.2f below %.2f threshold for %s mode",
			reco.Confidence, th.MinConfidence, mode)
	}

	if reco.DTE < th.MinDTE {
		return fmt.Sprintf("DTE %d below minimum %d for %s mode (theta cliff risk)",
			reco.DTE, th.MinDTE, mode)
	}

	if reco.IV != nil && *reco.IV > th.MaxIVPct {
		return fmt.Sprintf("IV %.1f%% exceeds %.1f%% threshold (high premium/IV crush risk)",
			*reco.IV, th.MaxIVPct)
	}

	if reco.ThetaPerDay != nil && reco.EntryPrice > 0 {
		thetaPct := math.Abs(*reco.ThetaPerDay) / reco.EntryPrice
		if thetaPct > th.MaxThetaPct {
			return fmt.Sprintf("Theta decay %.1f%% of entry per day exceeds %.1f%% threshold",
				thetaPct*100, th.MaxThetaPct*100)
		}
	}

	if r.cfg.MinOI > 0 && reco.Diag.OI != nil && *reco.Diag.OI < r.cfg.MinOI {
		return fmt.Sprintf("Open Interest %.0f below minimum %.0f (liquidity risk)",
			*reco.Diag.OI, r.cfg.MinOI)
	}

	if reco.EntryPrice > 0 && reco.Strike > 0 {
		if ratio := reco.EntryPrice / reco.Strike; ratio > r.cfg.MaxEntryStrikeRatio {
			return fmt.Sprintf("Entry/Strike ratio %.2f%% too high (likely overpriced OTM option)",
				ratio*100)
		}
	}

	return ""
}

// systemError reports whether a HOLD rationale indicates a provider or
// data failure rather than a deliberate no-trade.
func systemError(rationale []string) (string, bool) {
	for _, line := range rationale {
		if strings.Contains(line, "Failed to load") || strings.Contains(line, "Error") {
			return strings.Join(rationale, "; "), true
		}
	}
	return "", false
}
