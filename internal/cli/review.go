package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/internal/report"
	"github.com/vinnzy/stockreco/internal/reviewer"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run the full recommend-then-review pipeline",
		Long: `Generates recommendations for one as-of date, then filters them through
the rule-based reviewer (and the LLM analyst when configured). The reviewer
escalates to strict thresholds in high-volatility regimes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			recos, asOf, err := runRecommend(cmd, app)
			if err != nil {
				return err
			}

			cfg := *app.Config
			if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
				cfg.Reviewer.Mode = models.Mode(mode)
			}
			volProxy, _ := cmd.Flags().GetFloat64("vol-proxy")

			rev := reviewer.New(cfg.Reviewer, app.Logger)
			result := rev.Review(recos, volProxy)

			if app.Analyst != nil {
				result = app.Analyst.Review(cmd.Context(), result)
			}

			asOfStr := asOf.Format(models.DateFormat)
			writer := report.NewWriter(cfg.Report, app.Logger)
			if err := writer.WriteReview(asOfStr, result); err != nil {
				return err
			}
			if app.Store != nil {
				if err := app.Store.SaveReview(context.Background(), asOfStr, result); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to persist review")
				}
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(result)
			}
			printReview(output, result)
			return nil
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Float64("vol-proxy", 0, "volatility regime proxy, e.g. index annualized vol (0 = skip regime check)")
	return cmd
}

func printReview(output *Output, result models.ReviewResult) {
	output.Bold("Review (effective mode %s)", result.EffectiveMode)
	if result.RegimeNote != "" {
		output.Warning("%s", result.RegimeNote)
	}
	output.Println()

	output.Success("Approved: %d", len(result.Approved))
	for _, r := range result.Approved {
		if r.Action == models.ActionBuy {
			output.Printf("  %s %s %.0f @ %.2f (conf %.2f, sell by %s)\n",
				r.Symbol, r.Side, r.Strike, r.EntryPrice, r.Confidence, r.SellByDate)
		} else {
			output.Printf("  %s HOLD (conf %.2f)\n", r.Symbol, r.Confidence)
		}
	}
	output.Println()

	if len(result.Rejected) > 0 {
		output.Error("Rejected: %d", len(result.Rejected))
		for _, rej := range result.Rejected {
			label := rej.Symbol
			if rej.Side != "" {
				label = fmt.Sprintf("%s %s %.0f", rej.Symbol, rej.Side, rej.Strike)
			}
			output.Printf("  %s: %s\n", label, rej.Reason)
		}
	}
}
