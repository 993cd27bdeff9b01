package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinnzy/stockreco/internal/engine"
	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/internal/pipeline"
	"github.com/vinnzy/stockreco/internal/provider"
	"github.com/vinnzy/stockreco/internal/report"
	"github.com/vinnzy/stockreco/pkg/utils"
)

func newRecommendCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate option recommendations for one as-of date",
		Long: `Evaluates each symbol's directional signal against its option chain and
emits BUY or HOLD recommendations with entry, stop-loss, targets, confidence
and a time-boxed exit date. Results are written to the report directory and
persisted to the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			recos, asOf, err := runRecommend(cmd, app)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(recos)
			}
			printRecos(output, asOf, recos)
			return nil
		},
	}

	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("as-of", "", "evaluation date YYYY-MM-DD (default: today)")
	cmd.Flags().String("signals", "", "signal CSV path (default: <data_dir>/<as-of>/signals.csv)")
	cmd.Flags().String("symbols", "", "comma-separated symbols (default: all symbols in the signal file)")
	cmd.Flags().String("mode", "", "override engine mode: strict, opportunistic or speculative")
}

// runRecommend wires provider, engine and pipeline for one as-of date and
// returns the recommendations in symbol order.
func runRecommend(cmd *cobra.Command, app *App) ([]models.OptionReco, time.Time, error) {
	asOf, err := resolveAsOf(cmd)
	if err != nil {
		return nil, time.Time{}, err
	}

	cfg := *app.Config
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		m := models.Mode(mode)
		if !m.Valid() {
			return nil, time.Time{}, fmt.Errorf("invalid mode %q", mode)
		}
		cfg.Engine.Mode = m
		cfg.Reviewer.Mode = m
	}

	signalsPath, _ := cmd.Flags().GetString("signals")
	if signalsPath == "" {
		signalsPath = filepath.Join(cfg.Provider.DataDir, asOf.Format(models.DateFormat), "signals.csv")
	}
	signals, err := provider.LoadSignals(signalsPath)
	if err != nil {
		return nil, time.Time{}, err
	}

	symbols := symbolList(cmd, signals)
	if len(symbols) == 0 {
		return nil, time.Time{}, fmt.Errorf("no symbols to evaluate")
	}

	p, err := provider.New(cfg.Provider, app.Logger)
	if err != nil {
		return nil, time.Time{}, err
	}

	eng := engine.New(cfg.Engine, app.Logger)
	pipe := pipeline.New(eng, p, cfg.Provider, app.Logger)
	recos := pipe.Run(cmd.Context(), asOf, symbols, signals)

	asOfStr := asOf.Format(models.DateFormat)
	writer := report.NewWriter(cfg.Report, app.Logger)
	if err := writer.WriteRecommendations(asOfStr, recos); err != nil {
		return nil, time.Time{}, err
	}
	if app.Store != nil {
		if err := app.Store.SaveRecommendations(context.Background(), recos); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to persist recommendations")
		}
	}

	return recos, asOf, nil
}

func resolveAsOf(cmd *cobra.Command) (time.Time, error) {
	asOfStr, _ := cmd.Flags().GetString("as-of")
	if asOfStr == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	asOf, err := time.Parse(models.DateFormat, asOfStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q (want YYYY-MM-DD)", asOfStr)
	}
	return asOf, nil
}

func symbolList(cmd *cobra.Command, signals map[string]models.SignalRow) []string {
	if raw, _ := cmd.Flags().GetString("symbols"); raw != "" {
		var symbols []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		return symbols
	}
	symbols := make([]string, 0, len(signals))
	for sym := range signals {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

func printRecos(output *Output, asOf time.Time, recos []models.OptionReco) {
	output.Bold("Option Recommendations for %s", asOf.Format(models.DateFormat))
	output.Println()

	table := NewTable(output, "SYMBOL", "ACTION", "SIDE", "STRIKE", "EXPIRY", "ENTRY", "SL", "T1", "T2", "CONF", "SELL BY")
	for _, r := range recos {
		if r.Action != models.ActionBuy {
			note := ""
			if r.RangeTrade != nil {
				note = "range"
			}
			table.AddRow(r.Symbol, output.Action(string(r.Action)), note, "", "", "", "", "", "", fmt.Sprintf("%.2f", r.Confidence), "")
			continue
		}
		t1, t2 := "", ""
		if len(r.Targets) > 0 {
			t1 = fmt.Sprintf("%.2f", r.Targets[0].Premium)
		}
		if len(r.Targets) > 1 {
			t2 = fmt.Sprintf("%.2f", r.Targets[1].Premium)
		}
		table.AddRow(
			r.Symbol,
			output.Action(string(r.Action)),
			string(r.Side),
			fmt.Sprintf("%.0f", r.Strike),
			r.ExpiryDate,
			utils.FormatIndianCurrency(r.EntryPrice),
			fmt.Sprintf("%.2f", r.StopLoss),
			t1, t2,
			fmt.Sprintf("%.2f", r.Confidence),
			r.SellByDate,
		)
	}
	table.Render()
}
