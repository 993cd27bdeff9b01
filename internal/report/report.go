// Package report writes recommendation runs and review outcomes to disk as
// JSON and flat CSV, one pair of files per as-of date.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/models"
)

// Writer emits run artifacts into the configured output directory.
type Writer struct {
	outDir string
	log    zerolog.Logger
}

// NewWriter creates a report writer.
func NewWriter(cfg config.ReportConfig, logger zerolog.Logger) *Writer {
	return &Writer{
		outDir: cfg.OutDir,
		log:    logger.With().Str("component", "report").Logger(),
	}
}

// csvRow is the flat per-recommendation CSV projection. Pointer fields stay
// empty in the output when the underlying fact was unavailable.
type csvRow struct {
	AsOf       string   `csv:"as_of"`
	Symbol     string   `csv:"symbol"`
	Bias       string   `csv:"bias"`
	Action     string   `csv:"action"`
	Side       string   `csv:"side"`
	Expiry     string   `csv:"expiry"`
	Strike     float64  `csv:"strike"`
	EntryPrice float64  `csv:"entry_price"`
	StopLoss   float64  `csv:"sl_premium"`
	Target1    float64  `csv:"target1"`
	Target2    float64  `csv:"target2"`
	Confidence float64  `csv:"confidence"`
	DTE        int      `csv:"dte"`
	IV         *float64 `csv:"iv"`
	Delta      *float64 `csv:"delta"`
	SellBy     string   `csv:"sell_by"`
	Breakeven  float64  `csv:"breakeven"`
	Rationale  string   `csv:"rationale"`
}

// WriteRecommendations writes recos_<asOf>.json and recos_<asOf>.csv.
func (w *Writer) WriteRecommendations(asOf string, recos []models.OptionReco) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	jsonPath := filepath.Join(w.outDir, fmt.Sprintf("recos_%s.json", asOf))
	if err := writeJSON(jsonPath, recos); err != nil {
		return err
	}

	rows := make([]csvRow, 0, len(recos))
	for _, r := range recos {
		row := csvRow{
			AsOf:       r.AsOfDate,
			Symbol:     r.Symbol,
			Bias:       string(r.Bias),
			Action:     string(r.Action),
			Side:       string(r.Side),
			Expiry:     r.ExpiryDate,
			Strike:     r.Strike,
			EntryPrice: r.EntryPrice,
			StopLoss:   r.StopLoss,
			Confidence: r.Confidence,
			DTE:        r.DTE,
			IV:         r.IV,
			Delta:      r.Delta,
			SellBy:     r.SellByDate,
			Breakeven:  r.Breakeven,
			Rationale:  strings.Join(r.Rationale, " | "),
		}
		if len(r.Targets) > 0 {
			row.Target1 = r.Targets[0].Premium
		}
		if len(r.Targets) > 1 {
			row.Target2 = r.Targets[1].Premium
		}
		rows = append(rows, row)
	}

	csvPath := filepath.Join(w.outDir, fmt.Sprintf("recos_%s.csv", asOf))
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", csvPath, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", csvPath, err)
	}

	w.log.Info().Str("json", jsonPath).Str("csv", csvPath).Int("count", len(recos)).Msg("Wrote recommendation report")
	return nil
}

// WriteReview writes review_<asOf>.json with the full review outcome.
func (w *Writer) WriteReview(asOf string, result models.ReviewResult) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(w.outDir, fmt.Sprintf("review_%s.json", asOf))
	if err := writeJSON(path, result); err != nil {
		return err
	}
	w.log.Info().Str("path", path).
		Int("approved", len(result.Approved)).
		Int("rejected", len(result.Rejected)).
		Msg("Wrote review report")
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
