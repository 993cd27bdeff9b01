package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/models"
)

// Expiry date formats seen in vendor chain dumps.
var expiryFormats = []string{"02-Jan-2006", "2006-01-02"}

// LocalCSV reads end-of-day snapshots from a directory tree laid out as
// <dataDir>/<YYYY-MM-DD>/spots.csv and <dataDir>/<YYYY-MM-DD>/<SYMBOL>_options.csv.
type LocalCSV struct {
	dataDir string
	log     zerolog.Logger
}

// NewLocalCSV creates a provider over a local data directory.
func NewLocalCSV(dataDir string, logger zerolog.Logger) *LocalCSV {
	return &LocalCSV{
		dataDir: dataDir,
		log:     logger.With().Str("provider", "local_csv").Logger(),
	}
}

// Name identifies the provider.
func (p *LocalCSV) Name() string { return "local_csv" }

// spotRow is one line of spots.csv.
type spotRow struct {
	Ticker string  `csv:"ticker"`
	Close  float64 `csv:"close"`
}

// chainRow is one line of a <SYMBOL>_options.csv dump. Optional vendor
// columns unmarshal to zero when absent.
type chainRow struct {
	Strike   float64 `csv:"strike"`
	Expiry   string  `csv:"expiry"`
	Type     string  `csv:"type"` // CE or PE
	LTP      float64 `csv:"ltp"`
	Bid      float64 `csv:"bid"`
	Ask      float64 `csv:"ask"`
	DayHigh  float64 `csv:"day_high"`
	DayLow   float64 `csv:"day_low"`
	Volume   float64 `csv:"volume"`
	OI       float64 `csv:"oi"`
	OIChange float64 `csv:"oi_change"`
	IV       float64 `csv:"iv"`
}

// Underlying returns the spot close for symbol from the date's spots.csv.
func (p *LocalCSV) Underlying(ctx context.Context, symbol string, asOf time.Time) (models.UnderlyingSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.UnderlyingSnapshot{}, err
	}

	path := filepath.Join(p.dateDir(asOf), "spots.csv")
	f, err := os.Open(path)
	if err != nil {
		return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol,
			apperrors.Wrapf(err, "opening %s", path))
	}
	defer f.Close()

	var rows []spotRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol,
			apperrors.Wrapf(err, "parsing %s", path))
	}

	for _, r := range rows {
		if strings.EqualFold(r.Ticker, symbol) {
			if r.Close <= 0 {
				return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrNoSpot)
			}
			return models.UnderlyingSnapshot{Symbol: symbol, Spot: r.Close, ObservedAt: asOf}, nil
		}
	}
	return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrSymbolNotFound)
}

// OptionChain loads the date's chain dump for symbol.
func (p *LocalCSV) OptionChain(ctx context.Context, symbol string, asOf time.Time) ([]models.OptionChainRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dateDir(asOf), fmt.Sprintf("%s_options.csv", strings.ToUpper(symbol)))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrDataNotFound)
		}
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.Wrapf(err, "opening %s", path))
	}
	defer f.Close()

	var rows []chainRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.Wrapf(err, "parsing %s", path))
	}

	chain := make([]models.OptionChainRow, 0, len(rows))
	for _, r := range rows {
		expiry, err := parseExpiry(r.Expiry)
		if err != nil {
			p.log.Warn().Str("symbol", symbol).Str("expiry", r.Expiry).Msg("Skipping row with unparseable expiry")
			continue
		}
		side := models.Side(strings.ToUpper(r.Type))
		if side != models.SideCall && side != models.SidePut {
			continue
		}
		chain = append(chain, models.OptionChainRow{
			Strike:   r.Strike,
			Expiry:   expiry,
			Side:     side,
			LTP:      r.LTP,
			Bid:      r.Bid,
			Ask:      r.Ask,
			DayHigh:  r.DayHigh,
			DayLow:   r.DayLow,
			Volume:   r.Volume,
			OI:       r.OI,
			OIChange: r.OIChange,
			IV:       r.IV,
		})
	}

	if len(chain) == 0 {
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrEmptyChain)
	}
	return chain, nil
}

func (p *LocalCSV) dateDir(asOf time.Time) string {
	return filepath.Join(p.dataDir, asOf.Format(models.DateFormat))
}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range expiryFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry format %q", s)
}
