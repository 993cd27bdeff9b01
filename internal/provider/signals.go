package provider

import (
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/models"
)

// LoadSignals reads the upstream model's per-symbol signal CSV and returns
// the rows keyed by upper-cased ticker. A missing file is an error; the
// pipeline has nothing to act on without signals.
func LoadSignals(path string) (map[string]models.SignalRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewDataError("signals", "", "opening signal file", err)
	}
	defer f.Close()

	var rows []models.SignalRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, apperrors.NewDataError("signals", "", "parsing signal file", err)
	}

	out := make(map[string]models.SignalRow, len(rows))
	for _, r := range rows {
		if r.Ticker == "" {
			continue
		}
		out[strings.ToUpper(r.Ticker)] = r
	}
	return out, nil
}
