// Package provider supplies market data to the recommendation pipeline:
// spot snapshots and option chains, from local end-of-day CSV dumps or the
// Kite Connect API.
package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/models"
)

// Provider fetches point-in-time market data for one underlying.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// Underlying returns the spot snapshot for symbol as of the given date.
	Underlying(ctx context.Context, symbol string, asOf time.Time) (models.UnderlyingSnapshot, error)

	// OptionChain returns all known contracts for symbol as of the given
	// date, both sides, all expiries.
	OptionChain(ctx context.Context, symbol string, asOf time.Time) ([]models.OptionChainRow, error)
}

// New builds the provider selected by the configuration.
func New(cfg config.ProviderConfig, logger zerolog.Logger) (Provider, error) {
	switch cfg.Name {
	case "local_csv", "":
		return NewLocalCSV(cfg.DataDir, logger), nil
	case "kite":
		return NewKite(cfg, logger)
	}
	return nil, apperrors.NewValidationError("provider.name", cfg.Name, "unknown provider")
}
