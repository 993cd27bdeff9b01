// Package pipeline fans a list of symbols out to the recommendation engine
// over a bounded worker pool, feeding each evaluation from the configured
// market-data provider.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/engine"
	"github.com/vinnzy/stockreco/internal/logging"
	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/internal/provider"
)

// Pipeline runs one as-of date's evaluation across many symbols.
type Pipeline struct {
	eng      *engine.Engine
	provider provider.Provider
	workers  int
	log      zerolog.Logger
}

// New creates a pipeline over the given engine and provider.
func New(eng *engine.Engine, p provider.Provider, cfg config.ProviderConfig, logger zerolog.Logger) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		eng:      eng,
		provider: p,
		workers:  workers,
		log:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run evaluates each symbol that has a signal row and returns one
// recommendation per symbol, in the input symbol order. Provider failures
// for a symbol degrade to a HOLD explaining the failure; they never abort
// the batch. Symbols with no signal row are skipped.
func (p *Pipeline) Run(ctx context.Context, asOf time.Time, symbols []string, signals map[string]models.SignalRow) []models.OptionReco {
	type job struct {
		idx    int
		symbol string
		sig    models.SignalRow
	}

	jobs := make([]job, 0, len(symbols))
	for i, sym := range symbols {
		sig, ok := signals[sym]
		if !ok {
			p.log.Warn().Str("symbol", sym).Msg("No signal row; skipping")
			continue
		}
		jobs = append(jobs, job{idx: i, symbol: sym, sig: sig})
	}

	// Index-addressed so workers can write results without coordination and
	// the output keeps the input ordering.
	results := make([]models.OptionReco, len(jobs))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				j := jobs[i]
				results[i] = p.evaluate(ctx, asOf, j.symbol, j.sig)
			}
		}()
	}

	for i := range jobs {
		select {
		case <-ctx.Done():
		case jobCh <- i:
			continue
		}
		break
	}
	close(jobCh)
	wg.Wait()

	// A cancelled run leaves zero-value slots; report them as HOLDs too.
	for i := range results {
		if results[i].Symbol == "" {
			results[i] = p.dataFailureHold(asOf, jobs[i].symbol, ctx.Err())
		}
	}

	p.log.Info().Int("symbols", len(jobs)).Int("workers", p.workers).Msg("Pipeline run complete")
	return results
}

func (p *Pipeline) evaluate(ctx context.Context, asOf time.Time, symbol string, sig models.SignalRow) models.OptionReco {
	underlying, err := p.provider.Underlying(ctx, symbol, asOf)
	if err != nil {
		return p.dataFailureHold(asOf, symbol, err)
	}
	chain, err := p.provider.OptionChain(ctx, symbol, asOf)
	if err != nil {
		return p.dataFailureHold(asOf, symbol, err)
	}
	return p.eng.Recommend(asOf, symbol, sig, underlying, chain)
}

// dataFailureHold is the degraded outcome for a symbol whose market data
// could not be loaded. The reviewer recognizes the rationale prefix and
// rejects it rather than passing it through.
func (p *Pipeline) dataFailureHold(asOf time.Time, symbol string, err error) models.OptionReco {
	symLog := logging.WithSymbol(p.log, symbol)
	symLog.Error().Err(err).Msg("Data load failed; emitting HOLD")
	return models.OptionReco{
		AsOf:       asOf,
		AsOfDate:   asOf.Format(models.DateFormat),
		Symbol:     symbol,
		Bias:       models.BiasNeutral,
		Instrument: models.InstrumentNone,
		Action:     models.ActionHold,
		Confidence: 0,
		Rationale:  []string{fmt.Sprintf("Failed to load derivatives/provider data: %v", err)},
	}
}
