package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/vinnzy/stockreco/internal/config"
	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/logging"
	"github.com/vinnzy/stockreco/internal/models"
	"github.com/vinnzy/stockreco/pkg/utils"
)

// quoteBatchSize caps instruments per GetQuote call, per Kite API limits.
const quoteBatchSize = 200

// Kite fetches live data from the Kite Connect API. The NFO instrument
// master is downloaded once and cached for the process lifetime.
type Kite struct {
	client *kiteconnect.Client
	log    zerolog.Logger
	retry  utils.RetryConfig

	mu          sync.Mutex
	instruments kiteconnect.Instruments
}

// NewKite creates a Kite-backed provider. The access token must already be
// generated; this provider does not run the login flow.
func NewKite(cfg config.ProviderConfig, logger zerolog.Logger) (*Kite, error) {
	if cfg.KiteAPIKey == "" || cfg.AccessToken == "" {
		return nil, apperrors.NewValidationError("provider.kite", "", "kite_api_key and kite_access_token are required")
	}
	client := kiteconnect.New(cfg.KiteAPIKey)
	client.SetAccessToken(cfg.AccessToken)
	return &Kite{
		client: client,
		log:    logger.With().Str("provider", "kite").Logger(),
		retry:  utils.DefaultRetryConfig(),
	}, nil
}

// Name identifies the provider.
func (p *Kite) Name() string { return "kite" }

// Underlying fetches the last traded price for symbol from NSE.
func (p *Kite) Underlying(ctx context.Context, symbol string, asOf time.Time) (models.UnderlyingSnapshot, error) {
	instrument := "NSE:" + strings.ToUpper(symbol)

	var ltp kiteconnect.QuoteLTP
	start := time.Now()
	err := utils.Retry(ctx, p.retry, func() error {
		var err error
		ltp, err = p.client.GetLTP(instrument)
		return err
	})
	logging.LogProviderCall(p.log, p.Name(), "ltp", symbol, time.Since(start), err)
	if err != nil {
		return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol, err)
	}

	q, ok := ltp[instrument]
	if !ok || q.LastPrice <= 0 {
		return models.UnderlyingSnapshot{}, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrNoSpot)
	}
	return models.UnderlyingSnapshot{Symbol: symbol, Spot: q.LastPrice, ObservedAt: asOf}, nil
}

// OptionChain resolves symbol's NFO option contracts from the instrument
// master and quotes them in batches.
func (p *Kite) OptionChain(ctx context.Context, symbol string, asOf time.Time) ([]models.OptionChainRow, error) {
	contracts, err := p.optionContracts(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrEmptyChain)
	}

	chain := make([]models.OptionChainRow, 0, len(contracts))
	for lo := 0; lo < len(contracts); lo += quoteBatchSize {
		hi := lo + quoteBatchSize
		if hi > len(contracts) {
			hi = len(contracts)
		}
		batch := contracts[lo:hi]

		keys := make([]string, len(batch))
		for i, inst := range batch {
			keys[i] = "NFO:" + inst.Tradingsymbol
		}

		var quotes kiteconnect.Quote
		start := time.Now()
		err := utils.Retry(ctx, p.retry, func() error {
			var err error
			quotes, err = p.client.GetQuote(keys...)
			return err
		})
		logging.LogProviderCall(p.log, p.Name(), "quote", symbol, time.Since(start), err)
		if err != nil {
			return nil, apperrors.NewProviderError(p.Name(), symbol, err)
		}

		for i, inst := range batch {
			q, ok := quotes[keys[i]]
			if !ok {
				continue
			}
			var bid, ask float64
			if len(q.Depth.Buy) > 0 {
				bid = q.Depth.Buy[0].Price
			}
			if len(q.Depth.Sell) > 0 {
				ask = q.Depth.Sell[0].Price
			}
			// Kite quotes carry no net OI change figure; OIChange stays zero.
			chain = append(chain, models.OptionChainRow{
				Strike:  inst.StrikePrice,
				Expiry:  inst.Expiry.Time,
				Side:    models.Side(inst.InstrumentType),
				LTP:     q.LastPrice,
				Bid:     bid,
				Ask:     ask,
				DayHigh: q.OHLC.High,
				DayLow:  q.OHLC.Low,
				Volume:  float64(q.Volume),
				OI:      q.OI,
			})
		}
	}

	if len(chain) == 0 {
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrEmptyChain)
	}
	return chain, nil
}

// optionContracts filters the cached NFO instrument master for symbol's
// CE/PE contracts.
func (p *Kite) optionContracts(ctx context.Context, symbol string) ([]kiteconnect.Instrument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.instruments == nil {
		start := time.Now()
		err := utils.Retry(ctx, p.retry, func() error {
			var err error
			p.instruments, err = p.client.GetInstrumentsByExchange("NFO")
			return err
		})
		logging.LogProviderCall(p.log, p.Name(), "instruments", "NFO", time.Since(start), err)
		if err != nil {
			p.instruments = nil
			return nil, apperrors.NewProviderError(p.Name(), symbol,
				fmt.Errorf("downloading NFO instrument master: %w", err))
		}
		p.log.Info().Int("count", len(p.instruments)).Msg("Cached NFO instrument master")
	}

	name := strings.ToUpper(symbol)
	var out []kiteconnect.Instrument
	for _, inst := range p.instruments {
		if inst.Name != name {
			continue
		}
		if inst.InstrumentType != string(models.SideCall) && inst.InstrumentType != string(models.SidePut) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}
