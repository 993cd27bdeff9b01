package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/engine"
	"github.com/vinnzy/stockreco/internal/models"
)

var testAsOf = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

// fakeProvider serves canned data and fails on demand.
type fakeProvider struct {
	spot    float64
	chain   []models.OptionChainRow
	failFor map[string]error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Underlying(ctx context.Context, symbol string, asOf time.Time) (models.UnderlyingSnapshot, error) {
	if err := f.failFor[symbol]; err != nil {
		return models.UnderlyingSnapshot{}, err
	}
	return models.UnderlyingSnapshot{Symbol: symbol, Spot: f.spot, ObservedAt: asOf}, nil
}

func (f *fakeProvider) OptionChain(ctx context.Context, symbol string, asOf time.Time) ([]models.OptionChainRow, error) {
	if err := f.failFor[symbol]; err != nil {
		return nil, err
	}
	return f.chain, nil
}

func testChain() []models.OptionChainRow {
	return []models.OptionChainRow{{
		Strike: 1010,
		Expiry: testAsOf.AddDate(0, 0, 10),
		Side:   models.SideCall,
		LTP:    15,
		OI:     5000,
		Volume: 3000,
	}}
}

func newTestPipeline(p *fakeProvider, workers int) *Pipeline {
	cfg := config.Default()
	cfg.Provider.Workers = workers
	eng := engine.New(cfg.Engine, zerolog.Nop())
	return New(eng, p, cfg.Provider, zerolog.Nop())
}

func signalsFor(symbols ...string) map[string]models.SignalRow {
	out := make(map[string]models.SignalRow, len(symbols))
	for _, s := range symbols {
		out[s] = models.SignalRow{Ticker: s, DirectionScore: 0.5, ATRPoints: 20}
	}
	return out
}

func TestRun_PreservesSymbolOrder(t *testing.T) {
	p := &fakeProvider{spot: 1000, chain: testChain()}
	pipe := newTestPipeline(p, 4)

	symbols := []string{"RELIANCE", "TCS", "INFY", "HDFCBANK", "SBIN"}
	results := pipe.Run(context.Background(), testAsOf, symbols, signalsFor(symbols...))

	if len(results) != len(symbols) {
		t.Fatalf("got %d results, want %d", len(results), len(symbols))
	}
	for i, sym := range symbols {
		if results[i].Symbol != sym {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Symbol, sym)
		}
		if results[i].Action != models.ActionBuy {
			t.Errorf("%s: action = %s, want BUY", sym, results[i].Action)
		}
	}
}

func TestRun_ProviderFailureDegradesToHold(t *testing.T) {
	p := &fakeProvider{
		spot:    1000,
		chain:   testChain(),
		failFor: map[string]error{"TCS": errors.New("connection reset")},
	}
	pipe := newTestPipeline(p, 2)

	symbols := []string{"RELIANCE", "TCS", "INFY"}
	results := pipe.Run(context.Background(), testAsOf, symbols, signalsFor(symbols...))

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	failed := results[1]
	if failed.Symbol != "TCS" || failed.Action != models.ActionHold {
		t.Fatalf("failed symbol should degrade to HOLD, got %+v", failed)
	}
	if len(failed.Rationale) == 0 || !strings.HasPrefix(failed.Rationale[0], "Failed to load derivatives/provider data:") {
		t.Errorf("rationale %v should carry the data-failure prefix", failed.Rationale)
	}
	if results[0].Action != models.ActionBuy || results[2].Action != models.ActionBuy {
		t.Error("healthy symbols must not be affected by one failure")
	}
}

func TestRun_SkipsSymbolsWithoutSignals(t *testing.T) {
	p := &fakeProvider{spot: 1000, chain: testChain()}
	pipe := newTestPipeline(p, 2)

	results := pipe.Run(context.Background(), testAsOf, []string{"RELIANCE", "UNKNOWN"}, signalsFor("RELIANCE"))

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (no signal row for UNKNOWN)", len(results))
	}
	if results[0].Symbol != "RELIANCE" {
		t.Errorf("results[0] = %s, want RELIANCE", results[0].Symbol)
	}
}

func TestRun_SingleWorker(t *testing.T) {
	p := &fakeProvider{spot: 1000, chain: testChain()}
	pipe := newTestPipeline(p, 1)

	symbols := []string{"A1", "B2", "C3"}
	results := pipe.Run(context.Background(), testAsOf, symbols, signalsFor(symbols...))
	for i, sym := range symbols {
		if results[i].Symbol != sym {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Symbol, sym)
		}
	}
}
