package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/vinnzy/stockreco/internal/errors"
	"github.com/vinnzy/stockreco/internal/models"
)

var testAsOf = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func writeDataDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	dateDir := filepath.Join(dir, testAsOf.Format(models.DateFormat))
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dateDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLocalCSV_Underlying(t *testing.T) {
	dir := writeDataDir(t, map[string]string{
		"spots.csv": "ticker,close\nRELIANCE,2850.50\nTCS,4100\n",
	})
	p := NewLocalCSV(dir, zerolog.Nop())

	snap, err := p.Underlying(context.Background(), "RELIANCE", testAsOf)
	if err != nil {
		t.Fatalf("Underlying: %v", err)
	}
	if snap.Spot != 2850.50 {
		t.Errorf("spot = %v, want 2850.50", snap.Spot)
	}

	// Ticker matching is case-insensitive.
	if _, err := p.Underlying(context.Background(), "tcs", testAsOf); err != nil {
		t.Errorf("lowercase lookup failed: %v", err)
	}

	_, err = p.Underlying(context.Background(), "MISSING", testAsOf)
	if !errors.Is(err, apperrors.ErrSymbolNotFound) {
		t.Errorf("want ErrSymbolNotFound, got %v", err)
	}
}

func TestLocalCSV_OptionChain(t *testing.T) {
	dir := writeDataDir(t, map[string]string{
		"RELIANCE_options.csv": "strike,expiry,type,ltp,bid,ask,day_high,day_low,volume,oi,oi_change,iv\n" +
			"2850,28-Aug-2026,CE,42.5,42,43,50,38,12000,45000,1500,0.22\n" +
			"2850,2026-08-28,PE,39.0,38.5,39.5,44,35,9000,38000,-500,0.24\n" +
			"2900,28-Aug-2026,XX,1.0,0,0,0,0,10,10,0,0\n",
	})
	p := NewLocalCSV(dir, zerolog.Nop())

	chain, err := p.OptionChain(context.Background(), "reliance", testAsOf)
	if err != nil {
		t.Fatalf("OptionChain: %v", err)
	}
	// The unknown side row is dropped; both expiry formats parse.
	if len(chain) != 2 {
		t.Fatalf("got %d rows, want 2", len(chain))
	}
	wantExpiry := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	for _, r := range chain {
		if !r.Expiry.Equal(wantExpiry) {
			t.Errorf("expiry = %v, want %v", r.Expiry, wantExpiry)
		}
	}
	if chain[0].Side != models.SideCall || chain[0].LTP != 42.5 || chain[0].OI != 45000 {
		t.Errorf("call row mismatch: %+v", chain[0])
	}
	if chain[1].Side != models.SidePut || chain[1].OIChange != -500 {
		t.Errorf("put row mismatch: %+v", chain[1])
	}
}

func TestLocalCSV_MissingChainFile(t *testing.T) {
	dir := writeDataDir(t, map[string]string{"spots.csv": "ticker,close\nX,1\n"})
	p := NewLocalCSV(dir, zerolog.Nop())

	_, err := p.OptionChain(context.Background(), "RELIANCE", testAsOf)
	if !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("want ErrDataNotFound, got %v", err)
	}

	var provErr *apperrors.ProviderError
	if !errors.As(err, &provErr) || provErr.Symbol != "RELIANCE" {
		t.Errorf("error should identify the provider and symbol: %v", err)
	}
}

func TestLoadSignals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.csv")
	content := "ticker,buy_win,sell_win,buy_soft,sell_soft,direction_score,atr_points,atr_pct,volatility_annualized,fii_sentiment,smart_money,pcr,bulk_deal\n" +
		"RELIANCE,1,0,0.6,0.1,0.45,38.2,0.0134,0.28,0.4,0.5,1.1,true\n" +
		"tcs,0,1,0.1,0.7,-0.38,55.0,0.0134,0.31,-0.2,-0.4,1.6,false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	signals, err := LoadSignals(path)
	if err != nil {
		t.Fatalf("LoadSignals: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d rows, want 2", len(signals))
	}

	rel := signals["RELIANCE"]
	if rel.DirectionScore != 0.45 || rel.BuyWin != 1 || !rel.BulkDeal {
		t.Errorf("RELIANCE row mismatch: %+v", rel)
	}
	// Tickers are keyed upper-case.
	if _, ok := signals["TCS"]; !ok {
		t.Error("lowercase ticker should be keyed upper-case")
	}

	if _, err := LoadSignals(filepath.Join(dir, "absent.csv")); err == nil {
		t.Error("expected error for missing signal file")
	}
}
