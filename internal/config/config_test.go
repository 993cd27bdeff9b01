package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vinnzy/stockreco/internal/models"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine mode", func(c *Config) { c.Engine.Mode = "yolo" }},
		{"unknown reviewer mode", func(c *Config) { c.Reviewer.Mode = "relaxed" }},
		{"negative risk-free rate", func(c *Config) { c.Engine.RiskFreeRate = -0.01 }},
		{"zero theta burn budget", func(c *Config) { c.Engine.ThetaBurnBudget = 0 }},
		{"inverted DTE window", func(c *Config) {
			th := c.Engine.Modes[models.ModeStrict]
			th.MinDTE, th.MaxDTE = 10, 5
			c.Engine.Modes[models.ModeStrict] = th
		}},
		{"zero moneyness band", func(c *Config) {
			th := c.Engine.Modes[models.ModeOpportunistic]
			th.MoneynessBandATR = 0
			c.Engine.Modes[models.ModeOpportunistic] = th
		}},
		{"slippage of one", func(c *Config) {
			th := c.Engine.Modes[models.ModeStrict]
			th.EntrySlippage = 1.0
			c.Engine.Modes[models.ModeStrict] = th
		}},
		{"max loss fraction of one", func(c *Config) {
			th := c.Engine.Modes[models.ModeSpeculative]
			th.MaxLossFraction = 1.0
			c.Engine.Modes[models.ModeSpeculative] = th
		}},
		{"second target below first", func(c *Config) {
			th := c.Engine.Modes[models.ModeStrict]
			th.Target1RR, th.Target2RR = 2.0, 1.5
			c.Engine.Modes[models.ModeStrict] = th
		}},
		{"reviewer confidence above one", func(c *Config) {
			th := c.Reviewer.Thresholds[models.ModeStrict]
			th.MinConfidence = 1.2
			c.Reviewer.Thresholds[models.ModeStrict] = th
		}},
		{"inverted vol proxy band", func(c *Config) {
			c.Reviewer.LowVolProxy, c.Reviewer.HighVolProxy = 25, 12
		}},
		{"zero workers", func(c *Config) { c.Provider.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestThresholds_FollowsMode(t *testing.T) {
	cfg := Default().Engine
	cfg.Mode = models.ModeSpeculative
	th := cfg.Thresholds()
	if th.MaxDTE != 30 {
		t.Errorf("speculative max DTE = %d, want 30", th.MaxDTE)
	}
	cfg.Mode = models.ModeStrict
	if cfg.Thresholds().MinDTE != 5 {
		t.Errorf("strict min DTE = %d, want 5", cfg.Thresholds().MinDTE)
	}
}

func TestIsIndex(t *testing.T) {
	cfg := Default().Engine
	if !cfg.IsIndex("NIFTY") || !cfg.IsIndex("BANKNIFTY") {
		t.Error("standard indices should be recognized")
	}
	if cfg.IsIndex("RELIANCE") {
		t.Error("stocks must not be treated as indices")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}
	if cfg.Engine.Mode != models.ModeStrict {
		t.Errorf("default mode = %s, want strict", cfg.Engine.Mode)
	}
	if cfg.Engine.MarginPeriodDays != 5 {
		t.Errorf("default margin period = %d, want 5", cfg.Engine.MarginPeriodDays)
	}
}

func TestLoad_FileOverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	toml := `
[engine]
mode = "opportunistic"
risk_free_rate = 0.07

[provider]
workers = 8
`
	if err := os.WriteFile(filepath.Join(dir, "stockreco.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != models.ModeOpportunistic {
		t.Errorf("mode = %s, want opportunistic", cfg.Engine.Mode)
	}
	if cfg.Engine.RiskFreeRate != 0.07 {
		t.Errorf("risk_free_rate = %v, want 0.07", cfg.Engine.RiskFreeRate)
	}
	if cfg.Provider.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Provider.Workers)
	}

	// Bad values in the file fail at load time.
	bad := `
[engine]
mode = "cowboy"
`
	if err := os.WriteFile(filepath.Join(dir, "stockreco.toml"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected load failure for invalid mode")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECO_MODE", "speculative")
	t.Setenv("KITE_API_KEY", "k123")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != models.ModeSpeculative || cfg.Reviewer.Mode != models.ModeSpeculative {
		t.Errorf("RECO_MODE should override both modes, got %s/%s", cfg.Engine.Mode, cfg.Reviewer.Mode)
	}
	if cfg.Provider.KiteAPIKey != "k123" {
		t.Errorf("KITE_API_KEY override missing")
	}
}
