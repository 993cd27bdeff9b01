// Package config provides configuration management for the recommendation
// engine and reviewer. Invalid thresholds fail at load time, never during
// per-symbol evaluation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/vinnzy/stockreco/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Reviewer ReviewerConfig `mapstructure:"reviewer"`
	Provider ProviderConfig `mapstructure:"provider"`
	Report   ReportConfig   `mapstructure:"report"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ModeThresholds holds the per-mode decision thresholds. The engine reads
// them through a table keyed by mode so new modes stay localized here.
type ModeThresholds struct {
	MinDirectionScore   float64 `mapstructure:"min_direction_score"`
	MinDTE              int     `mapstructure:"min_dte"`
	MaxDTE              int     `mapstructure:"max_dte"`
	MoneynessBandATR    float64 `mapstructure:"moneyness_band_atr"`
	MinOI               float64 `mapstructure:"min_oi"`
	MinVolume           float64 `mapstructure:"min_volume"`
	EntrySlippage       float64 `mapstructure:"entry_slippage"`
	MaxLossFraction     float64 `mapstructure:"max_loss_fraction"`
	Target1RR           float64 `mapstructure:"target1_rr"`
	Target2RR           float64 `mapstructure:"target2_rr"`
	BuyConfidenceFloor  float64 `mapstructure:"buy_confidence_floor"`
	HoldConfidenceFloor float64 `mapstructure:"hold_confidence_floor"`
	MinRangeATRPct      float64 `mapstructure:"min_range_atr_pct"` // 0 disables the range branch
}

// EngineConfig holds the recommendation engine configuration.
type EngineConfig struct {
	Mode             models.Mode                    `mapstructure:"mode"`
	RiskFreeRate     float64                        `mapstructure:"risk_free_rate"`
	MarginPeriodDays int                            `mapstructure:"margin_period_days"`
	ThetaBurnBudget  float64                        `mapstructure:"theta_burn_budget"` // fraction of extrinsic
	IndexSymbols     []string                       `mapstructure:"index_symbols"`
	Modes            map[models.Mode]ModeThresholds `mapstructure:"modes"`
}

// Thresholds returns the threshold set for the configured mode.
func (c EngineConfig) Thresholds() ModeThresholds {
	return c.Modes[c.Mode]
}

// IsIndex reports whether symbol is a cash-settled index underlying, which
// is exempt from the physical-settlement expiry-week cap.
func (c EngineConfig) IsIndex(symbol string) bool {
	for _, s := range c.IndexSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// ReviewThresholds holds the per-mode reviewer acceptance thresholds.
type ReviewThresholds struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	MinDTE        int     `mapstructure:"min_dte"`
	MaxIVPct      float64 `mapstructure:"max_iv_pct"`
	MaxThetaPct   float64 `mapstructure:"max_theta_pct"` // |theta/day| / entry
}

// ReviewerConfig holds the reviewer configuration.
type ReviewerConfig struct {
	Mode                models.Mode                      `mapstructure:"mode"`
	HighVolProxy        float64                          `mapstructure:"high_vol_proxy"` // escalate to strict above this
	LowVolProxy         float64                          `mapstructure:"low_vol_proxy"`  // relax strict below this
	MinOI               float64                          `mapstructure:"min_oi"`         // 0 = no liquidity check
	MaxEntryStrikeRatio float64                          `mapstructure:"max_entry_strike_ratio"`
	Thresholds          map[models.Mode]ReviewThresholds `mapstructure:"thresholds"`
}

// ProviderConfig holds data-provider configuration.
type ProviderConfig struct {
	Name        string `mapstructure:"name"` // local_csv | kite
	DataDir     string `mapstructure:"data_dir"`
	KiteAPIKey  string `mapstructure:"kite_api_key"`
	AccessToken string `mapstructure:"kite_access_token"`
	Workers     int    `mapstructure:"workers"`
}

// ReportConfig holds report-output configuration.
type ReportConfig struct {
	OutDir string `mapstructure:"out_dir"`
	DBPath string `mapstructure:"db_path"`
}

// LLMConfig holds the optional qualitative analyst configuration.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stockreco"
	}
	return filepath.Join(home, ".config", "stockreco")
}

// DefaultModeThresholds returns the built-in per-mode threshold table.
func DefaultModeThresholds() map[models.Mode]ModeThresholds {
	return map[models.Mode]ModeThresholds{
		models.ModeStrict: {
			MinDirectionScore:   0.20,
			MinDTE:              5,
			MaxDTE:              45,
			MoneynessBandATR:    1.0,
			MinOI:               1000,
			MinVolume:           500,
			EntrySlippage:       0.03,
			MaxLossFraction:     0.30,
			Target1RR:           1.5,
			Target2RR:           2.5,
			BuyConfidenceFloor:  0.35,
			HoldConfidenceFloor: 0.10,
			MinRangeATRPct:      0, // strict never takes the range branch
		},
		models.ModeOpportunistic: {
			MinDirectionScore:   0.12,
			MinDTE:              2,
			MaxDTE:              40,
			MoneynessBandATR:    1.5,
			MinOI:               1000,
			MinVolume:           500,
			EntrySlippage:       0.03,
			MaxLossFraction:     0.35,
			Target1RR:           1.5,
			Target2RR:           3.0,
			BuyConfidenceFloor:  0.28,
			HoldConfidenceFloor: 0.10,
			MinRangeATRPct:      0.015,
		},
		models.ModeSpeculative: {
			MinDirectionScore:   0.08,
			MinDTE:              1,
			MaxDTE:              30,
			MoneynessBandATR:    2.0,
			MinOI:               1000,
			MinVolume:           500,
			EntrySlippage:       0.03,
			MaxLossFraction:     0.40,
			Target1RR:           2.0,
			Target2RR:           4.0,
			BuyConfidenceFloor:  0.22,
			HoldConfidenceFloor: 0.10,
			MinRangeATRPct:      0.012,
		},
	}
}

// DefaultReviewThresholds returns the built-in reviewer threshold table.
func DefaultReviewThresholds() map[models.Mode]ReviewThresholds {
	return map[models.Mode]ReviewThresholds{
		models.ModeStrict:        {MinConfidence: 0.35, MinDTE: 5, MaxIVPct: 60, MaxThetaPct: 0.08},
		models.ModeOpportunistic: {MinConfidence: 0.28, MinDTE: 2, MaxIVPct: 80, MaxThetaPct: 0.12},
		models.ModeSpeculative:   {MinConfidence: 0.22, MinDTE: 1, MaxIVPct: 100, MaxThetaPct: 0.15},
	}
}

// Default returns a fully-populated configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:             models.ModeStrict,
			RiskFreeRate:     0.065,
			MarginPeriodDays: 5,
			ThetaBurnBudget:  0.5,
			IndexSymbols:     []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"},
			Modes:            DefaultModeThresholds(),
		},
		Reviewer: ReviewerConfig{
			Mode:                models.ModeStrict,
			HighVolProxy:        22.0,
			LowVolProxy:         12.0,
			MinOI:               0,
			MaxEntryStrikeRatio: 0.15,
			Thresholds:          DefaultReviewThresholds(),
		},
		Provider: ProviderConfig{
			Name:    "local_csv",
			DataDir: "data/derivatives",
			Workers: 4,
		},
		Report: ReportConfig{
			OutDir: "reports",
			DBPath: filepath.Join(DefaultConfigDir(), "stockreco.db"),
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Load loads configuration from stockreco.toml in the specified directory,
// falling back to built-in defaults when the file is absent. If configDir is
// empty, the default config directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("stockreco")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading stockreco.toml: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing stockreco.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Provider.KiteAPIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Provider.AccessToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("RECO_MODE"); v != "" {
		cfg.Engine.Mode = models.Mode(v)
		cfg.Reviewer.Mode = models.Mode(v)
	}
}

// Validate validates the configuration. Misconfiguration is a load-time
// failure so per-symbol evaluation never sees a bad threshold.
func (c *Config) Validate() error {
	if !c.Engine.Mode.Valid() {
		return fmt.Errorf("invalid engine mode: %q (must be strict, opportunistic or speculative)", c.Engine.Mode)
	}
	if !c.Reviewer.Mode.Valid() {
		return fmt.Errorf("invalid reviewer mode: %q", c.Reviewer.Mode)
	}
	if c.Engine.RiskFreeRate < 0 || c.Engine.RiskFreeRate > 0.5 {
		return fmt.Errorf("risk_free_rate %.3f out of range [0, 0.5]", c.Engine.RiskFreeRate)
	}
	if c.Engine.MarginPeriodDays < 0 {
		return fmt.Errorf("margin_period_days must be non-negative")
	}
	if c.Engine.ThetaBurnBudget <= 0 || c.Engine.ThetaBurnBudget > 1 {
		return fmt.Errorf("theta_burn_budget %.2f out of range (0, 1]", c.Engine.ThetaBurnBudget)
	}
	for mode, th := range c.Engine.Modes {
		if th.MinDirectionScore < 0 {
			return fmt.Errorf("%s: min_direction_score must be non-negative", mode)
		}
		if th.MinDTE < 0 || th.MaxDTE < th.MinDTE {
			return fmt.Errorf("%s: DTE window [%d, %d] is invalid", mode, th.MinDTE, th.MaxDTE)
		}
		if th.MoneynessBandATR <= 0 {
			return fmt.Errorf("%s: moneyness_band_atr must be positive", mode)
		}
		if th.MinOI < 0 || th.MinVolume < 0 {
			return fmt.Errorf("%s: liquidity minimums must be non-negative", mode)
		}
		if th.EntrySlippage < 0 || th.EntrySlippage >= 1 {
			return fmt.Errorf("%s: entry_slippage %.3f out of range [0, 1)", mode, th.EntrySlippage)
		}
		if th.MaxLossFraction <= 0 || th.MaxLossFraction >= 1 {
			return fmt.Errorf("%s: max_loss_fraction %.3f out of range (0, 1)", mode, th.MaxLossFraction)
		}
		if th.Target1RR <= 0 || th.Target2RR < th.Target1RR {
			return fmt.Errorf("%s: reward multiples %.2f/%.2f are invalid", mode, th.Target1RR, th.Target2RR)
		}
		if th.BuyConfidenceFloor < 0 || th.BuyConfidenceFloor > 0.95 {
			return fmt.Errorf("%s: buy_confidence_floor %.2f out of range [0, 0.95]", mode, th.BuyConfidenceFloor)
		}
		if th.MinRangeATRPct < 0 {
			return fmt.Errorf("%s: min_range_atr_pct must be non-negative", mode)
		}
	}
	for mode, th := range c.Reviewer.Thresholds {
		if th.MinConfidence < 0 || th.MinConfidence > 1 {
			return fmt.Errorf("reviewer %s: min_confidence %.2f out of range [0, 1]", mode, th.MinConfidence)
		}
		if th.MinDTE < 0 {
			return fmt.Errorf("reviewer %s: min_dte must be non-negative", mode)
		}
		if th.MaxIVPct <= 0 {
			return fmt.Errorf("reviewer %s: max_iv_pct must be positive", mode)
		}
		if th.MaxThetaPct <= 0 {
			return fmt.Errorf("reviewer %s: max_theta_pct must be positive", mode)
		}
	}
	if c.Reviewer.MaxEntryStrikeRatio <= 0 {
		return fmt.Errorf("reviewer max_entry_strike_ratio must be positive")
	}
	if c.Reviewer.LowVolProxy > c.Reviewer.HighVolProxy {
		return fmt.Errorf("reviewer low_vol_proxy %.1f exceeds high_vol_proxy %.1f", c.Reviewer.LowVolProxy, c.Reviewer.HighVolProxy)
	}
	if c.Provider.Workers <= 0 {
		return fmt.Errorf("provider workers must be positive")
	}
	return nil
}
