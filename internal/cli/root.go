package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinnzy/stockreco/internal/analyst"
	"github.com/vinnzy/stockreco/internal/config"
	"github.com/vinnzy/stockreco/internal/logging"
	"github.com/vinnzy/stockreco/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   *store.SQLiteStore
	Analyst *analyst.Analyst
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Report.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, persistence disabled")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Report.DBPath).Msg("SQLite store initialized")
	}

	if cfg.LLM.APIKey != "" {
		app.Analyst = analyst.New(cfg.LLM, logger)
		logger.Debug().Str("model", cfg.LLM.Model).Msg("LLM analyst initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "stockreco",
		Short: "Option recommendation engine for the Indian derivatives market",
		Long: `stockreco turns per-symbol directional signals and option chain data into
reviewed long option recommendations: side, strike, expiry, entry, stop-loss,
targets, confidence and a time-boxed exit date.

Use 'stockreco recommend' to generate recommendations for one as-of date and
'stockreco review' to run the full recommend-then-review pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stockreco)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRecommendCmd(app))
	rootCmd.AddCommand(newReviewCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("stockreco v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Engine Configuration")
	output.Printf("  Mode:              %s\n", cfg.Engine.Mode)
	output.Printf("  Risk-free Rate:    %.2f%%\n", cfg.Engine.RiskFreeRate*100)
	output.Printf("  Margin Period:     %d days\n", cfg.Engine.MarginPeriodDays)
	output.Printf("  Theta Burn Budget: %.0f%% of extrinsic\n", cfg.Engine.ThetaBurnBudget*100)
	output.Println()

	output.Bold("Reviewer Configuration")
	output.Printf("  Mode:              %s\n", cfg.Reviewer.Mode)
	output.Printf("  High Vol Proxy:    %.1f\n", cfg.Reviewer.HighVolProxy)
	output.Printf("  Low Vol Proxy:     %.1f\n", cfg.Reviewer.LowVolProxy)
	output.Printf("  Max Entry/Strike:  %.0f%%\n", cfg.Reviewer.MaxEntryStrikeRatio*100)
	output.Println()

	output.Bold("Provider Configuration")
	output.Printf("  Name:              %s\n", cfg.Provider.Name)
	output.Printf("  Data Dir:          %s\n", cfg.Provider.DataDir)
	output.Printf("  Workers:           %d\n", cfg.Provider.Workers)
	output.Println()

	output.Bold("Report Configuration")
	output.Printf("  Output Dir:        %s\n", cfg.Report.OutDir)
	output.Printf("  Database:          %s\n", cfg.Report.DBPath)

	return nil
}
