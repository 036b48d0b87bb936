package main

import (
	"fmt"
	"os"

	"RailScan/internal/di"
	"RailScan/internal/domain/models"
	"RailScan/internal/usecase"
	"RailScan/pkg/cache"
	"RailScan/pkg/config"
	"RailScan/pkg/logger"
	"RailScan/pkg/metrics"

	"github.com/spf13/cobra"
)

// Shared flags
var (
	flagConfig   string
	flagPeriod   string
	flagLookback int
	flagLog      bool
	flagTP       float64
	flagSL       float64
	flagHorizon  int
	flagFormat   string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "railscan",
	Short: "Regression channel signals with a first-hit TP/SL backtest",
	Long: `railscan fits a regression channel over daily closes, derives a LONG,
SHORT or HOLD signal from the rails around the last price, and backtests the
TP/SL pair over history that moved like today.

Examples:
  railscan analyze AAPL
  railscan analyze SPY --lookback 120 --log=false --tp 4 --sl 2
  railscan scan AAPL MSFT NVDA --format json`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&flagPeriod, "period", "", "history period (6mo|1y|2y|5y|10y|max)")
	pf.IntVar(&flagLookback, "lookback", 0, "regression window in bars")
	pf.BoolVar(&flagLog, "log", true, "fit on log closes")
	pf.Float64Var(&flagTP, "tp", 0, "take-profit percent")
	pf.Float64Var(&flagSL, "sl", 0, "stop-loss percent")
	pf.IntVar(&flagHorizon, "horizon", 0, "backtest horizon in bars")
	pf.StringVar(&flagFormat, "format", "table", "output format (table|json)")
	pf.BoolVar(&flagVerbose, "verbose", false, "log provider activity to stderr")

	rootCmd.AddCommand(analyzeCmd, scanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config or falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.Parse(nil)
}

// params overlays the flags that were set onto the configured defaults.
func params(cmd *cobra.Command, cfg *config.Config) (models.AnalysisParams, error) {
	p := models.AnalysisParams{
		Period:   cfg.Scanner.Period,
		Lookback: cfg.Scanner.Lookback,
		UseLog:   cfg.Scanner.UseLog,
		TPPct:    cfg.Scanner.TPPct,
		SLPct:    cfg.Scanner.SLPct,
		Horizon:  cfg.Scanner.Horizon,
	}
	flags := cmd.Flags()
	if flags.Changed("period") {
		p.Period = flagPeriod
	}
	if flags.Changed("lookback") {
		p.Lookback = flagLookback
	}
	// without a config file the flag default decides
	if flags.Changed("log") || flagConfig == "" {
		p.UseLog = flagLog
	}
	if flags.Changed("tp") {
		p.TPPct = flagTP
	}
	if flags.Changed("sl") {
		p.SLPct = flagSL
	}
	if flags.Changed("horizon") {
		p.Horizon = flagHorizon
	}

	switch {
	case p.TPPct <= 0:
		return p, fmt.Errorf("--tp must be positive")
	case p.SLPct <= 0 || p.SLPct >= 100:
		return p, fmt.Errorf("--sl must be in (0, 100)")
	case p.Horizon < 1:
		return p, fmt.Errorf("--horizon must be positive")
	case flagFormat != "table" && flagFormat != "json":
		return p, fmt.Errorf("--format must be table or json")
	}
	return p, nil
}

// newScanner builds an in-process stack: live providers, memory cache, no
// publishers.
func newScanner(cfg *config.Config) (*usecase.Analyzer, *usecase.Scanner, error) {
	level := "error"
	if flagVerbose {
		level = "debug"
	}
	lgr, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, err
	}

	loader := di.ProvideLoader(cfg, nil, lgr)
	analyzer := di.ProvideAnalyzer(cfg, loader, cache.NewMemoryCache(), metrics.Nop{}, lgr)
	scanner := di.ProvideScanner(cfg, analyzer, nil, lgr)
	return analyzer, scanner, nil
}
