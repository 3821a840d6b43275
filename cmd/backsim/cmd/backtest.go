package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantsim/backsim/backtest"
	"github.com/quantsim/backsim/config"
	"github.com/quantsim/backsim/journal"
	"github.com/quantsim/backsim/market"
	"github.com/quantsim/backsim/options"
	"github.com/quantsim/backsim/sim"
	"github.com/quantsim/backsim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest over a historical bar dataset",
	Long: `Replay a CSV bar dataset (plain, .xz, or .zip) through a strategy.

Example:
  backsim backtest --data data/nifty_5m.csv.xz --symbol NIFTY --strategy sma-cross`,
	RunE: runBacktest,
}

var (
	btDataPath   string
	btConfigPath string
	btSymbol     string
	btStrategy   string
	btCapital    float64
	btVerbose    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btDataPath, "data", "d", "", "path to bar CSV dataset (.csv, .csv.xz or .zip) (required)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to YAML/JSON config (defaults apply if omitted)")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "i", "NIFTY", "instrument symbol")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "sma-cross", "strategy name")
	backtestCmd.Flags().Float64VarP(&btCapital, "capital", "b", 0, "override initial capital")
	backtestCmd.Flags().BoolVarP(&btVerbose, "verbose", "v", false, "debug logging")

	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if btCapital > 0 {
		cfg.Backtest.InitialCapital = btCapital
	}

	log, err := buildLogger(btVerbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	bars, err := market.LoadBars(btDataPath, btSymbol)
	if err != nil {
		return err
	}

	strat, err := strategies.New(btStrategy, btSymbol)
	if err != nil {
		return err
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer jnl.Close()

	engine := sim.NewEngine(sim.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionPct:  cfg.Backtest.CommissionPct,
		SlippagePct:    cfg.Backtest.SlippagePct,
	}, jnl, log)

	engine.SetOptionQuoter(options.NewQuoter(
		engine.GetQuote,
		nil,
		options.QuoterConfig{
			RiskFreeRate:     cfg.Backtest.RiskFreeRate,
			StrikeInterval:   50,
			TimeframeMinutes: market.TimeframeMinutes(bars),
		},
	))

	runner := &backtest.Runner{
		Engine:   engine,
		Strategy: strat,
		Bars:     bars,
		Config:   cfg.Backtest,
		Journal:  jnl,
		Log:      log,
	}

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	result.Print(os.Stdout)
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	c.OutputPaths = []string{"stderr"}
	return c.Build()
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.FillsFile, jc.TradesFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "none", "":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
