package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backsim",
	Short: "Backtest trading strategies against historical bar data",
	Long: `Backsim replays historical OHLCV data through a trading strategy
against a simulated broker with realistic slippage and commission.

It provides:
  - A deterministic bar-by-bar replay loop
  - A netted position ledger with cash/margin accounting
  - Synthetic option premiums via Black-Scholes when trading derivatives
  - Risk-adjusted performance metrics (Sharpe, Sortino, drawdown, VaR)
  - CSV and SQLite trade/equity journals`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
