package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/quantsim/backsim/journal"
	"github.com/quantsim/backsim/perf"
)

// Result is everything one run produced.
type Result struct {
	RunID          string
	Strategy       string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64
	Metrics        perf.Metrics
	EquityCurve    []journal.EquitySnapshot
	Trades         []journal.TradeRecord
}

func (r *Result) runRecord() journal.RunRecord {
	return journal.RunRecord{
		RunID:          r.RunID,
		Strategy:       r.Strategy,
		Symbol:         r.Symbol,
		Start:          r.Start,
		End:            r.End,
		InitialCapital: r.InitialCapital,
		FinalEquity:    r.FinalEquity,
		TotalReturnPct: r.Metrics.TotalReturnPct,
		CAGR:           r.Metrics.CAGR,
		Sharpe:         r.Metrics.Sharpe,
		Sortino:        r.Metrics.Sortino,
		MaxDrawdown:    r.Metrics.MaxDrawdown,
		WinRate:        r.Metrics.WinRate,
		ProfitFactor:   r.Metrics.ProfitFactor,
		Volatility:     r.Metrics.Volatility,
		VaR95:          r.Metrics.VaR95,
		CVaR95:         r.Metrics.CVaR95,
		Trades:         r.Metrics.Trades,
	}
}

// Print writes a formatted report for the run.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(w, "Period:        %s -> %s\n",
		r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Total Return:  %.2f%%\n", r.Metrics.TotalReturnPct)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", r.Metrics.CAGR*100)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Sharpe:        %.2f\n", r.Metrics.Sharpe)
	fmt.Fprintf(w, "Sortino:       %.2f\n", r.Metrics.Sortino)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.Metrics.MaxDrawdown*100)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", r.Metrics.Volatility*100)
	fmt.Fprintf(w, "VaR 95:        %.4f\n", r.Metrics.VaR95)
	fmt.Fprintf(w, "CVaR 95:       %.4f\n", r.Metrics.CVaR95)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trades")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Round Trips:   %d\n", r.Metrics.Trades)
	fmt.Fprintf(w, "Wins/Losses:   %d/%d\n", r.Metrics.Wins, r.Metrics.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.Metrics.WinRate*100)
	if r.Metrics.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.Metrics.ProfitFactor)
	}
	fmt.Fprintln(w)
}
