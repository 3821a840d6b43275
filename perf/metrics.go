// Package perf reduces an equity curve and round-trip trade log into
// risk-adjusted performance statistics. Every formula degrades to zero on
// empty or zero-variance input; nothing here returns NaN or Inf.
package perf

import (
	"math"
	"sort"

	"github.com/quantsim/backsim/journal"
)

// Metrics is the scalar summary of one run.
type Metrics struct {
	TotalReturnPct float64
	CAGR           float64
	Sharpe         float64
	Sortino        float64
	MaxDrawdown    float64 // positive fraction, e.g. 0.25 for a 25% drawdown
	WinRate        float64
	ProfitFactor   float64
	Volatility     float64 // annualized
	VaR95          float64 // 5th percentile of period returns
	CVaR95         float64 // mean of returns at or below VaR95
	Trades         int
	Wins           int
	Losses         int
}

// Summarize computes Metrics from the equity curve and trade log.
// periodsPerYear is the annualization count for the bar timeframe
// (market.PeriodsPerYear).
func Summarize(equity []journal.EquitySnapshot, trades []journal.TradeRecord, initialCapital, riskFreeRate, periodsPerYear float64) Metrics {
	var m Metrics

	m.Trades = len(trades)
	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			m.Wins++
			grossProfit += t.RealizedPnL
		case t.RealizedPnL < 0:
			m.Losses++
			grossLoss += -t.RealizedPnL
		}
	}
	if m.Trades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Trades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	if len(equity) == 0 || initialCapital <= 0 {
		return m
	}

	final := equity[len(equity)-1].Equity
	m.TotalReturnPct = (final - initialCapital) / initialCapital * 100
	m.CAGR = cagr(equity, initialCapital, final)
	m.MaxDrawdown = maxDrawdown(equity)

	returns := periodReturns(equity)
	if len(returns) == 0 {
		return sanitize(m)
	}

	mean, std := meanStd(returns)
	m.Volatility = std * math.Sqrt(periodsPerYear)

	excess := mean - riskFreeRate/periodsPerYear
	if std > 0 {
		m.Sharpe = excess / std * math.Sqrt(periodsPerYear)
	}

	downside := downsideStd(returns)
	if downside > 0 {
		m.Sortino = excess / downside * math.Sqrt(periodsPerYear)
	}

	m.VaR95, m.CVaR95 = tailRisk(returns, 0.95)

	return sanitize(m)
}

func cagr(equity []journal.EquitySnapshot, initial, final float64) float64 {
	days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
	years := days / 365
	if years < 1.0/365 {
		years = 1.0 / 365
	}
	if final <= 0 {
		return -1
	}
	return math.Pow(final/initial, 1/years) - 1
}

func maxDrawdown(equity []journal.EquitySnapshot) float64 {
	peak := equity[0].Equity
	worst := 0.0
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			dd := (peak - e.Equity) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func periodReturns(equity []journal.EquitySnapshot) []float64 {
	var out []float64
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		out = append(out, (equity[i].Equity-prev)/prev)
	}
	return out
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs) - 1)
	return mean, math.Sqrt(variance)
}

// downsideStd is the standard deviation of only the negative periods,
// measured around zero.
func downsideStd(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if x < 0 {
			sum += x * x
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// tailRisk returns the (1-confidence) quantile of the return distribution
// and the mean of returns at or below it.
func tailRisk(returns []float64, confidence float64) (varQ, cvar float64) {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	varQ = sorted[idx]

	sum := 0.0
	for i := 0; i <= idx; i++ {
		sum += sorted[i]
	}
	cvar = sum / float64(idx+1)
	return varQ, cvar
}

func sanitize(m Metrics) Metrics {
	fix := func(x *float64) {
		if math.IsNaN(*x) || math.IsInf(*x, 0) {
			*x = 0
		}
	}
	fix(&m.TotalReturnPct)
	fix(&m.CAGR)
	fix(&m.Sharpe)
	fix(&m.Sortino)
	fix(&m.MaxDrawdown)
	fix(&m.WinRate)
	fix(&m.ProfitFactor)
	fix(&m.Volatility)
	fix(&m.VaR95)
	fix(&m.CVaR95)
	return m
}
