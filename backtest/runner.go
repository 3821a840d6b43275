// Package backtest drives one deterministic replay: bars in, strategy
// signals converted to orders, equity snapshots out, metrics at the end.
package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/config"
	"github.com/quantsim/backsim/journal"
	"github.com/quantsim/backsim/market"
	"github.com/quantsim/backsim/perf"
	"github.com/quantsim/backsim/pkg/id"
	"github.com/quantsim/backsim/risk"
	"github.com/quantsim/backsim/sim"
	"github.com/quantsim/backsim/strategies"
)

// Runner replays a bar series through a strategy against a fresh sim
// engine. One Runner per run; nothing is shared across runs.
type Runner struct {
	Engine   *sim.Engine
	Strategy strategies.Strategy
	Bars     []market.Bar
	Config   config.BacktestConfig
	Journal  journal.Journal // equity + run summary sink; may be nil
	Log      *zap.Logger     // may be nil
	Seed     int64           // run-id seed; fixed so replays reproduce ids
}

// Run executes the replay loop and returns the full result. It fails fast
// on invalid input before the first bar; errors inside the loop from the
// strategy callback are logged and the bar is skipped.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Engine == nil {
		return nil, fmt.Errorf("backtest: Engine is required")
	}
	if r.Strategy == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}
	if r.Config.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive")
	}
	if err := market.ValidateSeries(r.Bars); err != nil {
		return nil, err
	}
	cutoffStr := r.Config.EODCutoff
	if cutoffStr == "" {
		cutoffStr = "15:15"
	}
	cutoff, err := config.ParseCutoff(cutoffStr)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	jnl := r.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}
	seed := r.Seed
	if seed == 0 {
		seed = 1
	}

	symbol := r.Strategy.Params()["symbol"]
	if symbol == "" {
		symbol = r.Bars[0].Symbol
	}

	r.Strategy.Reset()

	equity := make([]journal.EquitySnapshot, 0, len(r.Bars))
	snapshot := func(bar market.Bar) {
		funds := r.Engine.GetFunds()
		snap := journal.EquitySnapshot{Time: bar.Time, Equity: funds.Total, Cash: funds.Available}
		equity = append(equity, snap)
		if err := jnl.RecordEquity(snap); err != nil {
			log.Warn("journal equity write failed", zap.Error(err))
		}
	}

	for i, bar := range r.Bars {
		r.Engine.UpdateMarketState(bar.Time, map[string]float64{bar.Symbol: bar.Close})

		minutes := bar.Time.Hour()*60 + bar.Time.Minute()
		inEODWindow := minutes >= cutoff

		if r.Config.ForceIntradayExit && inEODWindow {
			if len(r.Engine.GetPositions()) > 0 {
				r.Engine.CloseAll(ctx, sim.ReasonEOD)
			}
			snapshot(bar)
			continue
		}

		for _, pos := range r.Engine.GetPositions() {
			if r.Strategy.ShouldExit(pos, pos.CurrentPrice, bar.Time) {
				res := r.Engine.ClosePosition(ctx, pos.Symbol, sim.ReasonExit)
				if res.Status == broker.Rejected {
					log.Warn("exit order rejected",
						zap.String("symbol", pos.Symbol), zap.String("message", res.Message))
				}
			}
		}

		if len(r.Engine.GetPositions()) < r.Config.MaxPositions && !inEODWindow {
			sig, err := r.Strategy.OnData(bar, r.Bars[:i+1])
			if err != nil {
				log.Warn("strategy error, skipping bar",
					zap.Time("bar", bar.Time), zap.Error(err))
				snapshot(bar)
				continue
			}
			if sig != nil {
				r.submitEntry(ctx, sig, bar, log)
			}
		}

		snapshot(bar)
	}

	// Final liquidation; the last snapshot is re-taken so the curve ends
	// at the post-liquidation equity.
	if len(r.Engine.GetPositions()) > 0 {
		r.Engine.CloseAll(ctx, sim.ReasonEndOfData)
		funds := r.Engine.GetFunds()
		last := &equity[len(equity)-1]
		last.Equity = funds.Total
		last.Cash = funds.Available
	}

	trades := r.Engine.Trades()
	metrics := perf.Summarize(
		equity, trades,
		r.Config.InitialCapital, r.Config.RiskFreeRate,
		market.PeriodsPerYear(market.TimeframeMinutes(r.Bars)),
	)

	result := &Result{
		RunID:          id.NewSource(seed).At(r.Bars[0].Time),
		Strategy:       r.Strategy.Name(),
		Symbol:         symbol,
		Start:          r.Bars[0].Time,
		End:            r.Bars[len(r.Bars)-1].Time,
		InitialCapital: r.Config.InitialCapital,
		FinalEquity:    equity[len(equity)-1].Equity,
		Metrics:        metrics,
		EquityCurve:    equity,
		Trades:         trades,
	}

	if err := jnl.RecordRun(result.runRecord()); err != nil {
		log.Warn("journal run write failed", zap.Error(err))
	}
	return result, nil
}

func (r *Runner) submitEntry(ctx context.Context, sig *strategies.Signal, bar market.Bar, log *zap.Logger) {
	sizing := risk.Calculate(risk.Inputs{
		Capital:          r.Config.InitialCapital,
		RiskPct:          r.Config.RiskPerTradePct,
		EntryPrice:       bar.Close,
		StopLoss:         sig.StopLoss,
		FallbackFraction: r.Config.FallbackFraction,
	})
	if sizing.Quantity <= 0 {
		return
	}

	order := broker.Order{
		Symbol:         sig.Symbol,
		Side:           sig.Direction,
		Quantity:       sizing.Quantity,
		Type:           broker.Market,
		RequestedPrice: bar.Close,
		Product:        sig.Product,
	}
	res := r.Engine.PlaceOrder(ctx, order)
	if res.Status == broker.Rejected {
		log.Debug("entry order rejected",
			zap.String("symbol", sig.Symbol), zap.String("message", res.Message))
	}
}
