// Package journal records what a run did: raw fills, closed round-trips,
// equity snapshots, and run summaries. CSV and SQLite backends are
// provided.
package journal

import (
	"time"

	"github.com/quantsim/backsim/broker"
)

// FillRecord is written for every executed fill, including legs that only
// modify an existing position.
type FillRecord struct {
	OrderID    string
	Time       time.Time
	Symbol     string
	Side       broker.Side
	Quantity   float64
	FillPrice  float64
	Commission float64
}

// TradeRecord is a closed round-trip: a matched open and close with
// realized P/L. Only round-trips feed performance metrics.
type TradeRecord struct {
	TradeID     string
	Symbol      string
	Direction   broker.PositionSide
	Quantity    float64
	EntryPrice  float64
	ExitPrice   float64
	EntryTime   time.Time
	ExitTime    time.Time
	RealizedPnL float64
	PnLPct      float64
	Reason      string
}

// EquitySnapshot is appended once per replayed bar.
type EquitySnapshot struct {
	Time   time.Time
	Equity float64
	Cash   float64
}

// RunRecord summarizes one completed backtest.
type RunRecord struct {
	RunID          string
	Strategy       string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64

	TotalReturnPct float64
	CAGR           float64
	Sharpe         float64
	Sortino        float64
	MaxDrawdown    float64
	WinRate        float64
	ProfitFactor   float64
	Volatility     float64
	VaR95          float64
	CVaR95         float64
	Trades         int
}

// Journal is the sink the simulator and driver write to. Implementations
// must tolerate being handed records in replay order.
type Journal interface {
	RecordFill(FillRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(RunRecord) error
	Close() error
}

// Nop discards everything. Useful for tests and for runs that only need
// the in-memory result.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error       { return nil }
func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) RecordRun(RunRecord) error         { return nil }
func (Nop) Close() error                      { return nil }
