package strategies

import (
	"time"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/market"
)

// Noop never enters and never exits. Baseline for replay plumbing tests.
type Noop struct {
	symbol string
}

func NewNoop(symbol string) *Noop { return &Noop{symbol: symbol} }

func (n *Noop) Name() string { return "noop" }
func (n *Noop) Reset()       {}

func (n *Noop) OnData(market.Bar, []market.Bar) (*Signal, error) { return nil, nil }

func (n *Noop) ShouldExit(broker.Position, float64, time.Time) bool { return false }

func (n *Noop) Params() map[string]string {
	return map[string]string{"symbol": n.symbol}
}

func init() {
	Register("noop", func(symbol string) Strategy { return NewNoop(symbol) })
}
