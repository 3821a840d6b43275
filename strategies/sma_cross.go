package strategies

import (
	"fmt"
	"time"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/indicators"
	"github.com/quantsim/backsim/market"
)

// SMACross goes long when the fast SMA crosses above the slow SMA and
// exits when it crosses back below. Stops are placed two ATRs under the
// entry bar close.
type SMACross struct {
	symbol string
	fast   *indicators.SMA
	slow   *indicators.SMA
	atr    *indicators.ATR

	prevAbove bool
	havePrev  bool
}

// NewSMACross builds the crossover strategy with the given periods.
func NewSMACross(symbol string, fastPeriod, slowPeriod, atrPeriod int) *SMACross {
	return &SMACross{
		symbol: symbol,
		fast:   indicators.NewSMA(fastPeriod),
		slow:   indicators.NewSMA(slowPeriod),
		atr:    indicators.NewATR(atrPeriod),
	}
}

func (s *SMACross) Name() string { return "sma-cross" }

func (s *SMACross) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	s.atr.Reset()
	s.prevAbove = false
	s.havePrev = false
}

func (s *SMACross) OnData(bar market.Bar, _ []market.Bar) (*Signal, error) {
	s.fast.Update(bar)
	s.slow.Update(bar)
	s.atr.Update(bar)

	if !s.fast.Ready() || !s.slow.Ready() {
		return nil, nil
	}

	above := s.fast.Value() > s.slow.Value()
	crossedUp := s.havePrev && above && !s.prevAbove
	s.prevAbove = above
	s.havePrev = true

	if !crossedUp {
		return nil, nil
	}

	sig := &Signal{
		Symbol:    s.symbol,
		Direction: broker.Buy,
		Product:   broker.ProductEquity,
	}
	if s.atr.Ready() {
		sig.StopLoss = bar.Close - 2*s.atr.Value()
		sig.TakeProfit = bar.Close + 4*s.atr.Value()
	}
	return sig, nil
}

// ShouldExit closes longs once the fast SMA drops back under the slow
// one. Short positions (from reversals) exit on the mirrored condition.
func (s *SMACross) ShouldExit(pos broker.Position, _ float64, _ time.Time) bool {
	if !s.fast.Ready() || !s.slow.Ready() {
		return false
	}
	if pos.Side == broker.Long {
		return s.fast.Value() < s.slow.Value()
	}
	return s.fast.Value() > s.slow.Value()
}

func (s *SMACross) Params() map[string]string {
	return map[string]string{
		"symbol": s.symbol,
		"fast":   fmt.Sprintf("%d", s.fast.Warmup()),
		"slow":   fmt.Sprintf("%d", s.slow.Warmup()),
	}
}

func init() {
	Register("sma-cross", func(symbol string) Strategy {
		return NewSMACross(symbol, 10, 30, 14)
	})
}
