package live

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/market"
	"github.com/quantsim/backsim/sim"
	"github.com/quantsim/backsim/strategies"
)

// quoteFunc adapts a closure to QuoteSource.
type quoteFunc func(ctx context.Context, symbol string) (float64, error)

func (f quoteFunc) GetQuote(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// buyOnce signals a long entry on the first bar it sees per symbol.
type buyOnce struct {
	signalled map[string]bool
}

func (b *buyOnce) Name() string              { return "buy-once" }
func (b *buyOnce) Reset()                    { b.signalled = map[string]bool{} }
func (b *buyOnce) Params() map[string]string { return map[string]string{"symbol": ""} }

func (b *buyOnce) OnData(bar market.Bar, _ []market.Bar) (*strategies.Signal, error) {
	if b.signalled[bar.Symbol] {
		return nil, nil
	}
	b.signalled[bar.Symbol] = true
	return &strategies.Signal{Symbol: bar.Symbol, Direction: broker.Buy}, nil
}

func (b *buyOnce) ShouldExit(broker.Position, float64, time.Time) bool { return false }

func newTestLoop(t *testing.T, quotes QuoteSource, symbols ...string) (*Loop, *sim.Engine) {
	t.Helper()

	engine := sim.NewEngine(sim.Config{InitialCapital: 100_000}, nil, nil)
	strat := &buyOnce{}
	strat.Reset()

	l := &Loop{
		Broker:           engine,
		Quotes:           quotes,
		Strategy:         strat,
		Symbols:          symbols,
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		Capital:          100_000,
		RiskPct:          0.01,
		FallbackFraction: 0.10,
		Log:              zap.NewNop(),
		breakers:         map[string]*Breaker{},
		history:          map[string][]market.Bar{},
	}
	for _, s := range symbols {
		l.breakers[s] = NewBreaker(l.FailureThreshold, l.Cooldown)
	}
	return l, engine
}

func TestScan_EntersRiskSizedPosition(t *testing.T) {
	t.Parallel()

	quotes := quoteFunc(func(_ context.Context, _ string) (float64, error) { return 200, nil })
	l, engine := newTestLoop(t, quotes, "NIFTY")

	l.scan(context.Background(), time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	positions := engine.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, "NIFTY", positions[0].Symbol)
	assert.Equal(t, broker.Long, positions[0].Side)
	// No stop on the signal: fallback sizing, 10% of capital at 200.
	assert.InDelta(t, 50.0, positions[0].Quantity, 1e-9)
}

func TestScan_IsolatesSymbolFailures(t *testing.T) {
	t.Parallel()

	quotes := quoteFunc(func(_ context.Context, sym string) (float64, error) {
		if sym == "BROKEN" {
			return 0, fmt.Errorf("feed down")
		}
		return 150, nil
	})
	l, engine := newTestLoop(t, quotes, "BROKEN", "NIFTY")

	l.scan(context.Background(), time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	positions := engine.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, "NIFTY", positions[0].Symbol)
	assert.Equal(t, Closed, l.breakers["NIFTY"].CurrentState())
	assert.Equal(t, Closed, l.breakers["BROKEN"].CurrentState()) // one failure, threshold is 2
}

func TestScan_BreakerOpensAndSkips(t *testing.T) {
	t.Parallel()

	calls := 0
	quotes := quoteFunc(func(_ context.Context, _ string) (float64, error) {
		calls++
		return 0, errors.New("feed down")
	})
	l, _ := newTestLoop(t, quotes, "NIFTY")

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	l.scan(context.Background(), now)
	l.scan(context.Background(), now.Add(5*time.Second))
	assert.Equal(t, Open, l.breakers["NIFTY"].CurrentState())

	// Open breaker short-circuits the fetch entirely.
	l.scan(context.Background(), now.Add(10*time.Second))
	assert.Equal(t, 2, calls)
}

func TestScan_RateLimitTripsImmediately(t *testing.T) {
	t.Parallel()

	quotes := quoteFunc(func(_ context.Context, _ string) (float64, error) {
		return 0, fmt.Errorf("throttled: %w", ErrRateLimited)
	})
	l, _ := newTestLoop(t, quotes, "NIFTY")

	l.scan(context.Background(), time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, Open, l.breakers["NIFTY"].CurrentState())
}
