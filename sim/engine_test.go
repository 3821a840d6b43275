package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/backsim/broker"
)

var t0 = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine(capital, commission, slippage float64) *Engine {
	return NewEngine(Config{
		InitialCapital: capital,
		CommissionPct:  commission,
		SlippagePct:    slippage,
	}, nil, nil)
}

func buy(symbol string, qty float64) broker.Order {
	return broker.Order{Symbol: symbol, Side: broker.Buy, Quantity: qty, Type: broker.Market}
}

func sell(symbol string, qty float64) broker.Order {
	return broker.Order{Symbol: symbol, Side: broker.Sell, Quantity: qty, Type: broker.Market}
}

func TestPlaceOrder_Rejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no market price", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(100_000, 0, 0)
		res := e.PlaceOrder(ctx, buy("NIFTY", 10))
		require.Equal(t, broker.Rejected, res.Status)
		assert.Contains(t, res.Message, "no market price")
		assert.Empty(t, e.GetPositions())
		assert.Equal(t, 100_000.0, e.GetFunds().Available)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(1_000, 0, 0)
		e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})

		res := e.PlaceOrder(ctx, buy("NIFTY", 100))
		require.Equal(t, broker.Rejected, res.Status)
		assert.Contains(t, res.Message, "insufficient funds")

		// Ledger untouched.
		f := e.GetFunds()
		assert.Equal(t, 1_000.0, f.Available)
		assert.Equal(t, 0.0, f.UsedMargin)
		assert.Empty(t, e.GetPositions())
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(1_000, 0, 0)
		e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
		res := e.PlaceOrder(ctx, buy("NIFTY", 0))
		require.Equal(t, broker.Rejected, res.Status)
	})
}

func TestRoundTripNeutrality(t *testing.T) {
	t.Parallel()

	// Open then fully close at the same price with zero slippage: cash
	// returns to initial minus two commissions.
	const commission = 0.001
	e := newTestEngine(100_000, commission, 0)
	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})

	ctx := context.Background()
	res := e.PlaceOrder(ctx, buy("NIFTY", 10))
	require.Equal(t, broker.Filled, res.Status)
	assert.Equal(t, 100.0, res.FillPrice)

	res = e.PlaceOrder(ctx, sell("NIFTY", 10))
	require.Equal(t, broker.Filled, res.Status)

	perLeg := 100.0 * 10 * commission
	f := e.GetFunds()
	assert.InDelta(t, 100_000-2*perLeg, f.Available, 1e-9)
	assert.Equal(t, 0.0, f.UsedMargin)
	assert.Empty(t, e.GetPositions())
	require.NoError(t, e.Reconcile())
}

func TestSlippageDirection(t *testing.T) {
	t.Parallel()

	e := newTestEngine(1_000_000, 0, 0.01)
	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})

	ctx := context.Background()
	res := e.PlaceOrder(ctx, buy("NIFTY", 1))
	require.Equal(t, broker.Filled, res.Status)
	assert.Greater(t, res.FillPrice, 100.0)
	assert.InDelta(t, 101.0, res.FillPrice, 1e-9)

	res = e.PlaceOrder(ctx, sell("OTHER", 1))
	assert.Equal(t, broker.Rejected, res.Status) // no price yet

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"BANKNIFTY": 200})
	res = e.PlaceOrder(ctx, sell("BANKNIFTY", 1))
	require.Equal(t, broker.Filled, res.Status)
	assert.Less(t, res.FillPrice, 200.0)
	assert.InDelta(t, 198.0, res.FillPrice, 1e-9)
}

func TestNetting_AddUsesVWAP(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, buy("NIFTY", 10)).Status)

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"NIFTY": 110})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, buy("NIFTY", 10)).Status)

	positions := e.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, 20.0, positions[0].Quantity)
	assert.InDelta(t, 105.0, positions[0].EntryPrice, 1e-9)
	assert.Equal(t, broker.Long, positions[0].Side)
	require.NoError(t, e.Reconcile())
}

func TestNetting_PartialClose(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, buy("NIFTY", 10)).Status)

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"NIFTY": 110})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, sell("NIFTY", 4)).Status)

	positions := e.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, 6.0, positions[0].Quantity)
	assert.Equal(t, 100.0, positions[0].EntryPrice) // unchanged

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 40.0, trades[0].RealizedPnL, 1e-9) // (110-100)*4
	assert.Equal(t, 4.0, trades[0].Quantity)
	require.NoError(t, e.Reconcile())
}

func TestNetting_Reversal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, buy("NIFTY", 5)).Status)

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"NIFTY": 120})
	res := e.PlaceOrder(ctx, sell("NIFTY", 8))
	require.Equal(t, broker.Filled, res.Status)

	positions := e.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, broker.Short, positions[0].Side)
	assert.Equal(t, 3.0, positions[0].Quantity)
	assert.Equal(t, 120.0, positions[0].EntryPrice)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.InDelta(t, 100.0, trades[0].RealizedPnL, 1e-9) // (120-100)*5
	require.NoError(t, e.Reconcile())
}

func TestShortRoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, sell("NIFTY", 10)).Status)

	positions := e.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, broker.Short, positions[0].Side)

	// Short margin policy: full notional reserved, same as a long.
	f := e.GetFunds()
	assert.InDelta(t, 1000.0, f.UsedMargin, 1e-9)

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"NIFTY": 90})
	require.Equal(t, broker.Filled, e.PlaceOrder(ctx, buy("NIFTY", 10)).Status)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.InDelta(t, 100.0, trades[0].RealizedPnL, 1e-9) // (100-90)*10

	f = e.GetFunds()
	assert.InDelta(t, 100_100.0, f.Available, 1e-9)
	require.NoError(t, e.Reconcile())
}

func TestEquityIdentity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0.0005, 0.0002)
	ctx := context.Background()

	prices := []float64{100, 104, 98, 103, 110, 95}
	for i, p := range prices {
		e.UpdateMarketState(t0.Add(time.Duration(i)*time.Minute), map[string]float64{"NIFTY": p})
		switch i {
		case 0:
			e.PlaceOrder(ctx, buy("NIFTY", 20))
		case 2:
			e.PlaceOrder(ctx, sell("NIFTY", 8))
		case 3:
			e.PlaceOrder(ctx, buy("NIFTY", 5))
		case 4:
			e.PlaceOrder(ctx, sell("NIFTY", 30)) // reversal
		}
		require.NoError(t, e.Reconcile(), "after bar %d", i)

		f := e.GetFunds()
		unreal := 0.0
		for _, p := range e.GetPositions() {
			unreal += p.UnrealizedPnL
		}
		assert.InDelta(t, f.Total, f.Available+f.UsedMargin+unreal, 1e-6)
	}
}

func TestUpdateMarketState_MarksPositions(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 100})
	e.PlaceOrder(ctx, buy("NIFTY", 10))

	e.UpdateMarketState(t0.Add(time.Minute), map[string]float64{"NIFTY": 107})
	positions := e.GetPositions()
	require.Len(t, positions, 1)
	assert.Equal(t, 107.0, positions[0].CurrentPrice)
	assert.InDelta(t, 70.0, positions[0].UnrealizedPnL, 1e-9)
}

type stubQuoter struct {
	premium float64
}

func (s stubQuoter) Quote(string, time.Time) (float64, error) { return s.premium, nil }

func TestOptionPositionUsesQuoter(t *testing.T) {
	t.Parallel()

	e := newTestEngine(100_000, 0, 0)
	e.SetOptionQuoter(stubQuoter{premium: 150})
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"NIFTY": 20_000})

	o := buy("NIFTY-20000-CE", 2)
	o.Product = broker.ProductOption
	res := e.PlaceOrder(ctx, o)
	require.Equal(t, broker.Filled, res.Status)
	assert.Equal(t, 150.0, res.FillPrice)

	res = e.ClosePosition(ctx, "NIFTY-20000-CE", ReasonExit)
	require.Equal(t, broker.Filled, res.Status)
	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, ReasonExit, trades[0].Reason)
	require.NoError(t, e.Reconcile())
}

func TestCloseAll_TagsReason(t *testing.T) {
	t.Parallel()

	e := newTestEngine(1_000_000, 0, 0)
	ctx := context.Background()

	e.UpdateMarketState(t0, map[string]float64{"AAA": 10, "BBB": 20})
	e.PlaceOrder(ctx, buy("AAA", 5))
	e.PlaceOrder(ctx, sell("BBB", 5))

	results := e.CloseAll(ctx, ReasonEOD)
	require.Len(t, results, 2)
	assert.Empty(t, e.GetPositions())
	for _, tr := range e.Trades() {
		assert.Equal(t, ReasonEOD, tr.Reason)
	}
}

func TestDeterminism_IdenticalRunsIdenticalLogs(t *testing.T) {
	t.Parallel()

	run := func() *Engine {
		e := newTestEngine(100_000, 0.0005, 0.0002)
		ctx := context.Background()
		prices := []float64{100, 102, 99, 105, 101}
		for i, p := range prices {
			e.UpdateMarketState(t0.Add(time.Duration(i)*5*time.Minute), map[string]float64{"NIFTY": p})
			if i == 0 {
				e.PlaceOrder(ctx, buy("NIFTY", 10))
			}
			if i == 3 {
				e.PlaceOrder(ctx, sell("NIFTY", 10))
			}
		}
		return e
	}

	a, b := run(), run()
	assert.Equal(t, a.Fills(), b.Fills())
	assert.Equal(t, a.Trades(), b.Trades())
}
