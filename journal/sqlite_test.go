package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/backsim/broker"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLite_RunRoundTrip(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)

	start := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	rec := RunRecord{
		RunID:          "01JR000000000000000000000A",
		Strategy:       "sma-cross",
		Symbol:         "NIFTY",
		Start:          start,
		End:            start.Add(6 * time.Hour),
		InitialCapital: 100_000,
		FinalEquity:    103_250,
		TotalReturnPct: 3.25,
		Sharpe:         1.4,
		MaxDrawdown:    0.08,
		WinRate:        0.55,
		Trades:         20,
	}
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Strategy, got.Strategy)
	assert.Equal(t, rec.FinalEquity, got.FinalEquity)
	assert.Equal(t, rec.Trades, got.Trades)
	assert.True(t, got.Start.Equal(rec.Start))

	_, err = j.GetRun("missing")
	assert.Error(t, err)
}

func TestSQLite_ListRunsOrdering(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)

	// ULIDs sort lexicographically by creation time, so run_id DESC is
	// newest first.
	require.NoError(t, j.RecordRun(RunRecord{RunID: "01A", Strategy: "first"}))
	require.NoError(t, j.RecordRun(RunRecord{RunID: "01B", Strategy: "second"}))

	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Strategy)
	assert.Equal(t, "first", runs[1].Strategy)
}

func TestSQLite_TradesAndFills(t *testing.T) {
	t.Parallel()

	j := openTestDB(t)

	entry := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	trade := TradeRecord{
		TradeID:     "T1",
		Symbol:      "NIFTY",
		Direction:   broker.Long,
		Quantity:    10,
		EntryPrice:  100,
		ExitPrice:   110,
		EntryTime:   entry,
		ExitTime:    entry.Add(30 * time.Minute),
		RealizedPnL: 100,
		PnLPct:      10,
		Reason:      "EXIT_SIGNAL",
	}
	require.NoError(t, j.RecordTrade(trade))
	require.NoError(t, j.RecordFill(FillRecord{
		OrderID: "F1", Time: entry, Symbol: "NIFTY",
		Side: broker.Buy, Quantity: 10, FillPrice: 100, Commission: 1,
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: entry, Equity: 100_000, Cash: 99_000}))

	t.Run("window query returns the trade", func(t *testing.T) {
		got, err := j.ListTradesClosedBetween(entry, entry.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, broker.Long, got[0].Direction)
		assert.Equal(t, 100.0, got[0].RealizedPnL)
		assert.Equal(t, "EXIT_SIGNAL", got[0].Reason)
	})

	t.Run("window outside the exit time is empty", func(t *testing.T) {
		got, err := j.ListTradesClosedBetween(entry.Add(time.Hour), entry.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
