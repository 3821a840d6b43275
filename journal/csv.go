package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes fills, trades, and equity snapshots to three CSV files.
// Run summaries are not persisted; use the SQLite backend for those.
type CSV struct {
	fills  *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
	files  []*os.File
}

var _ Journal = (*CSV)(nil)

// NewCSV creates the three output files and writes their headers.
func NewCSV(fillsPath, tradesPath, equityPath string) (*CSV, error) {
	j := &CSV{}
	for _, p := range []struct {
		path   string
		header []string
		dst    **csv.Writer
	}{
		{fillsPath, []string{"order_id", "time", "symbol", "side", "quantity", "fill_price", "commission"}, &j.fills},
		{tradesPath, []string{"trade_id", "symbol", "direction", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "realized_pnl", "pnl_pct", "reason"}, &j.trades},
		{equityPath, []string{"time", "equity", "cash"}, &j.equity},
	} {
		f, err := os.Create(p.path)
		if err != nil {
			j.Close()
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(p.header); err != nil {
			j.Close()
			return nil, err
		}
		w.Flush()
		*p.dst = w
	}
	return j, nil
}

func (j *CSV) RecordFill(r FillRecord) error {
	err := j.fills.Write([]string{
		r.OrderID,
		r.Time.Format(time.RFC3339),
		r.Symbol,
		string(r.Side),
		f(r.Quantity),
		f(r.FillPrice),
		f(r.Commission),
	})
	j.fills.Flush()
	if err != nil {
		return err
	}
	return j.fills.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Symbol,
		string(t.Direction),
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.RealizedPnL),
		f(t.PnLPct),
		t.Reason,
	})
	j.trades.Flush()
	if err != nil {
		return err
	}
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Equity),
		f(e.Cash),
	})
	j.equity.Flush()
	if err != nil {
		return err
	}
	return j.equity.Error()
}

// RecordRun is a no-op for the CSV backend.
func (j *CSV) RecordRun(RunRecord) error { return nil }

func (j *CSV) Close() error {
	for _, w := range []*csv.Writer{j.fills, j.trades, j.equity} {
		if w != nil {
			w.Flush()
		}
	}
	var first error
	for _, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
