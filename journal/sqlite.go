package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite persists journal records to a SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(order_id, time, symbol, side, quantity, fill_price, commission)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.OrderID, f.Time, f.Symbol, string(f.Side), f.Quantity, f.FillPrice, f.Commission,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, direction, quantity, entry_price, exit_price, entry_time, exit_time, realized_pnl, pnl_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, string(t.Direction), t.Quantity, t.EntryPrice,
		t.ExitPrice, t.EntryTime, t.ExitTime, t.RealizedPnL, t.PnLPct, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, equity, cash) VALUES (?, ?, ?)`,
		e.Time, e.Equity, e.Cash,
	)
	return err
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, strategy, symbol, start, end, initial_capital, final_equity,
		 total_return_pct, cagr, sharpe, sortino, max_drawdown, win_rate,
		 profit_factor, volatility, var95, cvar95, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Strategy, r.Symbol, r.Start, r.End, r.InitialCapital, r.FinalEquity,
		r.TotalReturnPct, r.CAGR, r.Sharpe, r.Sortino, r.MaxDrawdown, r.WinRate,
		r.ProfitFactor, r.Volatility, r.VaR95, r.CVaR95, r.Trades,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
