package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quantsim/backsim/broker"
)

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var r RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, strategy, symbol, start, end, initial_capital, final_equity,
		       total_return_pct, cagr, sharpe, sortino, max_drawdown, win_rate,
		       profit_factor, volatility, var95, cvar95, trades
		FROM runs WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Strategy, &r.Symbol, &r.Start, &r.End,
		&r.InitialCapital, &r.FinalEquity,
		&r.TotalReturnPct, &r.CAGR, &r.Sharpe, &r.Sortino, &r.MaxDrawdown,
		&r.WinRate, &r.ProfitFactor, &r.Volatility, &r.VaR95, &r.CVaR95, &r.Trades,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns all run summaries, most recent first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, strategy, symbol, start, end, initial_capital, final_equity,
		       total_return_pct, cagr, sharpe, sortino, max_drawdown, win_rate,
		       profit_factor, volatility, var95, cvar95, trades
		FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.RunID, &r.Strategy, &r.Symbol, &r.Start, &r.End,
			&r.InitialCapital, &r.FinalEquity,
			&r.TotalReturnPct, &r.CAGR, &r.Sharpe, &r.Sortino, &r.MaxDrawdown,
			&r.WinRate, &r.ProfitFactor, &r.Volatility, &r.VaR95, &r.CVaR95, &r.Trades,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTradesClosedBetween returns round-trips whose exit_time falls in
// [start, end), oldest first.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, direction, quantity, entry_price, exit_price,
		       entry_time, exit_time, realized_pnl, pnl_pct, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var dir string
		if err := rows.Scan(
			&t.TradeID, &t.Symbol, &dir, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.EntryTime, &t.ExitTime, &t.RealizedPnL, &t.PnLPct, &t.Reason,
		); err != nil {
			return nil, err
		}
		t.Direction = broker.PositionSide(dir)
		out = append(out, t)
	}
	return out, rows.Err()
}
