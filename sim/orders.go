package sim

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/journal"
)

// Close reasons recorded on round-trip trades.
const (
	ReasonStrategy  = "STRATEGY"
	ReasonExit      = "EXIT_SIGNAL"
	ReasonEOD       = "EOD_EXIT"
	ReasonEndOfData = "END_OF_DATA"
)

const qtyTolerance = 1e-9

// PlaceOrder executes a market order against the current marks, applying
// the netting rules: open, add, partial close, full close, or reversal.
// Rejections come back as results with Status == Rejected and leave the
// ledger untouched.
func (e *Engine) PlaceOrder(_ context.Context, o broker.Order) broker.FillResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeLocked(o, ReasonStrategy)
}

// CancelOrder is a no-op: market fills are immediate, so there is never an
// open order to cancel. Kept for interface parity with live brokers.
func (e *Engine) CancelOrder(_ context.Context, _ string) error { return nil }

// ModifyOrder is a no-op for the same reason as CancelOrder.
func (e *Engine) ModifyOrder(_ context.Context, _ string, _ broker.Order) error { return nil }

// ClosePosition submits an opposing market order for the full quantity of
// the position in symbol, tagging the round-trip with reason.
func (e *Engine) ClosePosition(_ context.Context, symbol, reason string) broker.FillResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return broker.FillResult{Status: broker.Rejected, Message: fmt.Sprintf("no open position for %s", symbol)}
	}
	return e.placeLocked(opposing(pos), reason)
}

// CloseAll closes every open position, in symbol order, tagging each
// round-trip with reason.
func (e *Engine) CloseAll(_ context.Context, reason string) []broker.FillResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	var results []broker.FillResult
	for _, sym := range e.sortedSymbolsLocked() {
		pos, ok := e.positions[sym]
		if !ok {
			continue
		}
		results = append(results, e.placeLocked(opposing(pos), reason))
	}
	return results
}

func opposing(p *broker.Position) broker.Order {
	side := broker.Sell
	if p.Side == broker.Short {
		side = broker.Buy
	}
	return broker.Order{
		Symbol:   p.Symbol,
		Side:     side,
		Quantity: p.Quantity,
		Type:     broker.Market,
		Product:  p.Product,
	}
}

func (e *Engine) placeLocked(o broker.Order, reason string) broker.FillResult {
	if o.Quantity <= 0 {
		return broker.FillResult{Status: broker.Rejected, Message: "order quantity must be positive"}
	}

	mark, ok := e.markPriceLocked(o.Symbol, o.Product)
	if !ok || mark <= 0 {
		return broker.FillResult{Status: broker.Rejected, Message: fmt.Sprintf("no market price for %s", o.Symbol)}
	}

	// Market orders fill on the wrong side of the mark.
	fill := mark * (1 + e.cfg.SlippagePct)
	if o.Side == broker.Sell {
		fill = mark * (1 - e.cfg.SlippagePct)
	}
	commission := fill * o.Quantity * e.cfg.CommissionPct

	pos := e.positions[o.Symbol]

	var result broker.FillResult
	switch {
	case pos == nil:
		result = e.openLocked(o, mark, fill, commission)
	case sameDirection(pos.Side, o.Side):
		result = e.addLocked(pos, o, mark, fill, commission)
	case o.Quantity < pos.Quantity-qtyTolerance:
		result = e.reduceLocked(pos, o.Quantity, mark, fill, commission, reason)
	case o.Quantity <= pos.Quantity+qtyTolerance:
		result = e.reduceLocked(pos, pos.Quantity, mark, fill, commission, reason)
	default:
		result = e.reverseLocked(pos, o, mark, fill, reason)
	}

	if result.Status != broker.Filled {
		return result
	}

	rec := journal.FillRecord{
		OrderID:    result.OrderID,
		Time:       e.now,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   o.Quantity,
		FillPrice:  result.FillPrice,
		Commission: result.Commission,
	}
	e.fills = append(e.fills, rec)
	if err := e.journal.RecordFill(rec); err != nil {
		e.log.Warn("journal fill write failed", zap.Error(err))
	}

	if err := e.reconcileLocked(); err != nil {
		e.log.Error("ledger identity violated after fill",
			zap.String("symbol", o.Symbol), zap.Error(err))
	}
	return result
}

// openLocked creates a new position. Both long and short opens reserve the
// full entry notional as used margin and debit commission from cash
// immediately.
func (e *Engine) openLocked(o broker.Order, mark, fill, commission float64) broker.FillResult {
	cost := o.Quantity*fill + commission
	if cost > e.available {
		return broker.FillResult{
			Status:  broker.Rejected,
			Message: fmt.Sprintf("insufficient funds: need %.2f, available %.2f", cost, e.available),
		}
	}

	side := broker.Long
	if o.Side == broker.Sell {
		side = broker.Short
	}

	e.available -= cost
	e.usedMargin += o.Quantity * fill
	e.commissions += commission

	e.positions[o.Symbol] = &broker.Position{
		Symbol:        o.Symbol,
		Side:          side,
		Quantity:      o.Quantity,
		EntryPrice:    fill,
		CurrentPrice:  mark,
		UnrealizedPnL: unrealized(side, fill, mark, o.Quantity),
		Product:       o.Product,
		EntryTime:     e.now,
	}

	return broker.FillResult{
		Status:     broker.Filled,
		OrderID:    e.ids.At(e.now),
		FillPrice:  fill,
		Commission: commission,
	}
}

// addLocked grows an existing position, moving the entry price to the
// volume-weighted average of all fills.
func (e *Engine) addLocked(pos *broker.Position, o broker.Order, mark, fill, commission float64) broker.FillResult {
	cost := o.Quantity*fill + commission
	if cost > e.available {
		return broker.FillResult{
			Status:  broker.Rejected,
			Message: fmt.Sprintf("insufficient funds: need %.2f, available %.2f", cost, e.available),
		}
	}

	newQty := pos.Quantity + o.Quantity
	pos.EntryPrice = (pos.Quantity*pos.EntryPrice + o.Quantity*fill) / newQty
	pos.Quantity = newQty
	pos.CurrentPrice = mark
	pos.UnrealizedPnL = unrealized(pos.Side, pos.EntryPrice, mark, pos.Quantity)

	e.available -= cost
	e.usedMargin += o.Quantity * fill
	e.commissions += commission

	return broker.FillResult{
		Status:     broker.Filled,
		OrderID:    e.ids.At(e.now),
		FillPrice:  fill,
		Commission: commission,
	}
}

// reduceLocked realizes P/L on qty units and releases their margin. When
// qty covers the whole position the position is removed; otherwise the
// entry price stays put and only the quantity shrinks.
func (e *Engine) reduceLocked(pos *broker.Position, qty, mark, fill, commission float64, reason string) broker.FillResult {
	pnl := realizedPnL(pos.Side, pos.EntryPrice, fill, qty)

	e.available += qty*pos.EntryPrice + pnl - commission
	e.usedMargin -= qty * pos.EntryPrice
	e.realized += pnl
	e.commissions += commission

	trade := journal.TradeRecord{
		TradeID:     e.ids.At(e.now),
		Symbol:      pos.Symbol,
		Direction:   pos.Side,
		Quantity:    qty,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   fill,
		EntryTime:   pos.EntryTime,
		ExitTime:    e.now,
		RealizedPnL: pnl,
		PnLPct:      pnl / (pos.EntryPrice * qty) * 100,
		Reason:      reason,
	}
	e.trades = append(e.trades, trade)
	if err := e.journal.RecordTrade(trade); err != nil {
		e.log.Warn("journal trade write failed", zap.Error(err))
	}

	if qty >= pos.Quantity-qtyTolerance {
		delete(e.positions, pos.Symbol)
	} else {
		pos.Quantity -= qty
		pos.CurrentPrice = mark
		pos.UnrealizedPnL = unrealized(pos.Side, pos.EntryPrice, mark, pos.Quantity)
	}

	return broker.FillResult{
		Status:     broker.Filled,
		OrderID:    e.ids.At(e.now),
		FillPrice:  fill,
		Commission: commission,
	}
}

// reverseLocked fully closes the existing position and opens the
// remainder on the opposite side. The whole order is rejected up front if
// the cash left after the close cannot fund the new leg; a reversal never
// half-executes.
func (e *Engine) reverseLocked(pos *broker.Position, o broker.Order, mark, fill float64, reason string) broker.FillResult {
	closeQty := pos.Quantity
	openQty := o.Quantity - closeQty

	closeCommission := fill * closeQty * e.cfg.CommissionPct
	openCommission := fill * openQty * e.cfg.CommissionPct

	pnl := realizedPnL(pos.Side, pos.EntryPrice, fill, closeQty)
	cashAfterClose := e.available + closeQty*pos.EntryPrice + pnl - closeCommission
	openCost := openQty*fill + openCommission
	if openCost > cashAfterClose {
		return broker.FillResult{
			Status:  broker.Rejected,
			Message: fmt.Sprintf("insufficient funds to reverse: need %.2f, would have %.2f", openCost, cashAfterClose),
		}
	}

	e.reduceLocked(pos, closeQty, mark, fill, closeCommission, reason)

	open := broker.Order{
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: openQty,
		Type:     broker.Market,
		Product:  o.Product,
	}
	result := e.openLocked(open, mark, fill, openCommission)
	if result.Status != broker.Filled {
		// Unreachable given the pre-check above; surface it loudly if the
		// arithmetic ever drifts.
		e.log.Error("reversal open leg rejected after funds pre-check",
			zap.String("symbol", o.Symbol), zap.String("message", result.Message))
		return result
	}

	result.Commission = closeCommission + openCommission
	return result
}

func (e *Engine) sortedSymbolsLocked() []string {
	syms := make([]string, 0, len(e.positions))
	for s := range e.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

func sameDirection(side broker.PositionSide, orderSide broker.Side) bool {
	return (side == broker.Long && orderSide == broker.Buy) ||
		(side == broker.Short && orderSide == broker.Sell)
}

func realizedPnL(side broker.PositionSide, entry, exit, qty float64) float64 {
	if side == broker.Short {
		return (entry - exit) * qty
	}
	return (exit - entry) * qty
}

