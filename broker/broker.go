// Package broker defines the ledger contract shared by the backtest
// simulator, the paper-trading loop, and live broker adapters, plus the
// order/position/funds types that flow through it.
package broker

import (
	"context"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// ProductType distinguishes cash instruments from derivatives. Option
// positions are re-priced through the option pricer when no market quote
// exists for the option symbol itself.
type ProductType string

const (
	ProductEquity ProductType = "EQUITY"
	ProductOption ProductType = "OPTION"
)

// OrderType is the execution style. Only market orders are supported;
// limit/stop types are a live-broker concern.
type OrderType string

const Market OrderType = "MARKET"

// Order is a transient request consumed synchronously by the broker.
type Order struct {
	Symbol         string
	Side           Side
	Quantity       float64
	Type           OrderType
	RequestedPrice float64 // informational; fills happen at marked price +/- slippage
	Product        ProductType
}

// FillStatus reports whether an order executed.
type FillStatus string

const (
	Filled   FillStatus = "FILLED"
	Rejected FillStatus = "REJECTED"
)

// FillResult is returned from PlaceOrder. Rejections are results, never
// errors: callers must branch on Status.
type FillResult struct {
	Status     FillStatus
	OrderID    string
	FillPrice  float64
	Commission float64
	Message    string
}

// Position is the netted exposure for one symbol. There is at most one
// Position per symbol at any time.
type Position struct {
	Symbol        string
	Side          PositionSide
	Quantity      float64
	EntryPrice    float64 // volume-weighted average
	CurrentPrice  float64
	UnrealizedPnL float64
	Product       ProductType
	EntryTime     time.Time
}

// Funds is a snapshot of the cash/margin ledger. Total is derived:
// Available + UsedMargin + sum of unrealized P/L over open positions.
type Funds struct {
	Available  float64
	UsedMargin float64
	Total      float64
}

// Broker is the single ledger interface. The sim engine implements it for
// backtests, the paper loop drives the same engine against polled quotes,
// and live adapters wrap a vendor client behind it.
type Broker interface {
	Name() string

	// UpdateMarketState advances the broker clock and refreshes marks and
	// unrealized P/L for every open position with a new price.
	UpdateMarketState(ts time.Time, prices map[string]float64)

	// PlaceOrder executes a market order against the current marks.
	PlaceOrder(ctx context.Context, o Order) FillResult

	// CancelOrder and ModifyOrder exist for interface parity with live
	// brokers; market fills are immediate, so the simulator treats both
	// as no-ops.
	CancelOrder(ctx context.Context, orderID string) error
	ModifyOrder(ctx context.Context, orderID string, o Order) error

	GetFunds() Funds
	GetPositions() []Position
	GetQuote(symbol string) (float64, bool)
}
