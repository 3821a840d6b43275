// Package sim implements the simulated broker: a netted position ledger
// with slippage and commission, driven bar by bar during replay. The same
// engine backs backtests and paper trading; only the driver differs.
package sim

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/journal"
	"github.com/quantsim/backsim/pkg/id"
)

// OptionQuoter synthesizes a premium for an option symbol at the given
// simulated time. The engine consults it when a derivative position has no
// market quote of its own.
type OptionQuoter interface {
	Quote(symbol string, now time.Time) (float64, error)
}

// Config holds the immutable per-run execution parameters.
type Config struct {
	Name           string // broker name, defaults to "sim"
	InitialCapital float64
	CommissionPct  float64
	SlippagePct    float64
	Seed           int64 // ULID seed; fixed so replays are reproducible
}

// Engine is the simulated broker. All state is owned by one run; never
// share an Engine across concurrent runs.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	now         time.Time
	available   float64
	usedMargin  float64
	realized    float64
	commissions float64

	prices    map[string]float64
	positions map[string]*broker.Position

	fills  []journal.FillRecord
	trades []journal.TradeRecord

	journal journal.Journal
	quoter  OptionQuoter
	ids     *id.Source
	log     *zap.Logger
}

var _ broker.Broker = (*Engine)(nil)

// NewEngine creates a fresh ledger with the configured starting capital.
// j and log may be nil.
func NewEngine(cfg Config, j journal.Journal, log *zap.Logger) *Engine {
	if cfg.Name == "" {
		cfg.Name = "sim"
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		available: cfg.InitialCapital,
		prices:    make(map[string]float64),
		positions: make(map[string]*broker.Position),
		journal:   j,
		ids:       id.NewSource(cfg.Seed),
		log:       log,
	}
}

// SetOptionQuoter installs the pricer used to mark and exit derivative
// positions without their own quotes.
func (e *Engine) SetOptionQuoter(q OptionQuoter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quoter = q
}

func (e *Engine) Name() string { return e.cfg.Name }

// UpdateMarketState advances the simulated clock and refreshes marks and
// unrealized P/L for every open position with a fresh price.
func (e *Engine) UpdateMarketState(ts time.Time, prices map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.now = ts
	for sym, px := range prices {
		e.prices[sym] = px
	}

	for _, p := range e.positions {
		mark, ok := e.markPriceLocked(p.Symbol, p.Product)
		if !ok {
			continue
		}
		p.CurrentPrice = mark
		p.UnrealizedPnL = unrealized(p.Side, p.EntryPrice, mark, p.Quantity)
	}

	if err := e.reconcileLocked(); err != nil {
		e.log.Error("ledger identity violated after mark-to-market", zap.Error(err))
	}
}

// GetFunds returns the cash/margin snapshot. Total is derived:
// available + used margin + unrealized P/L over open positions.
func (e *Engine) GetFunds() broker.Funds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fundsLocked()
}

func (e *Engine) fundsLocked() broker.Funds {
	unreal := 0.0
	for _, p := range e.positions {
		unreal += p.UnrealizedPnL
	}
	return broker.Funds{
		Available:  e.available,
		UsedMargin: e.usedMargin,
		Total:      e.available + e.usedMargin + unreal,
	}
}

// GetPositions returns copies of the open positions, sorted by symbol so
// callers iterate deterministically.
func (e *Engine) GetPositions() []broker.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// GetQuote returns the last known market price for symbol.
func (e *Engine) GetQuote(symbol string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	px, ok := e.prices[symbol]
	return px, ok
}

// Fills returns every fill executed so far, in order.
func (e *Engine) Fills() []journal.FillRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]journal.FillRecord(nil), e.fills...)
}

// Trades returns every closed round-trip so far, in order.
func (e *Engine) Trades() []journal.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]journal.TradeRecord(nil), e.trades...)
}

// Reconcile re-checks the ledger identity:
//
//	available + usedMargin == initial + realized - commissions
//
// It returns an error describing the drift, if any. Property tests lean
// on this after every generated fill sequence.
func (e *Engine) Reconcile() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reconcileLocked()
}

const ledgerTolerance = 1e-6

func (e *Engine) reconcileLocked() error {
	want := e.cfg.InitialCapital + e.realized - e.commissions
	got := e.available + e.usedMargin
	if math.Abs(got-want) > ledgerTolerance*math.Max(1, math.Abs(want)) {
		return fmt.Errorf("sim: ledger drift: available+margin=%.8f, expected %.8f", got, want)
	}
	return nil
}

// markPriceLocked resolves the price a symbol trades at right now: the
// last market quote if one exists, otherwise a synthesized premium for
// option products.
func (e *Engine) markPriceLocked(symbol string, product broker.ProductType) (float64, bool) {
	if px, ok := e.prices[symbol]; ok {
		return px, true
	}
	if product == broker.ProductOption && e.quoter != nil {
		px, err := e.quoter.Quote(symbol, e.now)
		if err == nil && px > 0 {
			return px, true
		}
	}
	return 0, false
}

func unrealized(side broker.PositionSide, entry, price, qty float64) float64 {
	if side == broker.Short {
		return (entry - price) * qty
	}
	return (price - entry) * qty
}
