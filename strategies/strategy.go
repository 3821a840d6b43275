// Package strategies defines the strategy contract the simulation driver
// consumes, plus a registry and a couple of built-ins. Signal generation
// itself is a black box to the engine: anything that implements Strategy
// can be replayed.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/market"
)

// Signal is an entry request produced by a strategy. StopLoss and
// TakeProfit are optional (zero means unset).
type Signal struct {
	Symbol     string
	Direction  broker.Side
	StopLoss   float64
	TakeProfit float64
	Product    broker.ProductType
}

// Strategy is the contract the driver replays against.
type Strategy interface {
	Name() string

	// Reset clears internal state before a run.
	Reset()

	// OnData sees the current bar plus all history up to and including
	// it, and may return an entry signal.
	OnData(bar market.Bar, history []market.Bar) (*Signal, error)

	// ShouldExit is asked once per open position per bar.
	ShouldExit(pos broker.Position, price float64, now time.Time) bool

	// Params exposes strategy parameters; "symbol" is always present.
	Params() map[string]string
}

var registry = make(map[string]func(symbol string) Strategy)

// Register adds a strategy constructor under name. Built-ins register
// from init; external strategies can register before the CLI runs.
func Register(name string, ctor func(symbol string) Strategy) {
	registry[strings.ToLower(name)] = ctor
}

// New constructs a registered strategy by name.
func New(name, symbol string) (Strategy, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(symbol), nil
}

// Names lists registered strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
