package live

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/quantsim/backsim/broker"
	"github.com/quantsim/backsim/market"
	"github.com/quantsim/backsim/risk"
	"github.com/quantsim/backsim/strategies"
)

// ErrRateLimited should be returned (or wrapped) by QuoteSource
// implementations when the vendor signals throttling; it trips the
// symbol's breaker immediately.
var ErrRateLimited = errors.New("live: rate limited")

// QuoteSource fetches the current price for a symbol from an external
// feed.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (float64, error)
}

// Loop polls quotes at a fixed interval and drives a broker ledger with
// them. It is the paper-trading counterpart of the backtest runner: same
// broker contract, wall-clock driven, failure-isolated per symbol.
type Loop struct {
	Broker   broker.Broker
	Quotes   QuoteSource
	Strategy strategies.Strategy
	Symbols  []string

	Interval         time.Duration
	FailureThreshold int
	Cooldown         time.Duration

	Capital          float64
	RiskPct          float64
	FallbackFraction float64

	Log *zap.Logger

	breakers map[string]*Breaker
	history  map[string][]market.Bar
}

const maxHistoryBars = 500

// Run polls until ctx is cancelled. Each scan is best-effort: one
// symbol's failure never stops the others.
func (l *Loop) Run(ctx context.Context) error {
	if l.Log == nil {
		l.Log = zap.NewNop()
	}
	if l.Interval <= 0 {
		l.Interval = 5 * time.Second
	}
	if l.Cooldown <= 0 {
		l.Cooldown = time.Minute
	}

	l.breakers = make(map[string]*Breaker, len(l.Symbols))
	l.history = make(map[string][]market.Bar, len(l.Symbols))
	for _, s := range l.Symbols {
		l.breakers[s] = NewBreaker(l.FailureThreshold, l.Cooldown)
	}

	l.Strategy.Reset()

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.scan(ctx, now)
		}
	}
}

func (l *Loop) scan(ctx context.Context, now time.Time) {
	prices := make(map[string]float64, len(l.Symbols))

	for _, sym := range l.Symbols {
		br := l.breakers[sym]
		if !br.Allow() {
			l.Log.Debug("breaker open, skipping symbol", zap.String("symbol", sym))
			continue
		}

		px, err := l.Quotes.GetQuote(ctx, sym)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				br.Trip()
				l.Log.Warn("rate limited, breaker tripped", zap.String("symbol", sym))
			} else {
				br.Failure()
				l.Log.Warn("quote fetch failed",
					zap.String("symbol", sym),
					zap.String("breaker", br.CurrentState().String()),
					zap.Error(err))
			}
			continue
		}
		br.Success()
		prices[sym] = px
	}

	if len(prices) == 0 {
		return
	}

	l.Broker.UpdateMarketState(now, prices)

	for _, pos := range l.Broker.GetPositions() {
		px, ok := prices[pos.Symbol]
		if !ok {
			continue
		}
		if l.Strategy.ShouldExit(pos, px, now) {
			l.submitExit(ctx, pos)
		}
	}

	for _, sym := range l.Symbols {
		px, ok := prices[sym]
		if !ok {
			continue
		}

		bar := market.Bar{Symbol: sym, Time: now, Open: px, High: px, Low: px, Close: px}
		hist := append(l.history[sym], bar)
		if len(hist) > maxHistoryBars {
			hist = hist[1:]
		}
		l.history[sym] = hist

		sig, err := l.Strategy.OnData(bar, hist)
		if err != nil {
			l.Log.Warn("strategy error", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		if sig != nil {
			l.submitEntry(ctx, sig, px)
		}
	}
}

func (l *Loop) submitExit(ctx context.Context, pos broker.Position) {
	side := broker.Sell
	if pos.Side == broker.Short {
		side = broker.Buy
	}
	res := l.Broker.PlaceOrder(ctx, broker.Order{
		Symbol:   pos.Symbol,
		Side:     side,
		Quantity: pos.Quantity,
		Type:     broker.Market,
		Product:  pos.Product,
	})
	if res.Status == broker.Rejected {
		l.Log.Warn("exit rejected", zap.String("symbol", pos.Symbol), zap.String("message", res.Message))
	}
}

func (l *Loop) submitEntry(ctx context.Context, sig *strategies.Signal, price float64) {
	sizing := risk.Calculate(risk.Inputs{
		Capital:          l.Capital,
		RiskPct:          l.RiskPct,
		EntryPrice:       price,
		StopLoss:         sig.StopLoss,
		FallbackFraction: l.FallbackFraction,
	})
	if sizing.Quantity <= 0 {
		return
	}
	res := l.Broker.PlaceOrder(ctx, broker.Order{
		Symbol:         sig.Symbol,
		Side:           sig.Direction,
		Quantity:       sizing.Quantity,
		Type:           broker.Market,
		RequestedPrice: price,
		Product:        sig.Product,
	})
	if res.Status == broker.Rejected {
		l.Log.Warn("entry rejected", zap.String("symbol", sig.Symbol), zap.String("message", res.Message))
	}
}
