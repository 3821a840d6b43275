package options

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinPremium is the floor for any synthesized option premium.
const MinPremium = 1.0

// SyntheticParams describe one synthetic premium request. Zero-valued
// Strike, Volatility, and Expiry are filled in from ATMStrike,
// HistoricalVolatility (via the caller), and NextWeeklyExpiry.
type SyntheticParams struct {
	Spot       float64
	Type       OptionType
	Now        time.Time
	Strike     float64   // 0 -> ATM
	Volatility float64   // 0 -> DefaultVolatility
	Expiry     time.Time // zero -> next weekly expiry

	RiskFreeRate   float64
	StrikeInterval float64
	DividendYield  float64

	// ApplyDividendAdjustment scales the premium for the underlying's
	// dividend yield: calls down, puts up.
	ApplyDividendAdjustment bool
}

// PriceSynthetic fills in any missing parameters, prices the option with
// Black-Scholes, and applies the dividend adjustment. If the closed form
// produces a non-finite or non-positive value it falls back to intrinsic
// value, floored at MinPremium. The result is always > 0.
func PriceSynthetic(p SyntheticParams) float64 {
	strike := p.Strike
	if strike <= 0 {
		strike = ATMStrike(p.Spot, p.StrikeInterval)
	}
	vol := p.Volatility
	if vol <= 0 {
		vol = DefaultVolatility
	}
	expiry := p.Expiry
	if expiry.IsZero() {
		expiry = NextWeeklyExpiry(p.Now)
	}
	years := TimeToExpiryYears(p.Now, expiry)

	var premium, intrinsic float64
	if p.Type == Put {
		premium = BlackScholesPut(p.Spot, strike, years, p.RiskFreeRate, vol)
		intrinsic = math.Max(strike-p.Spot, 0)
	} else {
		premium = BlackScholesCall(p.Spot, strike, years, p.RiskFreeRate, vol)
		intrinsic = math.Max(p.Spot-strike, 0)
	}

	if p.ApplyDividendAdjustment && p.DividendYield > 0 {
		adj := math.Exp(-p.DividendYield * years)
		if p.Type == Put {
			adj = math.Exp(p.DividendYield * years)
		}
		premium *= adj
	}

	if math.IsNaN(premium) || math.IsInf(premium, 0) || premium <= 0 {
		premium = math.Max(intrinsic, MinPremium)
	}
	if premium < MinPremium && intrinsic == 0 {
		premium = MinPremium
	}
	return premium
}

// Spec identifies one option contract decoded from a symbol.
type Spec struct {
	Underlying string
	Strike     float64
	Type       OptionType
}

// ParseSymbol decodes an option symbol of the form UNDERLYING-STRIKE-CE
// (or -PE). The boolean result reports whether the symbol is an option;
// anything else is treated as a cash instrument, not an error.
func ParseSymbol(symbol string) (Spec, bool) {
	parts := strings.Split(symbol, "-")
	if len(parts) != 3 {
		return Spec{}, false
	}
	strike, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || strike <= 0 {
		return Spec{}, false
	}
	switch OptionType(parts[2]) {
	case Call, Put:
		return Spec{Underlying: parts[0], Strike: strike, Type: OptionType(parts[2])}, true
	}
	return Spec{}, false
}

// SpotFunc returns the latest mark for a symbol.
type SpotFunc func(symbol string) (float64, bool)

// HistoryFunc returns recent closes for a symbol, oldest first.
type HistoryFunc func(symbol string) []float64

// QuoterConfig tunes the synthetic quoter.
type QuoterConfig struct {
	RiskFreeRate     float64
	StrikeInterval   float64
	DividendYield    float64
	VolWindow        int
	TimeframeMinutes int
}

// Quoter synthesizes option premiums from underlying spot prices. It
// backs the simulated broker when a derivative position has no market
// quote of its own.
type Quoter struct {
	spot    SpotFunc
	history HistoryFunc
	cfg     QuoterConfig
}

// NewQuoter builds a Quoter. history may be nil; volatility then falls
// back to DefaultVolatility.
func NewQuoter(spot SpotFunc, history HistoryFunc, cfg QuoterConfig) *Quoter {
	if cfg.VolWindow == 0 {
		cfg.VolWindow = 20
	}
	if cfg.TimeframeMinutes == 0 {
		cfg.TimeframeMinutes = 5
	}
	return &Quoter{spot: spot, history: history, cfg: cfg}
}

// Quote synthesizes a premium for the given option symbol at the given
// simulated time.
func (q *Quoter) Quote(symbol string, now time.Time) (float64, error) {
	spec, ok := ParseSymbol(symbol)
	if !ok {
		return 0, fmt.Errorf("options: %q is not an option symbol", symbol)
	}
	spot, ok := q.spot(spec.Underlying)
	if !ok {
		return 0, fmt.Errorf("options: no spot price for underlying %q", spec.Underlying)
	}

	vol := DefaultVolatility
	if q.history != nil {
		vol = HistoricalVolatility(q.history(spec.Underlying), q.cfg.VolWindow, q.cfg.TimeframeMinutes)
	}

	premium := PriceSynthetic(SyntheticParams{
		Spot:                    spot,
		Type:                    spec.Type,
		Now:                     now,
		Strike:                  spec.Strike,
		Volatility:              vol,
		RiskFreeRate:            q.cfg.RiskFreeRate,
		StrikeInterval:          q.cfg.StrikeInterval,
		DividendYield:           q.cfg.DividendYield,
		ApplyDividendAdjustment: true,
	})
	return premium, nil
}
