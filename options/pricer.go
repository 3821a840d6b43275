// Package options provides closed-form European option pricing, greeks,
// historical volatility estimation, and the weekly expiry calendar used to
// synthesize derivative premiums during replay.
package options

import "math"

// OptionType selects call or put pricing.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// BlackScholesCall prices a European call. At or past expiry it returns
// intrinsic value.
func BlackScholesCall(spot, strike, years, rate, vol float64) float64 {
	if years <= 0 {
		return math.Max(spot-strike, 0)
	}
	d1, d2 := dValues(spot, strike, years, rate, vol)
	return spot*normCDF(d1) - strike*math.Exp(-rate*years)*normCDF(d2)
}

// BlackScholesPut prices a European put. At or past expiry it returns
// intrinsic value.
func BlackScholesPut(spot, strike, years, rate, vol float64) float64 {
	if years <= 0 {
		return math.Max(strike-spot, 0)
	}
	d1, d2 := dValues(spot, strike, years, rate, vol)
	return strike*math.Exp(-rate*years)*normCDF(-d2) - spot*normCDF(-d1)
}

// Greeks holds the standard first- and second-order sensitivities.
// Theta is per calendar day; vega and rho are per full point of
// volatility/rate.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// ComputeGreeks returns the greeks for the given option. At expiry the
// degenerate limits apply: delta is +1/-1 for in-the-money calls/puts and
// all other greeks are zero.
func ComputeGreeks(spot, strike, years, rate, vol float64, typ OptionType) Greeks {
	if years <= 0 {
		var g Greeks
		if typ == Call && spot > strike {
			g.Delta = 1
		}
		if typ == Put && spot < strike {
			g.Delta = -1
		}
		return g
	}

	d1, d2 := dValues(spot, strike, years, rate, vol)
	pdf := normPDF(d1)
	disc := math.Exp(-rate * years)

	g := Greeks{
		Gamma: pdf / (spot * vol * math.Sqrt(years)),
		Vega:  spot * pdf * math.Sqrt(years),
	}

	common := -(spot * pdf * vol) / (2 * math.Sqrt(years))
	if typ == Call {
		g.Delta = normCDF(d1)
		g.Theta = (common - rate*strike*disc*normCDF(d2)) / 365
		g.Rho = strike * years * disc * normCDF(d2)
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = (common + rate*strike*disc*normCDF(-d2)) / 365
		g.Rho = -strike * years * disc * normCDF(-d2)
	}
	return g
}

func dValues(spot, strike, years, rate, vol float64) (d1, d2 float64) {
	d1 = (math.Log(spot/strike) + (rate+vol*vol/2)*years) / (vol * math.Sqrt(years))
	d2 = d1 - vol*math.Sqrt(years)
	return d1, d2
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
