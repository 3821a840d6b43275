package options

import "math"

const (
	// DefaultVolatility is used when price history is too short to
	// estimate from.
	DefaultVolatility = 0.20

	minVolatility = 0.10
	maxVolatility = 0.60

	tradingDaysPerYear = 252
	sessionHours       = 6.25
)

// HistoricalVolatility estimates annualized volatility from the standard
// deviation of log returns over the trailing window. The annualization
// factor is sqrt(bars-per-session * 252) for the given bar timeframe, and
// the estimate is clamped to [10%, 60%]. Returns DefaultVolatility when
// fewer than window+1 closes are available.
func HistoricalVolatility(closes []float64, window, timeframeMinutes int) float64 {
	if window < 2 || len(closes) < window+1 {
		return DefaultVolatility
	}

	tail := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] <= 0 || tail[i] <= 0 {
			return DefaultVolatility
		}
		returns = append(returns, math.Log(tail[i]/tail[i-1]))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	if timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}
	periodsPerDay := sessionHours * 60 / float64(timeframeMinutes)
	annualized := math.Sqrt(variance) * math.Sqrt(periodsPerDay*tradingDaysPerYear)

	return clamp(annualized, minVolatility, maxVolatility)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
