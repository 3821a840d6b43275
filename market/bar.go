// Package market holds bar data types, series validation, and dataset
// loading for backtests.
package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV candle.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ValidateSeries checks the preconditions the replay loop relies on:
// non-empty input, strictly ascending timestamps, and positive OHLC on
// every bar. It returns the first violation found.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("market: empty bar series")
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("market: bar %d (%s) has non-positive OHLC", i, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !bars[i-1].Time.Before(b.Time) {
			return fmt.Errorf("market: bars not in ascending time order at index %d (%s)", i, b.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// TimeframeMinutes guesses the bar interval from the spacing of the first
// two bars. Single-bar series default to one minute.
func TimeframeMinutes(bars []Bar) int {
	if len(bars) < 2 {
		return 1
	}
	m := int(bars[1].Time.Sub(bars[0].Time).Minutes())
	if m < 1 {
		return 1
	}
	return m
}

// SessionMinutes is the length of one trading session (09:15-15:30).
const SessionMinutes = 375

// PeriodsPerDay returns how many bars of the given timeframe fit in one
// trading session.
func PeriodsPerDay(timeframeMinutes int) float64 {
	if timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}
	return float64(SessionMinutes) / float64(timeframeMinutes)
}

// PeriodsPerYear returns the annualization count for the given bar
// timeframe, assuming 252 trading days.
func PeriodsPerYear(timeframeMinutes int) float64 {
	return PeriodsPerDay(timeframeMinutes) * 252
}
