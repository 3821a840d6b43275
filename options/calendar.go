package options

import (
	"math"
	"time"
)

const (
	sessionCloseHour   = 15
	sessionCloseMinute = 30

	// ExpiryEpsilon is the floor for time-to-expiry so pricing never
	// divides by a zero time value.
	ExpiryEpsilon = 1e-5
)

// NextWeeklyExpiry returns the next Thursday session close (15:30) at or
// after now, in now's location.
func NextWeeklyExpiry(now time.Time) time.Time {
	daysAhead := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	expiry := time.Date(now.Year(), now.Month(), now.Day(), sessionCloseHour, sessionCloseMinute, 0, 0, now.Location())
	expiry = expiry.AddDate(0, 0, daysAhead)
	if !expiry.After(now) {
		expiry = expiry.AddDate(0, 0, 7)
	}
	return expiry
}

// TimeToExpiryYears converts the span between now and expiry into a year
// fraction of trading time: 6.25 session hours per day, 252 days per year.
// The result is floored at ExpiryEpsilon.
func TimeToExpiryYears(now, expiry time.Time) float64 {
	if !expiry.After(now) {
		return ExpiryEpsilon
	}

	span := expiry.Sub(now)
	fullDays := float64(int(span.Hours() / 24))
	remainderHours := span.Hours() - fullDays*24
	if remainderHours > sessionHours {
		remainderHours = sessionHours
	}

	tradingHours := fullDays*sessionHours + remainderHours
	years := tradingHours / (sessionHours * tradingDaysPerYear)
	return math.Max(years, ExpiryEpsilon)
}

// ATMStrike rounds spot to the nearest strike on the exchange's interval
// grid.
func ATMStrike(spot, interval float64) float64 {
	if interval <= 0 {
		return spot
	}
	return math.Round(spot/interval) * interval
}
