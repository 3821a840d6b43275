// Package risk computes position sizes from account capital and per-trade
// risk limits.
package risk

import "math"

// Inputs describe one sizing decision.
type Inputs struct {
	Capital    float64
	RiskPct    float64 // fraction of capital risked per trade, e.g. 0.01
	EntryPrice float64
	StopLoss   float64 // 0 means no stop supplied

	// FallbackFraction sizes the trade as a fraction of capital when no
	// stop is available.
	FallbackFraction float64
}

// Sizing is the computed order size.
type Sizing struct {
	Quantity     float64
	RiskAmount   float64
	StopDistance float64
}

// Calculate sizes a position so that hitting the stop loses
// Capital*RiskPct. Without a stop (or with a degenerate one) it falls
// back to FallbackFraction of capital at the entry price.
func Calculate(in Inputs) Sizing {
	out := Sizing{RiskAmount: in.Capital * in.RiskPct}

	if in.StopLoss > 0 {
		out.StopDistance = math.Abs(in.EntryPrice - in.StopLoss)
	}

	if out.StopDistance > 0 {
		out.Quantity = out.RiskAmount / out.StopDistance
		return out
	}

	if in.EntryPrice > 0 {
		out.Quantity = in.Capital * in.FallbackFraction / in.EntryPrice
	}
	return out
}

// PlannedRisk is the absolute loss if the stop is hit at the given size.
func PlannedRisk(quantity, entry, stop float64) float64 {
	return quantity * math.Abs(entry-stop)
}

// RewardRisk is the take-profit distance expressed as a multiple of the
// stop distance. Returns 0 when the stop distance is zero.
func RewardRisk(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}
