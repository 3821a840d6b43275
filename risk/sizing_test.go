package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	t.Run("stop-based sizing risks the configured amount", func(t *testing.T) {
		t.Parallel()

		s := Calculate(Inputs{Capital: 100_000, RiskPct: 0.01, EntryPrice: 500, StopLoss: 490})
		assert.InDelta(t, 100.0, s.Quantity, 1e-9) // 1000 risk / 10 stop distance
		assert.InDelta(t, 1000.0, s.RiskAmount, 1e-9)
		assert.InDelta(t, 10.0, s.StopDistance, 1e-9)
		assert.InDelta(t, s.RiskAmount, PlannedRisk(s.Quantity, 500, 490), 1e-9)
	})

	t.Run("short stops size the same way", func(t *testing.T) {
		t.Parallel()

		s := Calculate(Inputs{Capital: 100_000, RiskPct: 0.01, EntryPrice: 490, StopLoss: 500})
		assert.InDelta(t, 100.0, s.Quantity, 1e-9)
	})

	t.Run("no stop falls back to capital fraction", func(t *testing.T) {
		t.Parallel()

		s := Calculate(Inputs{Capital: 100_000, RiskPct: 0.01, EntryPrice: 200, FallbackFraction: 0.1})
		assert.InDelta(t, 50.0, s.Quantity, 1e-9) // 10k notional at 200
		assert.Zero(t, s.StopDistance)
	})

	t.Run("stop equal to entry is degenerate and falls back", func(t *testing.T) {
		t.Parallel()

		s := Calculate(Inputs{Capital: 100_000, RiskPct: 0.01, EntryPrice: 200, StopLoss: 200, FallbackFraction: 0.1})
		assert.InDelta(t, 50.0, s.Quantity, 1e-9)
	})

	t.Run("zero entry without stop yields zero quantity", func(t *testing.T) {
		t.Parallel()

		s := Calculate(Inputs{Capital: 100_000, RiskPct: 0.01, FallbackFraction: 0.1})
		assert.Zero(t, s.Quantity)
	})
}

func TestRewardRisk(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RewardRisk(100, 95, 110), 1e-9)
	assert.Zero(t, RewardRisk(100, 100, 110))
}
