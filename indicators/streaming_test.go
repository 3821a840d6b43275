package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantsim/backsim/market"
)

func feed(ind Indicator, closes ...float64) {
	for _, c := range closes {
		ind.Update(market.Bar{Open: c, High: c, Low: c, Close: c})
	}
}

func TestSMA(t *testing.T) {
	t.Parallel()

	s := NewSMA(3)
	assert.False(t, s.Ready())
	assert.Zero(t, s.Value())

	feed(s, 1, 2, 3)
	assert.True(t, s.Ready())
	assert.InDelta(t, 2.0, s.Value(), 1e-9)

	// Window slides: (2+3+10)/3.
	feed(s, 10)
	assert.InDelta(t, 5.0, s.Value(), 1e-9)

	s.Reset()
	assert.False(t, s.Ready())
}

func TestEMA(t *testing.T) {
	t.Parallel()

	e := NewEMA(3)
	feed(e, 1, 2, 3)
	assert.True(t, e.Ready())
	assert.InDelta(t, 2.0, e.Value(), 1e-9) // seeded with the SMA

	// multiplier = 2/(3+1) = 0.5; next value = (10-2)*0.5 + 2.
	feed(e, 10)
	assert.InDelta(t, 6.0, e.Value(), 1e-9)
}

func TestATR(t *testing.T) {
	t.Parallel()

	a := NewATR(2)
	assert.Equal(t, 3, a.Warmup())

	bars := []market.Bar{
		{High: 102, Low: 98, Close: 100}, // seeds prevClose only
		{High: 104, Low: 100, Close: 103},
		{High: 105, Low: 101, Close: 104},
	}
	for _, b := range bars[:2] {
		a.Update(b)
	}
	assert.False(t, a.Ready())

	a.Update(bars[2])
	assert.True(t, a.Ready())
	// TRs: bar1 max(4, |104-100|, |100-100|)=4; bar2 max(4, |105-103|, |101-103|)=4.
	assert.InDelta(t, 4.0, a.Value(), 1e-9)

	// Wilder smoothing: (4*1 + 6)/2 with the next TR of 6.
	a.Update(market.Bar{High: 110, Low: 104, Close: 108})
	assert.InDelta(t, 5.0, a.Value(), 1e-9)
}

func TestGapTrueRange(t *testing.T) {
	t.Parallel()

	// A gap up makes |high-prevClose| the dominant term.
	a := NewATR(1)
	a.Update(market.Bar{High: 101, Low: 99, Close: 100})
	a.Update(market.Bar{High: 111, Low: 110, Close: 110})
	assert.InDelta(t, 11.0, a.Value(), 1e-9)
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SMA(10)", NewSMA(10).Name())
	assert.Equal(t, "EMA(21)", NewEMA(21).Name())
	assert.Equal(t, "ATR(14)", NewATR(14).Name())
}
