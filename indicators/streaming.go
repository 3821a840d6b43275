// Package indicators provides streaming indicators fed one bar at a time.
package indicators

import (
	"fmt"
	"math"

	"github.com/quantsim/backsim/market"
)

// Indicator is the common surface of all streaming indicators.
type Indicator interface {
	Name() string
	Warmup() int
	Update(b market.Bar)
	Ready() bool
	Value() float64
	Reset()
}

// SMA is a streaming simple moving average of closes.
type SMA struct {
	period int
	closes []float64
}

func NewSMA(period int) *SMA {
	return &SMA{period: period, closes: make([]float64, 0, period)}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA(%d)", s.period) }
func (s *SMA) Warmup() int  { return s.period }
func (s *SMA) Reset()       { s.closes = s.closes[:0] }

func (s *SMA) Update(b market.Bar) {
	s.closes = append(s.closes, b.Close)
	if len(s.closes) > s.period {
		s.closes = s.closes[1:]
	}
}

func (s *SMA) Ready() bool { return len(s.closes) >= s.period }

func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	sum := 0.0
	for _, c := range s.closes {
		sum += c
	}
	return sum / float64(len(s.closes))
}

// EMA is a streaming exponential moving average, seeded with an SMA over
// the warmup window.
type EMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *EMA {
	return &EMA{period: period, multiplier: 2.0 / float64(period+1)}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *EMA) Warmup() int  { return e.period }

func (e *EMA) Reset() {
	e.ema, e.warmupSum = 0, 0
	e.count = 0
}

func (e *EMA) Update(b market.Bar) {
	if e.count < e.period {
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (b.Close-e.ema)*e.multiplier + e.ema
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// ATR is a streaming average true range (Wilder smoothing).
type ATR struct {
	period    int
	atr       float64
	prevClose float64
	count     int
	warmupSum float64
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }
func (a *ATR) Warmup() int  { return a.period + 1 }

func (a *ATR) Reset() {
	a.atr, a.prevClose, a.warmupSum = 0, 0, 0
	a.count = 0
}

func (a *ATR) Update(b market.Bar) {
	if a.count == 0 {
		a.prevClose = b.Close
		a.count++
		return
	}

	tr := math.Max(b.High-b.Low,
		math.Max(math.Abs(b.High-a.prevClose), math.Abs(b.Low-a.prevClose)))
	a.prevClose = b.Close

	if a.count <= a.period {
		a.warmupSum += tr
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}
	a.count++
}

func (a *ATR) Ready() bool { return a.count > a.period }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}
