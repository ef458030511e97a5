package processing

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gamma display mapping defaults.
const (
	GammaExponent      = 2.2
	GammaMaxBrightness = 254.0
	GammaMinBrightness = 50.0
)

// Alpha is the coefficient of a single-pole low-pass filter with time
// constant tau sampled every dt: exp(-dt/tau).
func Alpha(tau, dt float64) float64 {
	return math.Exp(-dt / tau)
}

// ExpFilter is an element-wise exponential moving average:
// out = alpha*prev + (1-alpha)*in. An unseeded filter adopts its first
// input unchanged.
type ExpFilter struct {
	alpha float64
	value []float64
}

// NewExpFilter returns an unseeded filter.
func NewExpFilter(alpha float64) *ExpFilter {
	return &ExpFilter{alpha: alpha}
}

// Seed sets the filter state to a copy of x.
func (f *ExpFilter) Seed(x []float64) {
	f.value = append(f.value[:0], x...)
}

// Update folds x into the state and returns it. The returned slice is owned
// by the filter and is overwritten by the next Update.
func (f *ExpFilter) Update(x []float64) []float64 {
	if f.value == nil {
		f.Seed(x)
		return f.value
	}
	for i := range f.value {
		f.value[i] = f.alpha*f.value[i] + (1-f.alpha)*x[i]
	}
	return f.value
}

// Value returns the current state, nil before the first Seed or Update.
func (f *ExpFilter) Value() []float64 { return f.value }

// Alpha returns the smoothing coefficient.
func (f *ExpFilter) Alpha() float64 { return f.alpha }

// Reset returns the filter to the unseeded state.
func (f *ExpFilter) Reset() { f.value = nil }

// Gamma applies a power-law brightness mapping to m in place:
//
//	out = maxB / max(max(m), minB)^(1/exponent) * m^(1/exponent)
//
// clamped to maxB. Entries of m must be non-negative.
func Gamma(m *mat.Dense, exponent, maxB, minB float64) {
	g := 1 / exponent
	peak := math.Max(mat.Max(m), minB)
	scale := maxB / math.Pow(peak, g)
	m.Apply(func(_, _ int, v float64) float64 {
		out := scale * math.Pow(v, g)
		if out > maxB {
			return maxB
		}
		return out
	}, m)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// rollRows shifts every row of m down by one and writes row at index 0.
func rollRows(m *mat.Dense, row []float64) {
	r, _ := m.Dims()
	for i := r - 1; i > 0; i-- {
		m.SetRow(i, m.RawRowView(i-1))
	}
	m.SetRow(0, row)
}
