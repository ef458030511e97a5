package clutter

import (
	"github.com/banshee-data/sweepview/internal/sensor"
)

// Baseline is a clutter estimate for one range interval.
type Baseline struct {
	EnvMean []float64    // mean envelope amplitude per sample
	EnvStd  []float64    // envelope standard deviation per sample
	IQMean  []complex128 // mean complex value per sample
	Config  sensor.Config
}

// Zero returns an all-zero baseline of n samples.
func Zero(n int) Baseline {
	if n < 0 {
		n = 0
	}
	return Baseline{
		EnvMean: make([]float64, n),
		EnvStd:  make([]float64, n),
		IQMean:  make([]complex128, n),
	}
}

// Len is the number of samples covered by the baseline.
func (b Baseline) Len() int { return len(b.EnvMean) }

// IsZero reports whether every component of the baseline is zero.
func (b Baseline) IsZero() bool {
	for i := range b.EnvMean {
		if b.EnvMean[i] != 0 {
			return false
		}
	}
	for i := range b.EnvStd {
		if b.EnvStd[i] != 0 {
			return false
		}
	}
	for i := range b.IQMean {
		if b.IQMean[i] != 0 {
			return false
		}
	}
	return true
}
