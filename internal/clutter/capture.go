package clutter

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sweepview/internal/sensor"
)

// FromCapture reduces a capture buffer of repetitions x samples into a
// baseline: per-sample mean amplitude, standard deviation of the complex
// samples about their mean, and the complex mean.
func FromCapture(raw [][]complex128, cfg sensor.Config) (Baseline, error) {
	if len(raw) == 0 || len(raw[0]) == 0 {
		return Baseline{}, fmt.Errorf("empty clutter capture")
	}
	n := len(raw[0])
	for i, row := range raw {
		if len(row) != n {
			return Baseline{}, fmt.Errorf("ragged clutter capture: row %d has %d samples, want %d", i, len(row), n)
		}
	}

	b := Zero(n)
	b.Config = cfg

	amp := make([]float64, len(raw))
	dev := make([]float64, len(raw))
	for j := 0; j < n; j++ {
		var sum complex128
		for i, row := range raw {
			amp[i] = cmplx.Abs(row[j])
			sum += row[j]
		}
		mean := sum / complex(float64(len(raw)), 0)
		for i, row := range raw {
			d := cmplx.Abs(row[j] - mean)
			dev[i] = d * d
		}

		b.EnvMean[j] = stat.Mean(amp, nil)
		b.EnvStd[j] = math.Sqrt(stat.Mean(dev, nil))
		b.IQMean[j] = mean
	}
	return b, nil
}
