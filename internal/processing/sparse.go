package processing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/sensor"
)

// Sparse movement filter time constants, in seconds.
const (
	sparseUpperSpeedLimit = 25.0 // assumed fastest target, used for the fast filter
	sparseFastTau         = 1.0 / (sparseUpperSpeedLimit / 2.5)
	sparseSlowTau         = 1.0
	sparseMoveTau         = 0.2

	// fullScale is the magnitude of a full-scale sparse sample.
	fullScale = 1 << 15
)

// Image history limits for sparse sessions.
const (
	DefaultImageBuffer = 100
	MinImageBuffer     = 10
	MaxImageBuffer     = 10000
)

// Sparse keeps rolling envelope and movement images for sparse sweeps
// (sub-sweeps x range bins). Rows are most-recent-first.
type Sparse struct {
	cfg  sensor.Config
	rows int

	histEnv  *mat.Dense
	gammaMap *mat.Dense
	plus     *mat.Dense
	minus    *mat.Dense
	moveHist *mat.Dense
	xmm      []float64

	fast   *ExpFilter
	slow   *ExpFilter
	move   *ExpFilter
	primed bool
	diff   []float64
	avg    []float64
}

// NewSparse returns a Sparse transform keeping imageBuffer rows of history.
func NewSparse(cfg sensor.Config, imageBuffer int) *Sparse {
	return &Sparse{cfg: cfg, rows: ClampImageBuffer(imageBuffer)}
}

// ClampImageBuffer applies the default and limits for the image history size.
func ClampImageBuffer(n int) int {
	switch {
	case n == 0:
		return DefaultImageBuffer
	case n < MinImageBuffer:
		return MinImageBuffer
	case n > MaxImageBuffer:
		return MaxImageBuffer
	}
	return n
}

func (s *Sparse) allocate(subsweeps, bins int) {
	s.histEnv = mat.NewDense(s.rows, bins, nil)
	s.gammaMap = mat.NewDense(s.rows, bins, nil)
	s.plus = mat.NewDense(s.rows, bins, nil)
	s.minus = mat.NewDense(s.rows, bins, nil)
	s.moveHist = mat.NewDense(s.rows, bins, nil)

	axis := Linspace(s.cfg.RangeStart()*1000, s.cfg.RangeStop()*1000, bins)
	s.xmm = make([]float64, 0, subsweeps*bins)
	for i := 0; i < subsweeps; i++ {
		s.xmm = append(s.xmm, axis...)
	}

	dt := 1 / (s.cfg.SweepRate * float64(subsweeps))
	s.fast = NewExpFilter(Alpha(sparseFastTau, dt))
	s.slow = NewExpFilter(Alpha(sparseSlowTau, dt))
	s.move = NewExpFilter(Alpha(sparseMoveTau, dt))
	s.move.Seed(make([]float64, bins))
	s.primed = false
	s.diff = make([]float64, bins)
	s.avg = make([]float64, bins)
}

// Process implements Transform.
func (s *Sparse) Process(index int, sw sensor.Sweep) (*Packet, error) {
	subsweeps, bins := sw.Dims()
	if subsweeps == 0 || bins == 0 {
		return nil, fmt.Errorf("sparse sweep is empty")
	}
	if index == 0 || s.histEnv == nil {
		s.allocate(subsweeps, bins)
	}
	if _, c := s.histEnv.Dims(); c != bins {
		return nil, fmt.Errorf("sparse sweep has %d bins, session started with %d", bins, c)
	}

	s.updateEnvelope(sw, subsweeps)
	s.updateMovement(sw, subsweeps)

	return &Packet{
		Command:      CmdUpdateSparse,
		SensorConfig: s.cfg,
		XMM:          append([]float64(nil), s.xmm...),
		Samples:      sw.Flatten(),
		HistEnv:      mat.DenseCopyOf(s.gammaMap),
		HistMove:     mat.DenseCopyOf(s.moveHist),
	}, nil
}

// updateEnvelope rolls the sub-sweep average into the envelope history and
// rebuilds the display map: positive and negative halves are gamma mapped
// separately around a mid-grey of 254/2.
func (s *Sparse) updateEnvelope(sw sensor.Sweep, subsweeps int) {
	for j := range s.avg {
		s.avg[j] = 0
	}
	for i := 0; i < subsweeps; i++ {
		floats.Add(s.avg, sw.Data.RawRowView(i))
	}
	floats.Scale(1/float64(subsweeps), s.avg)
	rollRows(s.histEnv, s.avg)

	s.plus.Zero()
	s.minus.Zero()
	r, c := s.histEnv.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := s.histEnv.At(i, j)
			if v >= 0 {
				s.plus.Set(i, j, v/fullScale*GammaMaxBrightness)
			}
			if v <= 0 {
				s.minus.Set(i, j, -v/fullScale*GammaMaxBrightness)
			}
		}
	}

	Gamma(s.plus, GammaExponent, GammaMaxBrightness, GammaMinBrightness)
	Gamma(s.minus, GammaExponent, GammaMaxBrightness, GammaMinBrightness)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if s.histEnv.At(i, j) >= 0 {
				s.gammaMap.Set(i, j, (GammaMaxBrightness+s.plus.At(i, j))/2)
			} else {
				s.gammaMap.Set(i, j, (GammaMaxBrightness-s.minus.At(i, j))/2)
			}
		}
	}
}

// updateMovement runs the fast/slow filter pair over every sub-sweep and
// smooths their absolute difference into the movement signal. The first
// sub-sweep of a run only seeds the pair.
func (s *Sparse) updateMovement(sw sensor.Sweep, subsweeps int) {
	for i := 0; i < subsweeps; i++ {
		row := sw.Data.RawRowView(i)
		if !s.primed {
			s.fast.Seed(row)
			s.slow.Seed(row)
			s.primed = true
			continue
		}
		fast := s.fast.Update(row)
		slow := s.slow.Update(row)
		for j := range s.diff {
			s.diff[j] = math.Abs(fast[j] - slow[j])
		}
		s.move.Update(s.diff)
	}
	rollRows(s.moveHist, s.move.Value())
}

// Reset implements Transform.
func (s *Sparse) Reset() {
	s.histEnv = nil
	s.primed = false
}
