package sensor

import (
	"math"
	"math/rand/v2"
)

// Synthetic generates plausible sweeps for demos and tests: a static clutter
// profile, one reflector oscillating through the range interval, and
// Gaussian noise.
type Synthetic struct {
	cfg       Config
	subsweeps int
	bins      int
	seq       int
	rng       *rand.Rand

	// Configuration
	NoiseStdDev    float64 // raw sample units
	TargetAmp      float64 // peak target amplitude
	TargetPeriodS  float64 // seconds for one back-and-forth pass
	ClutterProfile []float64
}

// NewSynthetic creates a generator for cfg. Sparse mode yields subsweeps rows
// per sweep; every other mode yields one row.
func NewSynthetic(cfg Config, subsweeps, bins int, seed uint64) *Synthetic {
	if cfg.Mode != ModeSparse || subsweeps < 1 {
		subsweeps = 1
	}
	g := &Synthetic{
		cfg:           cfg,
		subsweeps:     subsweeps,
		bins:          bins,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		NoiseStdDev:   120,
		TargetAmp:     6000,
		TargetPeriodS: 8,
	}
	g.ClutterProfile = make([]float64, bins)
	for i := range g.ClutterProfile {
		g.ClutterProfile[i] = 800 * math.Exp(-float64(i)/float64(bins)*4)
	}
	return g
}

// Next returns the next sweep and its metadata. Sequence numbers start at 1.
func (g *Synthetic) Next() (Sweep, Info) {
	g.seq++
	t := float64(g.seq) / math.Max(g.cfg.SweepRate, 1)
	phase := 2 * math.Pi * t / g.TargetPeriodS
	centre := (0.5 + 0.4*math.Sin(phase)) * float64(g.bins-1)

	data := make([]float64, 0, g.subsweeps*g.bins)
	for s := 0; s < g.subsweeps; s++ {
		for i := 0; i < g.bins; i++ {
			d := float64(i) - centre
			v := g.ClutterProfile[i] + g.TargetAmp*math.Exp(-d*d/4)
			if g.cfg.Mode == ModeSparse {
				// sparse samples are signed around zero
				v *= math.Cos(phase*3 + float64(s))
			}
			data = append(data, v+g.rng.NormFloat64()*g.NoiseStdDev)
		}
	}
	return NewSweep(g.subsweeps, g.bins, data), Info{SequenceNumber: g.seq}
}
