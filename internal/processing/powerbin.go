package processing

import (
	"github.com/banshee-data/sweepview/internal/sensor"
)

// Transform turns one sweep into a packet. index is the session's render
// counter; index 0 marks the start of a run and triggers (re)allocation of
// any state sized by the sample shape.
type Transform interface {
	Process(index int, sw sensor.Sweep) (*Packet, error)
	Reset()
}

// PowerBin packages power-bin sweeps with a distance axis. It keeps no state
// beyond the axis.
type PowerBin struct {
	cfg sensor.Config
	xmm []float64
}

// NewPowerBin returns a PowerBin transform for cfg.
func NewPowerBin(cfg sensor.Config) *PowerBin {
	return &PowerBin{cfg: cfg}
}

// Process implements Transform.
func (p *PowerBin) Process(index int, sw sensor.Sweep) (*Packet, error) {
	n := sw.Len()
	if index == 0 || len(p.xmm) != n {
		p.xmm = Linspace(p.cfg.RangeStart()*1000, p.cfg.RangeStop()*1000, n)
	}
	return &Packet{
		Command:      CmdUpdatePower,
		SensorConfig: p.cfg,
		XMM:          append([]float64(nil), p.xmm...),
		Samples:      sw.Flatten(),
	}, nil
}

// Reset implements Transform.
func (p *PowerBin) Reset() { p.xmm = nil }
