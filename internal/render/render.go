// Package render draws processed packets to HTML and PNG files and routes
// host events to them.
package render

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/processing"
)

var logf = monitoring.Component("render")

// Renderer draws one packet.
type Renderer interface {
	Render(pkt *processing.Packet) error
}

// Fanout is a processing.Host that sends render commands to every renderer
// and other events to the handler registered for them.
type Fanout struct {
	Renderers []Renderer
	Handlers  map[string]func(message string, payload any)
}

// NewFanout returns a Fanout drawing to renderers.
func NewFanout(renderers ...Renderer) *Fanout {
	return &Fanout{Renderers: renderers, Handlers: make(map[string]func(string, any))}
}

// Handle registers fn for event, replacing any earlier handler.
func (f *Fanout) Handle(event string, fn func(message string, payload any)) {
	f.Handlers[event] = fn
}

// Emit implements processing.Host. Renderer failures are logged; rendering
// is best effort.
func (f *Fanout) Emit(event, message string, payload any) {
	if strings.HasPrefix(event, "update_") {
		pkt, ok := payload.(*processing.Packet)
		if !ok {
			logf("%s without a packet (%T)", event, payload)
			return
		}
		for _, r := range f.Renderers {
			if err := r.Render(pkt); err != nil {
				logf("%T failed on sweep %d: %v", r, pkt.Sweep, err)
			}
		}
		return
	}
	if fn, ok := f.Handlers[event]; ok {
		fn(message, payload)
		return
	}
	if message != "" {
		logf("%s: %s", event, message)
	}
}

// Amplitude extracts the latest amplitude-versus-distance trace from pkt.
func Amplitude(pkt *processing.Packet) (xmm, y []float64, ok bool) {
	switch pkt.Command {
	case processing.CmdUpdatePower:
		n := min(len(pkt.XMM), len(pkt.Samples))
		return pkt.XMM[:n], pkt.Samples[:n], n > 0
	case processing.CmdUpdateSparse:
		if pkt.HistEnv == nil {
			return nil, nil, false
		}
		_, bins := pkt.HistEnv.Dims()
		if len(pkt.XMM) < bins {
			return nil, nil, false
		}
		return pkt.XMM[:bins], mat.Row(nil, 0, pkt.HistEnv), true
	default:
		x, okX := pkt.Fields["x_mm"].([]float64)
		v, okY := pkt.Fields["envelope"].([]float64)
		if !okX || !okY || len(x) != len(v) || len(x) == 0 {
			return nil, nil, false
		}
		return x, v, true
	}
}
