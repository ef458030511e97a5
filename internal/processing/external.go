package processing

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/clutter"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// Handler is an external per-sweep processor. Process may return nil when
// it has nothing to draw for a sweep.
type Handler interface {
	Process(sw sensor.Sweep) (*Result, error)
}

// ConfigUpdater is implemented by handlers that accept processing
// parameter changes while running.
type ConfigUpdater interface {
	UpdateProcessingConfig(params map[string]any) error
}

// ClutterSource gives handlers access to the session's clutter baseline.
type ClutterSource interface {
	// LoadClutter returns the validated baseline, or a zero baseline of the
	// requested length when none is usable.
	LoadClutter(length int) clutter.Baseline

	// UseClutter reports whether clutter subtraction is enabled.
	UseClutter() bool
}

// HandlerFactory instantiates a Handler for a session.
type HandlerFactory func(cfg sensor.Config, params map[string]any, src ClutterSource) (Handler, error)

// Result is what a Handler produces for one sweep.
type Result struct {
	// Fields are named arrays and scalars for the renderer.
	Fields map[string]any

	// ProcessData, when non-nil, is forwarded to the host as process_data.
	ProcessData any

	// ClutterRaw is the handler's clutter capture buffer.
	ClutterRaw [][]complex128
}

// ErrNoHandlerFactory is returned when an external service is selected
// without a factory.
var ErrNoHandlerFactory = errors.New("external service selected without a handler factory")

// External delegates each sweep to a Handler created on first use. The
// first sweep of a run is processed but not drawn.
type External struct {
	cfg     sensor.Config
	params  map[string]any
	factory HandlerFactory
	src     ClutterSource

	handler Handler
}

// NewExternal returns an External transform.
func NewExternal(cfg sensor.Config, params map[string]any, factory HandlerFactory, src ClutterSource) *External {
	return &External{cfg: cfg, params: params, factory: factory, src: src}
}

// Process implements Transform.
func (e *External) Process(_ int, sw sensor.Sweep) (*Packet, error) {
	first := e.handler == nil
	if first {
		if e.factory == nil {
			return nil, ErrNoHandlerFactory
		}
		h, err := e.factory(e.cfg, e.params, e.src)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate external processing: %w", err)
		}
		e.handler = h
	}

	res, err := e.handler.Process(sw)
	if err != nil {
		return nil, fmt.Errorf("external processing: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	pkt := &Packet{
		SensorConfig: e.cfg,
		Fields:       cloneFields(res.Fields),
		ProcessData:  res.ProcessData,
		ClutterRaw:   cloneRows(res.ClutterRaw),
	}
	if !first {
		pkt.Command = CmdUpdateExternal
	}
	return pkt, nil
}

// UpdateConfig forwards params to the handler when it supports updates.
func (e *External) UpdateConfig(params map[string]any) error {
	u, ok := e.handler.(ConfigUpdater)
	if !ok {
		return nil
	}
	return u.UpdateProcessingConfig(params)
}

// Reset implements Transform. The next sweep instantiates a new handler.
func (e *External) Reset() { e.handler = nil }

// cloneFields copies the map and any slice or matrix values in it. Other
// values are shared.
func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case []float64:
			out[k] = slices.Clone(v)
		case []complex128:
			out[k] = slices.Clone(v)
		case [][]float64:
			out[k] = cloneRows(v)
		case *mat.Dense:
			if v != nil {
				out[k] = mat.DenseCopyOf(v)
			} else {
				out[k] = v
			}
		default:
			out[k] = v
		}
	}
	return out
}

func cloneRows[T any](rows [][]T) [][]T {
	if rows == nil {
		return nil
	}
	out := make([][]T, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}
