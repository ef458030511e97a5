// Package plugin holds reference external handlers for services that the
// processing package does not transform itself.
package plugin

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// Service is the service type served by Envelope.
const Service = "envelope"

// Parameter names understood by Envelope.
const (
	ParamUseClutter   = "use_clutter"
	ParamSmoothing    = "smoothing"
	ParamCaptureLimit = "capture_limit"
)

// DefaultCaptureLimit bounds the clutter capture buffer.
const DefaultCaptureLimit = 500

var logf = monitoring.Component("plugin")

// Envelope reduces each sweep to its mean amplitude per range bin, optionally
// with the clutter baseline removed, and keeps the raw per-bin means as a
// clutter capture buffer.
type Envelope struct {
	cfg sensor.Config
	src processing.ClutterSource

	useClutter   bool
	smoothing    float64
	captureLimit int

	clutter  []float64
	filter   *processing.ExpFilter
	capture  [][]complex128
	xmm      []float64
	sweepIdx int
}

// NewEnvelope is a processing.HandlerFactory.
func NewEnvelope(cfg sensor.Config, params map[string]any, src processing.ClutterSource) (processing.Handler, error) {
	e := &Envelope{cfg: cfg, src: src, captureLimit: DefaultCaptureLimit}
	if err := e.UpdateProcessingConfig(params); err != nil {
		return nil, err
	}
	return e, nil
}

// Factory returns the handler factory for a service type, or nil when no
// reference handler serves it.
func Factory(service string) processing.HandlerFactory {
	if service == Service {
		return NewEnvelope
	}
	return nil
}

// UpdateProcessingConfig implements processing.ConfigUpdater.
func (e *Envelope) UpdateProcessingConfig(params map[string]any) error {
	if v, ok := params[ParamUseClutter]; ok {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%s must be a bool, got %T", ParamUseClutter, v)
		}
		e.useClutter = b
	}
	if v, ok := params[ParamSmoothing]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("%s: %w", ParamSmoothing, err)
		}
		if f < 0 || f >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", ParamSmoothing, f)
		}
		e.smoothing = f
		e.filter = nil
	}
	if v, ok := params[ParamCaptureLimit]; ok {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("%s: %w", ParamCaptureLimit, err)
		}
		if f < 1 {
			return fmt.Errorf("%s must be positive, got %v", ParamCaptureLimit, f)
		}
		e.captureLimit = int(f)
	}
	return nil
}

// Process implements processing.Handler.
func (e *Envelope) Process(sw sensor.Sweep) (*processing.Result, error) {
	subsweeps, bins := sw.Dims()
	if subsweeps == 0 || bins == 0 {
		return nil, fmt.Errorf("empty sweep")
	}
	if e.xmm == nil || len(e.xmm) != bins {
		e.xmm = processing.Linspace(e.cfg.RangeStart()*1000, e.cfg.RangeStop()*1000, bins)
		e.clutter = e.src.LoadClutter(bins).EnvMean
		e.filter = nil
	}

	rows := sw.ComplexRows()
	mean := make([]complex128, bins)
	env := make([]float64, bins)
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
			env[j] += cmplx.Abs(v)
		}
	}
	n := float64(subsweeps)
	for j := range env {
		mean[j] /= complex(n, 0)
		env[j] /= n
	}
	e.appendCapture(mean)

	if e.useClutter && e.src.UseClutter() {
		for j := range env {
			env[j] = math.Max(env[j]-e.clutter[j], 0)
		}
	}

	if e.smoothing > 0 {
		if e.filter == nil {
			e.filter = processing.NewExpFilter(e.smoothing)
		}
		env = append([]float64(nil), e.filter.Update(env)...)
	}

	peak := floats.MaxIdx(env)
	e.sweepIdx++
	return &processing.Result{
		Fields: map[string]any{
			"x_mm":     append([]float64(nil), e.xmm...),
			"envelope": env,
		},
		ProcessData: Peak{
			Sweep:      e.sweepIdx,
			DistanceMM: e.xmm[peak],
			Amplitude:  env[peak],
		},
		ClutterRaw: e.capture,
	}, nil
}

// Peak is the strongest reflection of a sweep, reported as process data.
type Peak struct {
	Sweep      int     `json:"sweep"`
	DistanceMM float64 `json:"distance_mm"`
	Amplitude  float64 `json:"amplitude"`
}

func (e *Envelope) appendCapture(row []complex128) {
	if len(e.capture) >= e.captureLimit {
		return
	}
	e.capture = append(e.capture, row)
	if len(e.capture) == e.captureLimit {
		logf("clutter capture buffer full at %d sweeps", e.captureLimit)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("want a number, got %T", v)
}
