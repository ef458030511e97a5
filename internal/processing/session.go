package processing

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync/atomic"

	"github.com/banshee-data/sweepview/internal/clutter"
	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/sensor"
	"github.com/banshee-data/sweepview/internal/throttle"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

// Service types with built-in transforms. Every other service type is
// handled by an external Handler.
const (
	ServicePowerBin = "power bin"
	ServiceSparse   = "sparse"
)

var logf = monitoring.Component("processing")

// Params configures a Session.
type Params struct {
	SensorConfig sensor.Config
	ServiceType  string

	CreateClutter bool
	UseClutter    bool
	ClutterFile   string

	// SweepBuffer bounds the history. Zero selects history.DefaultCapacity.
	SweepBuffer int

	// SweepCount is the number of sweeps the host intends to acquire.
	// Negative means unbounded, in which case clutter capture uses SweepBuffer.
	SweepCount int

	// ImageBuffer is the number of rows kept by sparse images.
	ImageBuffer int

	// ServiceParams are passed to external handlers.
	ServiceParams map[string]any
}

// Option customises a Session.
type Option func(*Session)

// WithClock sets the clock used for render throttling.
func WithClock(c timeutil.Clock) Option { return func(s *Session) { s.clock = c } }

// WithSkipFrames enables render throttling against the sweep rate.
func WithSkipFrames(skip bool) Option { return func(s *Session) { s.skipFrames = skip } }

// WithHandlerFactory sets the factory for external services.
func WithHandlerFactory(f HandlerFactory) Option { return func(s *Session) { s.factory = f } }

// WithClutterLoader sets the loader used by LoadClutter.
func WithClutterLoader(l *clutter.Loader) Option { return func(s *Session) { s.loader = l } }

// Session drives one processing run.
type Session struct {
	host          Host
	cfg           sensor.Config
	serviceType   string
	serviceParams map[string]any
	createClutter bool
	useClutter    bool
	clutterFile   string
	sweepCount    int
	sweeps        int

	clock      timeutil.Clock
	skipFrames bool
	factory    HandlerFactory
	loader     *clutter.Loader

	transform Transform
	external  *External
	throttle  *throttle.Throttler
	history   *history.Buffer

	sweep int
	abort atomic.Bool
}

// NewSession validates params and prepares a session reporting to host.
func NewSession(host Host, p Params, opts ...Option) (*Session, error) {
	if host == nil {
		return nil, errors.New("processing session requires a host")
	}
	if err := p.SensorConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sensor config: %w", err)
	}

	s := &Session{
		host:          host,
		cfg:           p.SensorConfig,
		serviceType:   p.ServiceType,
		serviceParams: maps.Clone(p.ServiceParams),
		createClutter: p.CreateClutter,
		useClutter:    p.UseClutter,
		clutterFile:   p.ClutterFile,
		sweepCount:    p.SweepCount,
		clock:         timeutil.RealClock{},
	}
	if s.serviceParams == nil {
		s.serviceParams = make(map[string]any)
	}
	s.serviceParams["use_clutter"] = s.useClutter
	for _, opt := range opts {
		opt(s)
	}
	if s.loader == nil {
		s.loader = clutter.NewLoader(nil)
	}

	capacity := p.SweepBuffer
	if capacity == 0 {
		capacity = history.DefaultCapacity
	}
	s.history = history.NewBuffer(capacity)

	s.sweeps = p.SweepCount
	if s.sweeps < 0 {
		s.sweeps = capacity
	}

	switch strings.ToLower(strings.TrimSpace(p.ServiceType)) {
	case ServicePowerBin:
		s.transform = NewPowerBin(s.cfg)
	case ServiceSparse:
		s.transform = NewSparse(s.cfg, p.ImageBuffer)
	default:
		if s.factory == nil {
			return nil, fmt.Errorf("service %q: %w", p.ServiceType, ErrNoHandlerFactory)
		}
		s.external = NewExternal(s.cfg, s.serviceParams, s.factory, s)
		s.transform = s.external
	}
	s.throttle = throttle.New(s.clock, s.cfg.SweepInterval(), s.skipFrames)

	logf("prepared %q session: %s, history=%d", p.ServiceType, s.cfg, capacity)
	return s, nil
}

// Reset discards all per-run state: history, sweep counter, transform
// buffers, throttling and the abort flag.
func (s *Session) Reset() {
	s.sweep = 0
	s.abort.Store(false)
	s.history.Reset()
	s.transform.Reset()
	s.throttle.Reset()
}

// PrepareReplay resets the session for playback of a recorded run. Clutter
// capture is disabled during replay.
func (s *Session) PrepareReplay() {
	s.Reset()
	s.createClutter = false
}

// Process runs one sweep through the transform, draws the packet and
// records the sweep. Transform errors are returned unhandled.
func (s *Session) Process(sw sensor.Sweep, info sensor.Info) (*Packet, error) {
	pkt, err := s.transform.Process(s.sweep, sw)
	if err != nil {
		return nil, err
	}
	monitoring.SweepsProcessed.WithLabelValues(s.serviceType).Inc()

	if pkt != nil && pkt.Command != "" {
		pkt.Sweep = s.sweep
		if s.external != nil {
			// external packets carry the count of drawn sweeps including this one
			pkt.Sweep = s.sweep + 1
		}
		s.throttle.Offer(s.sweep, func() { s.host.Emit(pkt.Command, "", pkt) })
		s.sweep++

		if pkt.ProcessData != nil {
			s.host.Emit(EventProcessData, "", pkt.ProcessData)
		}
		if s.createClutter && s.sweep == s.sweeps-1 && pkt.ClutterRaw != nil {
			if err := s.emitClutter(pkt.ClutterRaw); err != nil {
				return nil, err
			}
		}
	}

	s.history.Append(history.Record{
		ServiceType:  s.serviceType,
		Sweep:        sw,
		SensorConfig: s.cfg,
		ClutterFile:  s.clutterFile,
		Info:         &info,
	})
	return pkt, nil
}

func (s *Session) emitClutter(raw [][]complex128) error {
	b, err := clutter.FromCapture(raw, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to compute clutter: %w", err)
	}
	logf("clutter capture complete after %d sweeps (%d repetitions x %d samples)", s.sweep, len(raw), b.Len())
	s.host.Emit(EventClutterData, "", b)
	return nil
}

// ClearSkip drops any pending frame skips so the next sweep is rendered.
func (s *Session) ClearSkip() { s.throttle.Reset() }

// LoadClutter loads and validates the configured clutter file. On failure it
// disables clutter use, reports the problem as clutter_error (unless no file
// was configured) and returns a zero baseline of the requested length.
func (s *Session) LoadClutter(length int) clutter.Baseline {
	b, err := s.loader.Load(s.clutterFile, length, s.cfg)
	if err != nil {
		s.useClutter = false
		if !errors.Is(err, clutter.ErrNoClutterFile) {
			s.host.Emit(EventClutterError, err.Error(), nil)
		}
	}
	return b
}

// UseClutter reports whether clutter subtraction is enabled.
func (s *Session) UseClutter() bool { return s.useClutter }

// SetClutterFlag enables or disables clutter subtraction and forwards the
// change to an external handler that accepts configuration updates.
func (s *Session) SetClutterFlag(enable bool) {
	s.useClutter = enable
	s.serviceParams["use_clutter"] = enable
	if s.external == nil || s.external.handler == nil {
		return
	}
	if err := s.external.UpdateConfig(s.serviceParams); err != nil {
		logf("handler rejected clutter flag update: %v", err)
	}
}

// Abort asks a running playback to stop before its next frame.
func (s *Session) Abort() { s.abort.Store(true) }

// Aborted reports whether Abort was called since the last Reset.
func (s *Session) Aborted() bool { return s.abort.Load() }

// History returns copies of the recorded sweeps, oldest first.
func (s *Session) History() []history.Record { return s.history.Records() }

// SweepIndex returns the number of sweeps drawn so far.
func (s *Session) SweepIndex() int { return s.sweep }

// SweepLimit is the number of sweeps the host should acquire: the clutter
// capture length when creating clutter, otherwise the requested count
// (negative for unbounded).
func (s *Session) SweepLimit() int {
	if s.createClutter {
		return s.sweeps
	}
	return s.sweepCount
}

// Config returns the session's sensor configuration.
func (s *Session) Config() sensor.Config { return s.cfg }

// ServiceType returns the configured service type.
func (s *Session) ServiceType() string { return s.serviceType }
