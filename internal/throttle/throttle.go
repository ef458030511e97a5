// Package throttle decides whether a processed sweep is rendered now or
// skipped so that UI updates keep up with the sensor's sweep rate.
package throttle

import (
	"math"
	"time"

	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

// Throttler paces rendering against a target frame interval. With skipping
// disabled every frame is rendered.
//
// In skip mode a render is followed by a measurement of the wall time since
// the timing origin. When that exceeds the target, the following
// ceil(elapsed/target)-1 frames are dropped. The origin resets after every
// render and whenever the pending count falls to one or below.
type Throttler struct {
	clock      timeutil.Clock
	target     time.Duration
	skipFrames bool

	skip   float64
	origin time.Time
}

// New returns a Throttler for frames nominally target apart.
func New(clock timeutil.Clock, target time.Duration, skipFrames bool) *Throttler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Throttler{clock: clock, target: target, skipFrames: skipFrames}
}

// Offer renders the frame with the given sweep index, or skips it. It
// reports whether render was called.
func (t *Throttler) Offer(index int, render func()) bool {
	if !t.skipFrames || t.target <= 0 {
		t.render(render)
		return true
	}

	if t.skip <= 1 {
		if index == 0 || t.origin.IsZero() {
			t.origin = t.clock.Now()
		}
		t.render(render)

		elapsed := t.clock.Since(t.origin)
		t.origin = t.clock.Now()
		t.skip = float64(elapsed) / float64(t.target)
		if t.skip > 1 {
			t.skip = math.Ceil(t.skip)
		}
		return true
	}

	t.skip--
	if t.skip <= 1 {
		t.origin = t.clock.Now()
	}
	monitoring.FramesRendered.WithLabelValues("skipped").Inc()
	return false
}

// Pending returns the outstanding skip count.
func (t *Throttler) Pending() float64 { return t.skip }

// Reset clears the skip count and timing origin.
func (t *Throttler) Reset() {
	t.skip = 0
	t.origin = time.Time{}
}

func (t *Throttler) render(render func()) {
	start := t.clock.Now()
	render()
	monitoring.RenderSeconds.Observe(t.clock.Since(start).Seconds())
	monitoring.FramesRendered.WithLabelValues("rendered").Inc()
}
