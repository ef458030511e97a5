package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sweepview"

var (
	// SweepsProcessed counts sweeps handed to a processing session, by service.
	SweepsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_processed_total",
		Help:      "Sweeps passed through a processing session.",
	}, []string{"service"})

	// FramesRendered counts render commands issued, by outcome (rendered or skipped).
	FramesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Frames offered to the renderer, by outcome.",
	}, []string{"outcome"})

	// RenderSeconds observes the wall-clock cost of one render call.
	RenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_seconds",
		Help:      "Time spent rendering one frame.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	// ClutterLoads counts clutter baseline load attempts by result.
	ClutterLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clutter_loads_total",
		Help:      "Clutter baseline loads, by result.",
	}, []string{"result"})

	// PlaybackFrames counts frames replayed from recorded sessions.
	PlaybackFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_frames_total",
		Help:      "Frames replayed from recorded sessions.",
	})
)
