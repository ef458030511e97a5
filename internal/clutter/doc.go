// Package clutter loads, validates, computes and stores clutter baselines:
// the averaged environment response captured with no target present, used
// to subtract static reflections from live sweeps.
//
// A baseline is only trusted when it was captured with a configuration
// compatible with the active session. Every failure is soft: Load returns a
// zero baseline of the requested length together with the error.
package clutter
