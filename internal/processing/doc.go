// Package processing turns raw radar sweeps into plot packets.
//
// A Session is created per acquisition run. It selects one Transform from
// the configured service type (power bin, sparse, or an external plugin),
// feeds it one sweep at a time, records every sweep in a bounded history
// and hands the resulting packet to the host through Emit, optionally
// throttled to the sensor's sweep rate.
//
// Sessions are single-threaded: the host calls Process from one goroutine.
// Only Abort may be called concurrently.
package processing
