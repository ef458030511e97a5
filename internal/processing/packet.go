package processing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/sensor"
)

// Packet is the plot-ready output for one sweep. It is handed to the host and
// never touched again by the session, so every slice and matrix in it is a
// copy. Handler fields are copied one level deep: slices, row slices and
// matrices are cloned, other values are shared. ProcessData is passed
// through as returned.
type Packet struct {
	// Command is the render command. Empty means nothing is drawn for this
	// sweep (the external transform's warm-up call).
	Command string

	Sweep        int
	SensorConfig sensor.Config

	// XMM is the distance axis in millimetres, one entry per sample.
	XMM []float64

	// Samples holds the raw sweep flattened row-major.
	Samples []float64

	// HistEnv is the gamma-mapped envelope history, most recent row first.
	HistEnv *mat.Dense

	// HistMove is the movement history, most recent row first.
	HistMove *mat.Dense

	// Fields holds named arrays and scalars supplied by an external handler.
	Fields map[string]any

	// ProcessData is forwarded to the host as a process_data event.
	ProcessData any

	// ClutterRaw is the handler's clutter capture buffer
	// (repetitions x samples).
	ClutterRaw [][]complex128
}
