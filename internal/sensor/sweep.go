package sensor

import (
	"gonum.org/v1/gonum/mat"
)

// Sweep is one frame of raw samples. Data has one row per sub-sweep (a single
// row for services that deliver one sweep at a time). Imag carries the
// quadrature part for IQ data and is nil otherwise.
type Sweep struct {
	Data *mat.Dense
	Imag *mat.Dense
}

// NewSweep wraps row-major samples. data is used as backing storage.
func NewSweep(rows, cols int, data []float64) Sweep {
	return Sweep{Data: mat.NewDense(rows, cols, data)}
}

// SweepFromRows copies the given equal-length rows into a Sweep.
func SweepFromRows(rows ...[]float64) Sweep {
	if len(rows) == 0 {
		return Sweep{}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return NewSweep(len(rows), cols, data)
}

// Dims returns the number of sub-sweeps and the number of samples per sub-sweep.
func (s Sweep) Dims() (rows, cols int) {
	if s.Data == nil {
		return 0, 0
	}
	return s.Data.Dims()
}

// Len is the total number of samples.
func (s Sweep) Len() int {
	r, c := s.Dims()
	return r * c
}

// IsComplex reports whether the sweep carries quadrature samples.
func (s Sweep) IsComplex() bool { return s.Imag != nil }

// Clone returns a deep copy that shares no storage with s.
func (s Sweep) Clone() Sweep {
	var out Sweep
	if s.Data != nil {
		out.Data = mat.DenseCopyOf(s.Data)
	}
	if s.Imag != nil {
		out.Imag = mat.DenseCopyOf(s.Imag)
	}
	return out
}

// Flatten returns the real samples row-major in a new slice.
func (s Sweep) Flatten() []float64 {
	r, c := s.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, s.Data.RawRowView(i)...)
	}
	return out
}

// ComplexRows returns every sub-sweep as complex samples. Real sweeps have
// zero imaginary parts.
func (s Sweep) ComplexRows() [][]complex128 {
	r, c := s.Dims()
	out := make([][]complex128, r)
	for i := 0; i < r; i++ {
		row := make([]complex128, c)
		for j := 0; j < c; j++ {
			im := 0.0
			if s.Imag != nil {
				im = s.Imag.At(i, j)
			}
			row[j] = complex(s.Data.At(i, j), im)
		}
		out[i] = row
	}
	return out
}

// Info is the per-sweep metadata reported by the sensor.
type Info struct {
	SequenceNumber int  `json:"sequence_number"`
	DataSaturated  bool `json:"data_saturated,omitempty"`
	MissedData     bool `json:"missed_data,omitempty"`
}
