package processing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/sensor"
)

func sparseConfig() sensor.Config {
	return sensor.Config{Mode: sensor.ModeSparse, RangeInterval: [2]float64{0.3, 1.2}, SweepRate: 50, Gain: 0.5}
}

// positiveSweep returns subsweeps x bins samples where row r holds
// (r+1)*100 + bin.
func positiveSweep(subsweeps, bins int) sensor.Sweep {
	data := make([]float64, 0, subsweeps*bins)
	for r := 0; r < subsweeps; r++ {
		for j := 0; j < bins; j++ {
			data = append(data, float64((r+1)*100+j))
		}
	}
	return sensor.NewSweep(subsweeps, bins, data)
}

func TestPowerBin_Packet(t *testing.T) {
	cfg := sparseConfig()
	cfg.Mode = sensor.ModePowerBin
	p := NewPowerBin(cfg)

	sw := sensor.SweepFromRows([]float64{1, 2, 3, 4})
	pkt, err := p.Process(0, sw)
	require.NoError(t, err)

	assert.Equal(t, CmdUpdatePower, pkt.Command)
	assert.Equal(t, []float64{300, 600, 900, 1200}, pkt.XMM)
	assert.Equal(t, []float64{1, 2, 3, 4}, pkt.Samples)
	assert.Nil(t, pkt.HistEnv)

	// packet must not alias the transform's axis
	pkt.XMM[0] = -1
	next, err := p.Process(1, sw)
	require.NoError(t, err)
	assert.Equal(t, 300.0, next.XMM[0])
}

func TestSparse_FourByTenSweep(t *testing.T) {
	s := NewSparse(sparseConfig(), 20)
	sw := positiveSweep(4, 10)

	pkt, err := s.Process(0, sw)
	require.NoError(t, err)
	assert.Equal(t, CmdUpdateSparse, pkt.Command)

	// envelope row 0 is the mean across the four sub-sweeps: 250 + bin
	row0 := s.histEnv.RawRowView(0)
	for j := 0; j < 10; j++ {
		assert.InDelta(t, 250+float64(j), row0[j], 1e-9)
	}

	r, c := pkt.HistEnv.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 10, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := pkt.HistEnv.At(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 254.0)
		}
	}
	// positive samples brighten the newest row, increasing with amplitude
	for j := 1; j < c; j++ {
		assert.Greater(t, pkt.HistEnv.At(0, j), pkt.HistEnv.At(0, j-1))
	}
	assert.Greater(t, pkt.HistEnv.At(0, 0), 127.0)
	// empty history rows sit at mid-grey
	assert.InDelta(t, 127.0, pkt.HistEnv.At(5, 0), 1e-9)

	assert.Len(t, pkt.XMM, 40)
	assert.InDelta(t, 300.0, pkt.XMM[0], 1e-9)
	assert.InDelta(t, 1200.0, pkt.XMM[9], 1e-9)
	assert.InDelta(t, 300.0, pkt.XMM[10], 1e-9)
	assert.Len(t, pkt.Samples, 40)
}

func TestSparse_NegativeSamplesDarken(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	sw := sensor.SweepFromRows([]float64{-8000, 8000}, []float64{-8000, 8000})

	pkt, err := s.Process(0, sw)
	require.NoError(t, err)
	assert.Less(t, pkt.HistEnv.At(0, 0), 127.0)
	assert.Greater(t, pkt.HistEnv.At(0, 1), 127.0)
	assert.InDelta(t, 254.0-pkt.HistEnv.At(0, 1), pkt.HistEnv.At(0, 0), 1e-9, "symmetric inputs map symmetrically")
}

func TestSparse_HistoryRollsMostRecentFirst(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	_, err := s.Process(0, sensor.SweepFromRows([]float64{1, 1}))
	require.NoError(t, err)
	_, err = s.Process(1, sensor.SweepFromRows([]float64{2, 2}))
	require.NoError(t, err)
	_, err = s.Process(2, sensor.SweepFromRows([]float64{3, 3}))
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 3}, s.histEnv.RawRowView(0))
	assert.Equal(t, []float64{2, 2}, s.histEnv.RawRowView(1))
	assert.Equal(t, []float64{1, 1}, s.histEnv.RawRowView(2))
	assert.Equal(t, []float64{0, 0}, s.histEnv.RawRowView(3))
}

func TestSparse_ConstantSceneHasNoMovement(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	var pkt *Packet
	var err error
	row := []float64{300, -200, 50, 0, 7000, 12}
	for i := 0; i < 20; i++ {
		pkt, err = s.Process(i, sensor.SweepFromRows(row, row, row, row))
		require.NoError(t, err)
	}
	assert.Zero(t, mat.Max(pkt.HistMove))
}

func TestSparse_StepChangeShowsMovement(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	_, err := s.Process(0, sensor.SweepFromRows([]float64{0, 0}, []float64{0, 0}))
	require.NoError(t, err)
	pkt, err := s.Process(1, sensor.SweepFromRows([]float64{1000, 0}, []float64{1000, 0}))
	require.NoError(t, err)

	assert.Greater(t, pkt.HistMove.At(0, 0), 0.0)
	assert.Zero(t, pkt.HistMove.At(0, 1))
	assert.Zero(t, pkt.HistMove.At(1, 0), "previous row predates the change")
}

func TestSparse_FilterCoefficients(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	_, err := s.Process(0, positiveSweep(4, 3))
	require.NoError(t, err)

	dt := 1.0 / (50 * 4)
	assert.InDelta(t, math.Exp(-dt/0.1), s.fast.Alpha(), 1e-15)
	assert.InDelta(t, math.Exp(-dt/1.0), s.slow.Alpha(), 1e-15)
	assert.InDelta(t, math.Exp(-dt/0.2), s.move.Alpha(), 1e-15)
}

func TestSparse_PacketDoesNotAliasState(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	pkt, err := s.Process(0, positiveSweep(2, 3))
	require.NoError(t, err)
	pkt.HistEnv.Set(0, 0, -1)
	pkt.HistMove.Set(0, 0, -1)
	assert.NotEqual(t, -1.0, s.gammaMap.At(0, 0))
	assert.NotEqual(t, -1.0, s.moveHist.At(0, 0))
}

func TestSparse_Errors(t *testing.T) {
	s := NewSparse(sparseConfig(), 10)
	_, err := s.Process(0, sensor.Sweep{})
	assert.Error(t, err)

	_, err = s.Process(0, positiveSweep(2, 3))
	require.NoError(t, err)
	_, err = s.Process(1, positiveSweep(2, 4))
	assert.ErrorContains(t, err, "bins")

	// index 0 starts a new run with the new shape
	_, err = s.Process(0, positiveSweep(2, 4))
	assert.NoError(t, err)
}

func TestClampImageBuffer(t *testing.T) {
	assert.Equal(t, DefaultImageBuffer, ClampImageBuffer(0))
	assert.Equal(t, MinImageBuffer, ClampImageBuffer(3))
	assert.Equal(t, MaxImageBuffer, ClampImageBuffer(1e6))
	assert.Equal(t, 250, ClampImageBuffer(250))
}
