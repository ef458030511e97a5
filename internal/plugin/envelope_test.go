package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/clutter"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
)

type stubClutter struct {
	baseline clutter.Baseline
	use      bool
	loads    int
}

func (s *stubClutter) LoadClutter(length int) clutter.Baseline {
	s.loads++
	if s.baseline.Len() != length {
		return clutter.Zero(length)
	}
	return s.baseline
}

func (s *stubClutter) UseClutter() bool { return s.use }

func testConfig() sensor.Config {
	return sensor.Config{Mode: sensor.ModeEnvelope, RangeInterval: [2]float64{0.1, 0.4}, SweepRate: 10, Gain: 0.5}
}

func newEnvelope(t *testing.T, params map[string]any, src processing.ClutterSource) *Envelope {
	t.Helper()
	h, err := NewEnvelope(testConfig(), params, src)
	require.NoError(t, err)
	return h.(*Envelope)
}

func TestEnvelope_MeanAmplitudePerBin(t *testing.T) {
	e := newEnvelope(t, nil, &stubClutter{})

	res, err := e.Process(sensor.SweepFromRows([]float64{1, -4, 2, 0}, []float64{3, 0, -2, 8}))
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 2, 2, 4}, res.Fields["envelope"])
	assert.InDeltaSlice(t, []float64{100, 200, 300, 400}, res.Fields["x_mm"], 1e-9)

	peak := res.ProcessData.(Peak)
	assert.Equal(t, 1, peak.Sweep)
	assert.InDelta(t, 400, peak.DistanceMM, 1e-9)
	assert.Equal(t, 4.0, peak.Amplitude)

	require.Len(t, res.ClutterRaw, 1)
	assert.Equal(t, []complex128{2, -2, 0, 4}, res.ClutterRaw[0])
}

func TestEnvelope_ComplexSamples(t *testing.T) {
	e := newEnvelope(t, nil, &stubClutter{})
	sw := sensor.SweepFromRows([]float64{3, 0})
	sw.Imag = sensor.SweepFromRows([]float64{4, 1}).Data

	res, err := e.Process(sw)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 1}, res.Fields["envelope"], 1e-12)
}

func TestEnvelope_ClutterSubtraction(t *testing.T) {
	base := clutter.Zero(3)
	base.EnvMean = []float64{1, 5, 0.5}
	src := &stubClutter{baseline: base, use: true}
	e := newEnvelope(t, map[string]any{ParamUseClutter: true}, src)

	res, err := e.Process(sensor.SweepFromRows([]float64{3, 2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0.5}, res.Fields["envelope"], "negative differences clamp to zero")
	assert.Equal(t, 1, src.loads)

	// the session disabling clutter wins over the handler flag
	src.use = false
	res, err = e.Process(sensor.SweepFromRows([]float64{3, 2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, res.Fields["envelope"])
	assert.Equal(t, 1, src.loads, "baseline is loaded once per shape")
}

func TestEnvelope_UpdateProcessingConfig(t *testing.T) {
	base := clutter.Zero(2)
	base.EnvMean = []float64{1, 1}
	e := newEnvelope(t, nil, &stubClutter{baseline: base, use: true})

	res, err := e.Process(sensor.SweepFromRows([]float64{2, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, res.Fields["envelope"])

	require.NoError(t, e.UpdateProcessingConfig(map[string]any{ParamUseClutter: true}))
	res, err = e.Process(sensor.SweepFromRows([]float64{2, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, res.Fields["envelope"])

	assert.Error(t, e.UpdateProcessingConfig(map[string]any{ParamUseClutter: "yes"}))
	assert.Error(t, e.UpdateProcessingConfig(map[string]any{ParamSmoothing: 1.5}))
	assert.Error(t, e.UpdateProcessingConfig(map[string]any{ParamCaptureLimit: 0}))
	assert.Error(t, e.UpdateProcessingConfig(map[string]any{ParamCaptureLimit: "many"}))
}

func TestEnvelope_Smoothing(t *testing.T) {
	e := newEnvelope(t, map[string]any{ParamSmoothing: 0.5}, &stubClutter{})

	first, err := e.Process(sensor.SweepFromRows([]float64{4}))
	require.NoError(t, err)
	second, err := e.Process(sensor.SweepFromRows([]float64{0}))
	require.NoError(t, err)

	assert.Equal(t, []float64{4}, first.Fields["envelope"], "earlier results are not overwritten")
	assert.Equal(t, []float64{2}, second.Fields["envelope"])
}

func TestEnvelope_CaptureLimit(t *testing.T) {
	e := newEnvelope(t, map[string]any{ParamCaptureLimit: 3}, &stubClutter{})

	var res *processing.Result
	for i := 0; i < 5; i++ {
		var err error
		res, err = e.Process(sensor.SweepFromRows([]float64{float64(i)}))
		require.NoError(t, err)
	}
	assert.Len(t, res.ClutterRaw, 3)
	assert.Equal(t, complex(2, 0), res.ClutterRaw[2][0])
}

func TestEnvelope_EmptySweep(t *testing.T) {
	e := newEnvelope(t, nil, &stubClutter{})
	_, err := e.Process(sensor.Sweep{})
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	assert.NotNil(t, Factory(Service))
	assert.Nil(t, Factory("iq"))

	_, err := NewEnvelope(testConfig(), map[string]any{ParamSmoothing: -1.0}, &stubClutter{})
	assert.Error(t, err)
}

func TestEnvelope_WithSession(t *testing.T) {
	var draws int
	host := processing.HostFunc(func(event, _ string, _ any) {
		if event == processing.CmdUpdateExternal {
			draws++
		}
	})
	s, err := processing.NewSession(host, processing.Params{SensorConfig: testConfig(), ServiceType: Service},
		processing.WithHandlerFactory(NewEnvelope))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Process(sensor.SweepFromRows([]float64{1, 2, 3}), sensor.Info{SequenceNumber: i + 1})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, draws)
}
