package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := &SessionConfig{}
	require.NoError(t, cfg.Validate())

	want := processing.Params{
		SensorConfig: sensor.Config{Mode: sensor.ModeEnvelope, RangeInterval: [2]float64{0.2, 0.8}, SweepRate: 30, Gain: 0.5},
		ServiceType:  "envelope",
		SweepBuffer:  history.DefaultCapacity,
		SweepCount:   -1,
		ImageBuffer:  processing.DefaultImageBuffer,
	}
	if diff := cmp.Diff(want, cfg.Params()); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, cfg.GetSkipFrames())
}

func TestLoadSessionConfig_JSON(t *testing.T) {
	path := writeFile(t, "session.json", `{
  "mode": "power bin",
  "range_start": 0.3,
  "range_stop": 0.6,
  "sweep_rate": 20,
  "gain": 0.7,
  "sweep_buffer": 64,
  "skip_frames": true
}`)
	cfg, err := LoadSessionConfig(path)
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, sensor.ModePowerBin, p.SensorConfig.Mode)
	assert.Equal(t, [2]float64{0.3, 0.6}, p.SensorConfig.RangeInterval)
	assert.Equal(t, processing.ServicePowerBin, p.ServiceType)
	assert.Equal(t, 64, p.SweepBuffer)
	assert.True(t, cfg.GetSkipFrames())
}

func TestLoadSessionConfig_YAML(t *testing.T) {
	path := writeFile(t, "session.yaml", `
mode: envelope
service_type: envelope
use_clutter: true
clutter_file: /data/room.clutter.gz
service_params:
  smoothing: 0.3
  capture_limit: 200
`)
	cfg, err := LoadSessionConfig(path)
	require.NoError(t, err)

	p := cfg.Params()
	assert.True(t, p.UseClutter)
	assert.Equal(t, "/data/room.clutter.gz", p.ClutterFile)
	assert.Equal(t, 0.3, p.ServiceParams["smoothing"])
	assert.Equal(t, 200, p.ServiceParams["capture_limit"])

	// Params hands out a copy of the service params
	p.ServiceParams["smoothing"] = 0.9
	assert.Equal(t, 0.3, cfg.ServiceParams["smoothing"])
}

func TestLoadSessionConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"extension", "session.txt", `{}`, "extension"},
		{"bad json", "session.json", `{"gain": `, "parse config JSON"},
		{"unknown yaml field", "session.yml", "gian: 0.4\n", "parse config YAML"},
		{"gain", "session.json", `{"gain": 1.5}`, "gain"},
		{"range", "session.json", `{"range_start": 0.9}`, "range_stop"},
		{"mode", "session.json", `{"mode": "doppler"}`, "unknown sensor mode"},
		{"image buffer", "session.json", `{"image_buffer": 5}`, "image_buffer"},
		{"clutter flags", "session.json", `{"create_clutter": true, "use_clutter": true}`, "cannot both"},
		{"sweep rate", "session.json", `{"sweep_rate": 0}`, "sweep_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSessionConfig(writeFile(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := LoadSessionConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadSessionConfig_TooLarge(t *testing.T) {
	big := make([]byte, maxFileSize+1)
	path := filepath.Join(t.TempDir(), "big.json")
	require.NoError(t, os.WriteFile(path, big, 0644))
	_, err := LoadSessionConfig(path)
	assert.ErrorContains(t, err, "too large")
}

func TestSessionConfig_ValidatedParamsBuildSession(t *testing.T) {
	cfg := &SessionConfig{}
	_, err := processing.NewSession(processing.HostFunc(func(string, string, any) {}), (&SessionConfig{Mode: ptr("sparse")}).Params())
	require.NoError(t, err)
	require.NoError(t, cfg.SensorConfig().Validate())
}

func ptr[T any](v T) *T { return &v }
