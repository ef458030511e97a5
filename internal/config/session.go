// Package config loads session configuration files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// maxFileSize bounds a config file.
const maxFileSize = 1 * 1024 * 1024

// SessionConfig describes one processing session. Every field is optional;
// the Get* methods supply defaults for anything not set, so partial files
// are safe.
type SessionConfig struct {
	// Sensor
	Mode       *string  `json:"mode,omitempty" yaml:"mode,omitempty"`
	RangeStart *float64 `json:"range_start,omitempty" yaml:"range_start,omitempty"` // metres
	RangeStop  *float64 `json:"range_stop,omitempty" yaml:"range_stop,omitempty"`   // metres
	SweepRate  *float64 `json:"sweep_rate,omitempty" yaml:"sweep_rate,omitempty"`   // Hz
	Gain       *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`

	// Processing
	ServiceType   *string        `json:"service_type,omitempty" yaml:"service_type,omitempty"`
	CreateClutter *bool          `json:"create_clutter,omitempty" yaml:"create_clutter,omitempty"`
	UseClutter    *bool          `json:"use_clutter,omitempty" yaml:"use_clutter,omitempty"`
	ClutterFile   *string        `json:"clutter_file,omitempty" yaml:"clutter_file,omitempty"`
	SweepBuffer   *int           `json:"sweep_buffer,omitempty" yaml:"sweep_buffer,omitempty"`
	SweepCount    *int           `json:"sweep_count,omitempty" yaml:"sweep_count,omitempty"` // negative: unbounded
	ImageBuffer   *int           `json:"image_buffer,omitempty" yaml:"image_buffer,omitempty"`
	SkipFrames    *bool          `json:"skip_frames,omitempty" yaml:"skip_frames,omitempty"`
	ServiceParams map[string]any `json:"service_params,omitempty" yaml:"service_params,omitempty"`
}

// LoadSessionConfig reads a JSON (.json) or YAML (.yaml, .yml) session
// config and validates it.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SessionConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *SessionConfig) Validate() error {
	if c.Mode != nil {
		if _, err := sensor.ParseMode(*c.Mode); err != nil {
			return err
		}
	}
	if c.Gain != nil && (*c.Gain < 0 || *c.Gain > 1) {
		return fmt.Errorf("gain must be between 0 and 1, got %f", *c.Gain)
	}
	if c.SweepRate != nil && *c.SweepRate <= 0 {
		return fmt.Errorf("sweep_rate must be positive, got %f", *c.SweepRate)
	}
	if c.GetRangeStop() <= c.GetRangeStart() {
		return fmt.Errorf("range_stop %.3f must exceed range_start %.3f", c.GetRangeStop(), c.GetRangeStart())
	}
	if c.SweepBuffer != nil && *c.SweepBuffer < 1 {
		return fmt.Errorf("sweep_buffer must be positive, got %d", *c.SweepBuffer)
	}
	if c.ImageBuffer != nil && (*c.ImageBuffer < processing.MinImageBuffer || *c.ImageBuffer > processing.MaxImageBuffer) {
		return fmt.Errorf("image_buffer must be between %d and %d, got %d",
			processing.MinImageBuffer, processing.MaxImageBuffer, *c.ImageBuffer)
	}
	if c.GetCreateClutter() && c.GetUseClutter() {
		return fmt.Errorf("create_clutter and use_clutter cannot both be set")
	}
	return nil
}

// GetMode returns the sensor mode or the default (envelope).
func (c *SessionConfig) GetMode() sensor.Mode {
	if c.Mode == nil {
		return sensor.ModeEnvelope
	}
	m, err := sensor.ParseMode(*c.Mode)
	if err != nil {
		return sensor.ModeEnvelope
	}
	return m
}

// GetRangeStart returns range_start or the default.
func (c *SessionConfig) GetRangeStart() float64 {
	if c.RangeStart == nil {
		return 0.2
	}
	return *c.RangeStart
}

// GetRangeStop returns range_stop or the default.
func (c *SessionConfig) GetRangeStop() float64 {
	if c.RangeStop == nil {
		return 0.8
	}
	return *c.RangeStop
}

// GetSweepRate returns sweep_rate or the default.
func (c *SessionConfig) GetSweepRate() float64 {
	if c.SweepRate == nil {
		return 30
	}
	return *c.SweepRate
}

// GetGain returns gain or the default.
func (c *SessionConfig) GetGain() float64 {
	if c.Gain == nil {
		return 0.5
	}
	return *c.Gain
}

// GetServiceType returns service_type, defaulting to the mode name.
func (c *SessionConfig) GetServiceType() string {
	if c.ServiceType == nil || *c.ServiceType == "" {
		if c.GetMode() == sensor.ModePowerBin {
			return processing.ServicePowerBin
		}
		return string(c.GetMode())
	}
	return *c.ServiceType
}

func (c *SessionConfig) GetCreateClutter() bool { return c.CreateClutter != nil && *c.CreateClutter }
func (c *SessionConfig) GetUseClutter() bool    { return c.UseClutter != nil && *c.UseClutter }
func (c *SessionConfig) GetSkipFrames() bool    { return c.SkipFrames != nil && *c.SkipFrames }

// GetClutterFile returns clutter_file or "".
func (c *SessionConfig) GetClutterFile() string {
	if c.ClutterFile == nil {
		return ""
	}
	return *c.ClutterFile
}

// GetSweepBuffer returns sweep_buffer or the history default.
func (c *SessionConfig) GetSweepBuffer() int {
	if c.SweepBuffer == nil {
		return history.DefaultCapacity
	}
	return *c.SweepBuffer
}

// GetSweepCount returns sweep_count, -1 (unbounded) by default.
func (c *SessionConfig) GetSweepCount() int {
	if c.SweepCount == nil {
		return -1
	}
	return *c.SweepCount
}

// GetImageBuffer returns image_buffer or the sparse default.
func (c *SessionConfig) GetImageBuffer() int {
	if c.ImageBuffer == nil {
		return processing.DefaultImageBuffer
	}
	return *c.ImageBuffer
}

// SensorConfig returns the sensor part of the config.
func (c *SessionConfig) SensorConfig() sensor.Config {
	return sensor.Config{
		Mode:          c.GetMode(),
		RangeInterval: [2]float64{c.GetRangeStart(), c.GetRangeStop()},
		SweepRate:     c.GetSweepRate(),
		Gain:          c.GetGain(),
	}
}

// Params returns the processing session parameters.
func (c *SessionConfig) Params() processing.Params {
	return processing.Params{
		SensorConfig:  c.SensorConfig(),
		ServiceType:   c.GetServiceType(),
		CreateClutter: c.GetCreateClutter(),
		UseClutter:    c.GetUseClutter(),
		ClutterFile:   c.GetClutterFile(),
		SweepBuffer:   c.GetSweepBuffer(),
		SweepCount:    c.GetSweepCount(),
		ImageBuffer:   c.GetImageBuffer(),
		ServiceParams: maps.Clone(c.ServiceParams),
	}
}
