// Package sensor defines the radar session data model shared by the
// processing, clutter, history and playback packages.
package sensor

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode is the sensor acquisition mode.
type Mode string

const (
	ModePowerBin Mode = "power_bin"
	ModeEnvelope Mode = "envelope"
	ModeIQ       Mode = "iq"
	ModeSparse   Mode = "sparse"
)

// ParseMode accepts the canonical names plus the spaced/hyphenated spellings
// used in the UI ("power bin", "power-bin").
func ParseMode(s string) (Mode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Mode(norm) {
	case ModePowerBin, ModeEnvelope, ModeIQ, ModeSparse:
		return Mode(norm), nil
	}
	return "", fmt.Errorf("unknown sensor mode %q", s)
}

// Config is the sensor configuration for one processing session. It is owned
// by the caller and treated as read-only by every processor.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// RangeInterval is [start, stop] in metres. Plot axes are in millimetres.
	RangeInterval [2]float64 `json:"range_interval" yaml:"range_interval"`

	// SweepRate is the nominal sweep frequency in Hz.
	SweepRate float64 `json:"sweep_rate" yaml:"sweep_rate"`

	Gain float64 `json:"gain" yaml:"gain"`
}

// RangeStart returns the start of the range interval in metres.
func (c Config) RangeStart() float64 { return c.RangeInterval[0] }

// RangeStop returns the end of the range interval in metres.
func (c Config) RangeStop() float64 { return c.RangeInterval[1] }

// SweepInterval is the nominal time between sweeps, 1/SweepRate.
func (c Config) SweepInterval() time.Duration {
	if c.SweepRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.SweepRate)
}

// Validate checks that the configuration describes a usable session.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.RangeStop() <= c.RangeStart() {
		return fmt.Errorf("range interval stop %.3f must exceed start %.3f", c.RangeStop(), c.RangeStart())
	}
	if c.SweepRate <= 0 || math.IsInf(c.SweepRate, 0) || math.IsNaN(c.SweepRate) {
		return fmt.Errorf("sweep rate must be positive, got %v", c.SweepRate)
	}
	if c.Gain < 0 || c.Gain > 1 {
		return fmt.Errorf("gain must be between 0 and 1, got %v", c.Gain)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s %.3f-%.3fm %.1fHz gain=%.2f", c.Mode, c.RangeStart(), c.RangeStop(), c.SweepRate, c.Gain)
}
