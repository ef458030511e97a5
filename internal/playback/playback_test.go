package playback

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

type event struct {
	name    string
	message string
	payload any
}

type recorder struct {
	events []event
	on     func(event)
}

func (r *recorder) Emit(name, message string, payload any) {
	e := event{name, message, payload}
	r.events = append(r.events, e)
	if r.on != nil {
		r.on(e)
	}
}

func (r *recorder) sequence() []int {
	var out []int
	for _, e := range r.events {
		if e.name == processing.EventSweepInfo {
			out = append(out, e.payload.(sensor.Info).SequenceNumber)
		}
	}
	return out
}

func testConfig() sensor.Config {
	return sensor.Config{Mode: sensor.ModePowerBin, RangeInterval: [2]float64{0.2, 0.5}, SweepRate: 20, Gain: 0.5}
}

func records(n, firstSeq int, withInfo bool) []history.Record {
	out := make([]history.Record, n)
	for i := range out {
		out[i] = history.Record{
			ServiceType:  processing.ServicePowerBin,
			Sweep:        sensor.SweepFromRows([]float64{float64(i), 1, 2}),
			SensorConfig: testConfig(),
		}
		if withInfo {
			out[i].Info = &sensor.Info{SequenceNumber: firstSeq + i}
		}
	}
	return out
}

func newDriver(t *testing.T, host *recorder) (*Driver, *processing.Session, *timeutil.MockClock) {
	t.Helper()
	s, err := processing.NewSession(host, processing.Params{SensorConfig: testConfig(), ServiceType: processing.ServicePowerBin})
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewDriver(s, host, clock), s, clock
}

func TestPlay_RenumbersFromOne(t *testing.T) {
	host := &recorder{}
	d, s, clock := newDriver(t, host)

	n, err := d.Play(context.Background(), NewSliceSource(records(4, 41, true)))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{1, 2, 3, 4}, host.sequence())

	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}, clock.Sleeps())
	assert.Len(t, s.History(), 4)
	assert.Equal(t, 4, s.SweepIndex())
}

func TestPlay_FirstSequenceZeroKeepsNumbers(t *testing.T) {
	host := &recorder{}
	d, _, _ := newDriver(t, host)

	_, err := d.Play(context.Background(), NewSliceSource(records(3, 0, true)))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, host.sequence())
}

func TestPlay_SynthesizesMissingInfo(t *testing.T) {
	host := &recorder{}
	d, _, _ := newDriver(t, host)

	_, err := d.Play(context.Background(), NewSliceSource(records(3, 0, false)))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, host.sequence())
}

func TestPlay_DoesNotMutateSource(t *testing.T) {
	recs := records(2, 10, true)
	d, _, _ := newDriver(t, &recorder{})

	_, err := d.Play(context.Background(), NewSliceSource(recs))
	require.NoError(t, err)
	assert.Equal(t, 10, recs[0].Info.SequenceNumber)
}

func TestPlay_AbortStopsBeforeNextFrame(t *testing.T) {
	host := &recorder{}
	d, s, _ := newDriver(t, host)
	host.on = func(e event) {
		if e.name == processing.EventSweepInfo && e.payload.(sensor.Info).SequenceNumber == 2 {
			s.Abort()
		}
	}

	n, err := d.Play(context.Background(), NewSliceSource(records(5, 1, true)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, host.sequence())
}

func TestPlay_ContextCancel(t *testing.T) {
	host := &recorder{}
	d, _, _ := newDriver(t, host)
	ctx, cancel := context.WithCancel(context.Background())
	host.on = func(e event) {
		if e.name == processing.EventSweepInfo {
			cancel()
		}
	}

	n, err := d.Play(ctx, NewSliceSource(records(5, 1, true)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

type failingSource struct {
	good []history.Record
	err  error
}

func (f *failingSource) Next() (history.Record, error) {
	if len(f.good) == 0 {
		return history.Record{}, f.err
	}
	r := f.good[0]
	f.good = f.good[1:]
	return r, nil
}

func TestPlay_MalformedSource(t *testing.T) {
	tests := []struct {
		name   string
		src    Source
		played int
	}{
		{"unreadable", &failingSource{err: errors.New("not a session")}, 0},
		{"corrupt mid-stream", &failingSource{good: records(2, 1, true), err: errors.New("truncated frame")}, 2},
		{"missing sweep", NewSliceSource([]history.Record{{Info: &sensor.Info{SequenceNumber: 1}}}), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &recorder{}
			d, _, _ := newDriver(t, host)

			n, err := d.Play(context.Background(), tt.src)
			assert.ErrorIs(t, err, ErrMalformedSession)
			assert.Equal(t, tt.played, n)

			last := host.events[len(host.events)-1]
			assert.Equal(t, processing.EventError, last.name)
			assert.Contains(t, last.message, "Wrong file format")
		})
	}
}

func TestPlay_EmptySource(t *testing.T) {
	host := &recorder{}
	d, _, clock := newDriver(t, host)

	n, err := d.Play(context.Background(), NewSliceSource(nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, host.events)
	assert.Empty(t, clock.Sleeps())
}

func TestPlay_ReplaysSessionHistory(t *testing.T) {
	host := &recorder{}
	d, s, _ := newDriver(t, host)
	for i := 0; i < 3; i++ {
		_, err := s.Process(sensor.SweepFromRows([]float64{1, 2, 3}), sensor.Info{SequenceNumber: 100 + i})
		require.NoError(t, err)
	}
	hist := s.History()
	host.events = nil

	n, err := d.Play(context.Background(), NewSliceSource(hist))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, host.sequence())
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(records(1, 1, true))
	_, err := src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
