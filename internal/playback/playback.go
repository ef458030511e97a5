// Package playback replays recorded sweeps through a processing session at
// the session's sweep rate.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/sensor"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

// ErrMalformedSession is returned when a source cannot be read as a sequence
// of sweep records.
var ErrMalformedSession = errors.New("wrong file format")

var logf = monitoring.Component("playback")

// Source yields recorded sweeps in order. Next returns io.EOF after the last
// record.
type Source interface {
	Next() (history.Record, error)
}

// SliceSource replays records held in memory, such as a session history.
type SliceSource struct {
	records []history.Record
	pos     int
}

// NewSliceSource returns a Source over records.
func NewSliceSource(records []history.Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (history.Record, error) {
	if s.pos >= len(s.records) {
		return history.Record{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Driver feeds a Source through a Session, pacing frames by the session's
// sweep interval.
type Driver struct {
	session *processing.Session
	host    processing.Host
	clock   timeutil.Clock
}

// NewDriver returns a Driver. host receives sweep_info and error events and
// should be the same host the session draws to.
func NewDriver(session *processing.Session, host processing.Host, clock timeutil.Clock) *Driver {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Driver{session: session, host: host, clock: clock}
}

// Play replays src from the start and returns the number of frames
// processed. Sequence numbers are renumbered so the first frame is 1; when
// the first frame carries no sensor info, numbers are synthesized.
//
// Playback stops early, without error, after Session.Abort, and with the
// context's error when ctx is cancelled. Both are checked once per frame.
// A source that fails to decode is reported to the host as an error event
// and stops playback with ErrMalformedSession.
func (d *Driver) Play(ctx context.Context, src Source) (int, error) {
	d.session.PrepareReplay()

	first, err := src.Next()
	if errors.Is(err, io.EOF) {
		logf("session is empty")
		return 0, nil
	}
	if err != nil {
		return 0, d.malformed(err)
	}

	infoAvailable := first.Info != nil
	offset := 0
	if infoAvailable {
		offset = max(first.Info.SequenceNumber-1, 0)
	} else {
		logf("session info not available, numbering frames from 1")
	}

	interval := d.session.Config().SweepInterval()
	played := 0
	synthetic := 1
	rec := first
	for {
		if err := ctx.Err(); err != nil {
			logf("cancelled after %d frames", played)
			return played, err
		}
		if d.session.Aborted() {
			logf("aborted after %d frames", played)
			return played, nil
		}
		if rec.Sweep.Data == nil {
			return played, d.malformed(fmt.Errorf("frame %d has no sweep data", played+1))
		}

		var info sensor.Info
		if infoAvailable && rec.Info != nil {
			info = *rec.Info
			info.SequenceNumber -= offset
		} else {
			info = sensor.Info{SequenceNumber: synthetic}
		}
		synthetic = info.SequenceNumber + 1

		d.session.ClearSkip()
		d.clock.Sleep(interval)
		if _, err := d.session.Process(rec.Sweep, info); err != nil {
			return played, fmt.Errorf("failed to process frame %d: %w", played+1, err)
		}
		d.host.Emit(processing.EventSweepInfo, "", info)
		monitoring.PlaybackFrames.Inc()
		played++

		rec, err = src.Next()
		if errors.Is(err, io.EOF) {
			logf("replayed %d frames", played)
			return played, nil
		}
		if err != nil {
			return played, d.malformed(err)
		}
	}
}

func (d *Driver) malformed(err error) error {
	d.host.Emit(processing.EventError, fmt.Sprintf("Wrong file format\n %v", err), nil)
	return fmt.Errorf("%w: %v", ErrMalformedSession, err)
}
