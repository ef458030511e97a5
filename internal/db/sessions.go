package db

import (
	"fmt"
	"time"
)

// Session is a catalogued session log.
type Session struct {
	ID          string
	Path        string
	ServiceType string
	Mode        string
	SweepRate   float64
	FrameCount  uint64
	Created     time.Time
}

// RecordSession inserts s, or updates the row with the same ID.
func (db *DB) RecordSession(s Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, path, service_type, mode, sweep_rate, frame_count, created_unix_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			path = excluded.path,
			frame_count = excluded.frame_count`,
		s.ID, s.Path, s.ServiceType, s.Mode, s.SweepRate, int64(s.FrameCount), s.Created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", s.ID, err)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns every session.
func (db *DB) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT session_id, path, service_type, mode, sweep_rate, frame_count, created_unix_ns
		FROM sessions ORDER BY created_unix_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			s       Session
			frames  int64
			created int64
		)
		if err := rows.Scan(&s.ID, &s.Path, &s.ServiceType, &s.Mode, &s.SweepRate, &frames, &created); err != nil {
			return nil, err
		}
		s.FrameCount = uint64(frames)
		s.Created = time.Unix(0, created)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
