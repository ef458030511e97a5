package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sweepview/internal/clutter"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// ClutterCapture is a catalogued clutter file.
type ClutterCapture struct {
	Path    string
	Config  sensor.Config
	Length  int
	Created time.Time
}

// RecordClutter catalogues a clutter file. Recording the same path again
// replaces the earlier entry.
func (db *DB) RecordClutter(c ClutterCapture) error {
	_, err := db.Exec(`
		INSERT INTO clutter_captures (path, mode, gain, range_start, range_stop, sweep_rate, length, created_unix_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mode = excluded.mode,
			gain = excluded.gain,
			range_start = excluded.range_start,
			range_stop = excluded.range_stop,
			sweep_rate = excluded.sweep_rate,
			length = excluded.length,
			created_unix_ns = excluded.created_unix_ns`,
		c.Path, string(c.Config.Mode), c.Config.Gain, c.Config.RangeStart(), c.Config.RangeStop(),
		c.Config.SweepRate, c.Length, c.Created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record clutter %s: %w", c.Path, err)
	}
	return nil
}

// ErrNoClutter is returned by FindClutter when no catalogued capture fits.
var ErrNoClutter = errors.New("no compatible clutter capture")

// FindClutter returns the newest capture of the given length whose
// configuration passes clutter.Compatible against cfg.
func (db *DB) FindClutter(cfg sensor.Config, length int) (ClutterCapture, error) {
	rows, err := db.Query(`
		SELECT path, mode, gain, range_start, range_stop, sweep_rate, length, created_unix_ns
		FROM clutter_captures
		WHERE mode = ? AND length = ?
		ORDER BY created_unix_ns DESC`, string(cfg.Mode), length)
	if err != nil {
		return ClutterCapture{}, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanClutter(rows)
		if err != nil {
			return ClutterCapture{}, err
		}
		if clutter.Compatible(c.Config, cfg) == nil {
			return c, nil
		}
	}
	if err := rows.Err(); err != nil {
		return ClutterCapture{}, err
	}
	return ClutterCapture{}, ErrNoClutter
}

func scanClutter(rows *sql.Rows) (ClutterCapture, error) {
	var (
		c          ClutterCapture
		mode       string
		start, end float64
		created    int64
	)
	if err := rows.Scan(&c.Path, &mode, &c.Config.Gain, &start, &end, &c.Config.SweepRate, &c.Length, &created); err != nil {
		return ClutterCapture{}, err
	}
	c.Config.Mode = sensor.Mode(mode)
	c.Config.RangeInterval = [2]float64{start, end}
	c.Created = time.Unix(0, created)
	return c, nil
}
