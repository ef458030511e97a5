package clutter

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// FormatVersion is written into every clutter file.
const FormatVersion = 1

// FileExtension is the conventional extension for clutter files.
const FileExtension = ".clutter.gz"

// fileRecord is the on-disk layout: gob, gzip-compressed.
type fileRecord struct {
	Version           int
	CapturedUnixNanos int64
	EnvMean           []float64
	EnvStd            []float64
	IQMean            []complex128
	Config            sensor.Config
}

// Encode serialises b together with its capture time.
func Encode(b Baseline, captured time.Time) ([]byte, error) {
	rec := fileRecord{
		Version:           FormatVersion,
		CapturedUnixNanos: captured.UnixNano(),
		EnvMean:           b.EnvMean,
		EnvStd:            b.EnvStd,
		IQMean:            b.IQMean,
		Config:            b.Config,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(rec); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a clutter file produced by Encode.
func Decode(blob []byte) (Baseline, time.Time, error) {
	if len(blob) == 0 {
		return Baseline{}, time.Time{}, fmt.Errorf("empty clutter file")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return Baseline{}, time.Time{}, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var rec fileRecord
	if err := gob.NewDecoder(gz).Decode(&rec); err != nil {
		return Baseline{}, time.Time{}, fmt.Errorf("failed to decode clutter record: %w", err)
	}
	if rec.Version != FormatVersion {
		return Baseline{}, time.Time{}, fmt.Errorf("unsupported clutter file version %d", rec.Version)
	}
	if len(rec.EnvStd) != len(rec.EnvMean) || len(rec.IQMean) != len(rec.EnvMean) {
		return Baseline{}, time.Time{}, fmt.Errorf("inconsistent clutter record: env=%d std=%d iq=%d",
			len(rec.EnvMean), len(rec.EnvStd), len(rec.IQMean))
	}

	b := Baseline{
		EnvMean: rec.EnvMean,
		EnvStd:  rec.EnvStd,
		IQMean:  rec.IQMean,
		Config:  rec.Config,
	}
	return b, time.Unix(0, rec.CapturedUnixNanos), nil
}

// Save writes b to path, creating parent directories.
func Save(fsys fsutil.FileSystem, path string, b Baseline, captured time.Time) error {
	blob, err := Encode(b, captured)
	if err != nil {
		return fmt.Errorf("failed to encode clutter: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create clutter directory: %w", err)
		}
	}
	if err := fsys.WriteFile(path, blob, 0644); err != nil {
		return fmt.Errorf("failed to write clutter file: %w", err)
	}
	logf("saved %d-sample baseline (%s) to %s", b.Len(), b.Config, path)
	return nil
}
