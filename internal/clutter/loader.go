package clutter

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/sensor"
)

// ErrNoClutterFile is returned by Load when no path was configured. It is a
// normal condition and callers do not surface it to the user.
var ErrNoClutterFile = errors.New("no clutter file configured")

// maxFileBytes bounds the size of a clutter file accepted by Load.
const maxFileBytes = 64 << 20

var logf = monitoring.Component("clutter")

// Loader reads clutter baselines through a FileSystem.
type Loader struct {
	FS fsutil.FileSystem
}

// NewLoader returns a Loader reading from fsys, or the OS filesystem when
// fsys is nil.
func NewLoader(fsys fsutil.FileSystem) *Loader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{FS: fsys}
}

// Load reads the baseline at path and checks it against active. Any failure
// returns Zero(length) together with a descriptive error naming the file.
func (l *Loader) Load(path string, length int, active sensor.Config) (Baseline, error) {
	if path == "" {
		return Zero(length), ErrNoClutterFile
	}

	b, err := l.load(path, length, active)
	if err != nil {
		monitoring.ClutterLoads.WithLabelValues("rejected").Inc()
		logf("rejecting %s: %v", path, err)
		return Zero(length), fmt.Errorf("%w\nFile: %s", err, path)
	}
	monitoring.ClutterLoads.WithLabelValues("ok").Inc()
	return b, nil
}

func (l *Loader) load(path string, length int, active sensor.Config) (Baseline, error) {
	blob, err := fsutil.ReadFileLimited(l.FS, path, maxFileBytes)
	if err != nil {
		return Baseline{}, fmt.Errorf("cannot load clutter (%s): %w", path, err)
	}
	b, _, err := Decode(blob)
	if err != nil {
		return Baseline{}, fmt.Errorf("error loading clutter: %w", err)
	}

	errs := []error{Compatible(b.Config, active)}
	if b.Len() != length {
		errs = append(errs, fmt.Errorf("wrong length: clutter has %d samples and scan has %d", b.Len(), length))
	}
	if err := errors.Join(errs...); err != nil {
		return Baseline{}, err
	}
	return b, nil
}

// Compatible reports why a baseline captured with stored cannot be used
// with active: gain not approximately equal, range intervals that do not
// overlap, or a different mode. All mismatches are joined.
func Compatible(stored, active sensor.Config) error {
	var errs []error
	if !isClose(stored.Gain, active.Gain) {
		errs = append(errs, fmt.Errorf("wrong gain: clutter is %g and scan is %g", stored.Gain, active.Gain))
	}
	if !overlaps(stored.RangeInterval, active.RangeInterval) {
		errs = append(errs, fmt.Errorf("wrong range: clutter is %v and scan is %v", stored.RangeInterval, active.RangeInterval))
	}
	if stored.Mode != active.Mode {
		errs = append(errs, fmt.Errorf("wrong modes: clutter is %s and scan is %s", stored.Mode, active.Mode))
	}
	return errors.Join(errs...)
}

const (
	relTol = 1e-5
	absTol = 1e-8
)

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= absTol+relTol*math.Abs(b)
}

func overlaps(a, b [2]float64) bool {
	return a[0] <= b[1]+absTol && b[0] <= a[1]+absTol
}
