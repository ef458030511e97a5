package render

import (
	"fmt"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/processing"
)

// PNGRenderer saves an amplitude plot for every Nth rendered packet.
type PNGRenderer struct {
	fsys  fsutil.FileSystem
	dir   string
	every int

	mu    sync.Mutex
	count int
	saved []string
}

// NewPNGRenderer returns a renderer writing into dir. every below one saves
// each packet.
func NewPNGRenderer(fsys fsutil.FileSystem, dir string, every int) (*PNGRenderer, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	return &PNGRenderer{fsys: fsys, dir: dir, every: max(every, 1)}, nil
}

// Render implements Renderer. Packets without an amplitude trace are
// counted but not drawn.
func (r *PNGRenderer) Render(pkt *processing.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++
	if (r.count-1)%r.every != 0 {
		return nil
	}
	x, y, ok := Amplitude(pkt)
	if !ok {
		return nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sweep %d (%s)", pkt.Sweep, pkt.SensorConfig.Mode)
	p.X.Label.Text = "Distance (mm)"
	p.Y.Label.Text = "Amplitude"

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	name := filepath.Join(r.dir, fmt.Sprintf("sweep_%06d.png", pkt.Sweep))
	f, err := r.fsys.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.saved = append(r.saved, name)
	return nil
}

// Saved returns the files written so far.
func (r *PNGRenderer) Saved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}
