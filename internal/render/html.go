package render

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/processing"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// HTMLRenderer keeps the most recent packet and writes it as an echarts
// page on Flush.
type HTMLRenderer struct {
	fsys fsutil.FileSystem
	path string

	mu     sync.Mutex
	latest *processing.Packet
	frames int
}

// NewHTMLRenderer returns a renderer writing to path.
func NewHTMLRenderer(fsys fsutil.FileSystem, path string) *HTMLRenderer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &HTMLRenderer{fsys: fsys, path: path}
}

// Render implements Renderer.
func (h *HTMLRenderer) Render(pkt *processing.Packet) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = pkt
	h.frames++
	return nil
}

// Flush writes the page for the latest packet. It is a no-op before the
// first packet.
func (h *HTMLRenderer) Flush() error {
	var buf bytes.Buffer
	if err := h.WritePage(&buf); err != nil {
		return err
	}
	if buf.Len() == 0 {
		return nil
	}
	if err := h.fsys.WriteFile(h.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", h.path, err)
	}
	return nil
}

// WritePage renders the page for the latest packet to w. Nothing is
// written before the first packet.
func (h *HTMLRenderer) WritePage(w io.Writer) error {
	h.mu.Lock()
	pkt, frames := h.latest, h.frames
	h.mu.Unlock()
	if pkt == nil {
		return nil
	}

	page := components.NewPage()
	if x, y, ok := Amplitude(pkt); ok {
		page.AddCharts(amplitudeChart(pkt, x, y, frames))
	}
	if pkt.HistEnv != nil {
		page.AddCharts(imageChart("Envelope history", pkt.HistEnv, 255))
	}
	if pkt.HistMove != nil {
		page.AddCharts(imageChart("Movement history", pkt.HistMove, 0))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func amplitudeChart(pkt *processing.Packet, x, y []float64, frames int) *charts.Line {
	labels := make([]string, len(x))
	data := make([]opts.LineData, len(y))
	for i := range x {
		labels[i] = fmt.Sprintf("%.0f", x[i])
		data[i] = opts.LineData{Value: y[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Amplitude",
			Subtitle: fmt.Sprintf("%s sweep=%d rendered=%d", pkt.SensorConfig, pkt.Sweep, frames),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Amplitude"}),
	)
	line.SetXAxis(labels).AddSeries("amplitude", data)
	return line
}

// imageChart draws m as a scatter of (bin, row) cells coloured by value.
// A zero max scales the colour map to the data.
func imageChart(title string, m *mat.Dense, max float64) *charts.Scatter {
	rows, cols := m.Dims()
	if max == 0 {
		max = mat.Max(m)
	}
	data := make([]opts.ScatterData, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			data = append(data, opts.ScatterData{Value: []interface{}{c, r, m.At(r, c)}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d sweeps x %d bins", rows, cols)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Bin", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sweeps ago"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(title, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}
