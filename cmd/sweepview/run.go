package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/sweepview/internal/clutter"
	"github.com/banshee-data/sweepview/internal/config"
	"github.com/banshee-data/sweepview/internal/db"
	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/playback"
	"github.com/banshee-data/sweepview/internal/plugin"
	"github.com/banshee-data/sweepview/internal/processing"
	"github.com/banshee-data/sweepview/internal/render"
	"github.com/banshee-data/sweepview/internal/sensor"
	"github.com/banshee-data/sweepview/internal/sessionlog"
	"github.com/banshee-data/sweepview/internal/timeutil"
)

type options struct {
	configPath    string
	replayDir     string
	synthetic     int
	bins          int
	subsweeps     int
	seed          uint64
	recordDir     string
	clutterOut    string
	dbPath        string
	htmlPath      string
	pngDir        string
	pngEvery      int
	metricsListen string
	skipFrames    bool

	fsys  fsutil.FileSystem
	clock timeutil.Clock
}

func run(ctx context.Context, o options) error {
	if o.fsys == nil {
		o.fsys = fsutil.OSFileSystem{}
	}
	if o.clock == nil {
		o.clock = timeutil.RealClock{}
	}
	if o.replayDir != "" && o.recordDir != "" {
		return errors.New("cannot record while replaying")
	}

	cfg := &config.SessionConfig{}
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadSessionConfig(o.configPath); err != nil {
			return err
		}
	}

	var replayer *sessionlog.Replayer
	if o.replayDir != "" {
		var err error
		if replayer, err = sessionlog.OpenReplayer(o.fsys, o.replayDir); err != nil {
			return err
		}
		// the recorded sensor config wins over the config file
		h := replayer.Header()
		cfg.Mode = ptr(string(h.SensorConfig.Mode))
		cfg.RangeStart = ptr(h.SensorConfig.RangeStart())
		cfg.RangeStop = ptr(h.SensorConfig.RangeStop())
		cfg.SweepRate = ptr(h.SensorConfig.SweepRate)
		cfg.Gain = ptr(h.SensorConfig.Gain)
		if cfg.ServiceType == nil {
			cfg.ServiceType = ptr(h.ServiceType)
		}
		cfg.CreateClutter = ptr(false)
	}
	params := cfg.Params()

	var catalogue *db.DB
	if o.dbPath != "" {
		var err error
		if catalogue, err = db.Open(o.dbPath); err != nil {
			return err
		}
		defer catalogue.Close()

		if params.UseClutter && params.ClutterFile == "" {
			length, err := sweepLength(replayer, o.bins)
			if err != nil {
				return err
			}
			if length == 0 {
				log.Printf("replay log %s is empty; skipping clutter lookup", o.replayDir)
			} else if c, err := catalogue.FindClutter(params.SensorConfig, length); err == nil {
				log.Printf("using catalogued clutter %s", c.Path)
				params.ClutterFile = c.Path
			} else {
				log.Printf("no catalogued clutter for %s: %v", params.SensorConfig, err)
			}
		}
	}

	host, flush, err := newHost(o, params, catalogue)
	if err != nil {
		return err
	}
	defer func() {
		if err := flush(); err != nil {
			log.Printf("failed to flush renderers: %v", err)
		}
	}()

	sessionOpts := []processing.Option{
		processing.WithClock(o.clock),
		processing.WithSkipFrames(o.skipFrames || cfg.GetSkipFrames()),
		processing.WithClutterLoader(clutter.NewLoader(o.fsys)),
	}
	if f := plugin.Factory(params.ServiceType); f != nil {
		sessionOpts = append(sessionOpts, processing.WithHandlerFactory(f))
	}
	session, err := processing.NewSession(host, params, sessionOpts...)
	if err != nil {
		return err
	}

	if o.metricsListen != "" {
		stopMetrics := serveMetrics(o.metricsListen)
		defer stopMetrics()
	}

	if replayer != nil {
		n, err := playback.NewDriver(session, host, o.clock).Play(ctx, replayer)
		log.Printf("replayed %d of %d frames from %s", n, replayer.Len(), o.replayDir)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return runSynthetic(ctx, o, session, host, catalogue)
}

func runSynthetic(ctx context.Context, o options, session *processing.Session, host processing.Host, catalogue *db.DB) error {
	cfg := session.Config()
	gen := sensor.NewSynthetic(cfg, o.subsweeps, o.bins, o.seed)

	limit := o.synthetic
	if session.SweepLimit() > 0 && (limit < 0 || session.SweepLimit() < limit) {
		limit = session.SweepLimit()
	}

	var rec *sessionlog.Recorder
	if o.recordDir != "" {
		var err error
		rec, err = sessionlog.NewRecorder(o.fsys, o.recordDir, session.ServiceType(), cfg, "", o.clock.Now())
		if err != nil {
			return err
		}
	}

	interval := cfg.SweepInterval()
	var runErr error
	for i := 0; limit < 0 || i < limit; i++ {
		if ctx.Err() != nil || session.Aborted() {
			break
		}
		o.clock.Sleep(interval)
		sw, info := gen.Next()
		if _, err := session.Process(sw, info); err != nil {
			runErr = fmt.Errorf("sweep %d: %w", info.SequenceNumber, err)
			break
		}
		host.Emit(processing.EventSweepInfo, "", info)
		if rec != nil {
			r := history.Record{ServiceType: session.ServiceType(), Sweep: sw, SensorConfig: cfg, Info: &info}
			if err := rec.Record(r, o.clock.Now()); err != nil {
				runErr = err
				break
			}
		}
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			return errors.Join(runErr, err)
		}
		h := rec.Header()
		if catalogue != nil {
			err := catalogue.RecordSession(db.Session{
				ID:          h.SessionID,
				Path:        rec.Path(),
				ServiceType: h.ServiceType,
				Mode:        string(h.SensorConfig.Mode),
				SweepRate:   h.SensorConfig.SweepRate,
				FrameCount:  h.TotalFrames,
				Created:     time.Unix(0, h.CreatedNs),
			})
			if err != nil {
				return errors.Join(runErr, err)
			}
		}
	}
	return runErr
}

// newHost wires renderers and event handlers. The returned flush writes the
// HTML page.
func newHost(o options, params processing.Params, catalogue *db.DB) (*render.Fanout, func() error, error) {
	var renderers []render.Renderer
	flush := func() error { return nil }
	if o.htmlPath != "" {
		h := render.NewHTMLRenderer(o.fsys, o.htmlPath)
		renderers = append(renderers, h)
		flush = h.Flush
	}
	if o.pngDir != "" {
		p, err := render.NewPNGRenderer(o.fsys, o.pngDir, o.pngEvery)
		if err != nil {
			return nil, nil, err
		}
		renderers = append(renderers, p)
	}

	host := render.NewFanout(renderers...)
	host.Handle(processing.EventClutterError, func(message string, _ any) {
		log.Printf("clutter disabled: %s", message)
	})
	host.Handle(processing.EventError, func(message string, _ any) {
		log.Printf("error: %s", message)
	})
	host.Handle(processing.EventSweepInfo, func(string, any) {})
	host.Handle(processing.EventProcessData, func(_ string, payload any) {
		if p, ok := payload.(plugin.Peak); ok && p.Sweep%100 == 0 {
			log.Printf("sweep %d: peak %.1f at %.0f mm", p.Sweep, p.Amplitude, p.DistanceMM)
		}
	})
	host.Handle(processing.EventClutterData, func(_ string, payload any) {
		b, ok := payload.(clutter.Baseline)
		if !ok {
			return
		}
		path := o.clutterOut
		if path == "" {
			path = fsutil.SafeName(params.ServiceType+" "+b.Config.String()) + clutter.FileExtension
		}
		now := o.clock.Now()
		if err := clutter.Save(o.fsys, path, b, now); err != nil {
			log.Printf("failed to save clutter: %v", err)
			return
		}
		if catalogue == nil {
			return
		}
		c := db.ClutterCapture{Path: path, Config: b.Config, Length: b.Len(), Created: now}
		if err := catalogue.RecordClutter(c); err != nil {
			log.Printf("failed to catalogue clutter: %v", err)
		}
	})
	return host, flush, nil
}

// sweepLength is the number of samples per sub-sweep of the input. It is
// zero for an empty replay log.
func sweepLength(replayer *sessionlog.Replayer, bins int) (int, error) {
	if replayer == nil {
		return bins, nil
	}
	f, err := replayer.ReadFrame()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read first frame: %w", err)
	}
	if err := replayer.Seek(0); err != nil {
		return 0, err
	}
	_, cols := f.Record.Sweep.Dims()
	return cols, nil
}

func serveMetrics(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server failed: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
		}
	}
}

func ptr[T any](v T) *T { return &v }
