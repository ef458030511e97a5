// Command sweepview processes radar sweeps from a recorded session or a
// synthetic sensor and renders them to HTML and PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sweepview/internal/version"
)

var (
	configPath    = flag.String("config", "", "Session config file (.json, .yaml or .yml)")
	replayDir     = flag.String("replay", "", "Replay a recorded session directory")
	synthetic     = flag.Int("synthetic", 0, "Process this many sweeps from the synthetic sensor (-1 runs until interrupted)")
	bins          = flag.Int("bins", 64, "Samples per sub-sweep for the synthetic sensor")
	subsweeps     = flag.Int("subsweeps", 16, "Sub-sweeps per sweep for the synthetic sensor in sparse mode")
	seed          = flag.Uint64("seed", 1, "Synthetic sensor random seed")
	recordDir     = flag.String("record", "", "Record processed sweeps to this session directory")
	clutterOut    = flag.String("clutter-out", "", "Where to save a captured clutter baseline")
	dbPath        = flag.String("db", "", "Session and clutter catalogue (sqlite)")
	htmlPath      = flag.String("html", "", "Write the latest frame as an HTML page")
	pngDir        = flag.String("png-dir", "", "Write amplitude plots into this directory")
	pngEvery      = flag.Int("png-every", 10, "Save a PNG for every Nth rendered frame")
	metricsListen = flag.String("metrics-listen", "", "Serve Prometheus metrics on this address")
	skipFrames    = flag.Bool("skip-frames", false, "Skip rendering frames to keep up with the sweep rate")
	showVersion   = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *replayDir == "" && *synthetic == 0 {
		log.Fatal("one of -replay or -synthetic is required")
	}
	if *replayDir != "" && *synthetic != 0 {
		log.Fatal("-replay and -synthetic are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := options{
		configPath:    *configPath,
		replayDir:     *replayDir,
		synthetic:     *synthetic,
		bins:          *bins,
		subsweeps:     *subsweeps,
		seed:          *seed,
		recordDir:     *recordDir,
		clutterOut:    *clutterOut,
		dbPath:        *dbPath,
		htmlPath:      *htmlPath,
		pngDir:        *pngDir,
		pngEvery:      *pngEvery,
		metricsListen: *metricsListen,
		skipFrames:    *skipFrames,
	}
	log.Printf("starting %s", version.String())
	if err := run(ctx, o); err != nil {
		log.Fatalf("sweepview: %v", err)
	}
	log.Printf("done")
}
