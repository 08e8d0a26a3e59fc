// Command bigmap-metrics runs per-pixel forest metrics over a chunked
// biomass store and writes one artifact per metric.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/config"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/engine"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/runlog"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/source"
)

var (
	sourcePath  = flag.String("source", "", "path to the biomass zarr store")
	configPath  = flag.String("config", "", "path to a JSON run configuration")
	metricList  = flag.String("metrics", "", "comma separated metric names (shortcut for a config file)")
	format      = flag.String("format", "", "output format for -metrics runs: raster, chunked-array or labeled-multidim")
	outDir      = flag.String("out", "", "directory for metric artifacts (default \"out\")")
	tileHeight  = flag.Int("tile-height", 0, "tile height in pixels (default 512)")
	tileWidth   = flag.Int("tile-width", 0, "tile width in pixels (default 512)")
	workers     = flag.Int("workers", 0, "concurrent tile workers (default 1)")
	runlogPath  = flag.String("runlog", "", "optional sqlite database recording run history")
	listMetrics = flag.Bool("list-metrics", false, "list available metrics and exit")
)

func main() {
	flag.Parse()

	reg := metrics.DefaultRegistry()
	if *listMetrics {
		for _, name := range reg.Names() {
			fmt.Printf("%-20s %s\n", name, reg.Describe(name))
		}
		return
	}

	if *sourcePath == "" {
		log.Fatal("-source is required")
	}

	reqs, opts, err := buildRun()
	if err != nil {
		log.Fatalf("bad run configuration: %v", err)
	}

	src, err := source.Open(*sourcePath)
	if err != nil {
		log.Fatalf("open source: %v", err)
	}
	log.Printf("source %s: %d species, %dx%d pixels, crs %s",
		*sourcePath, src.Bands(), src.Height(), src.Width(), src.CRS())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.New(src, reg, opts).Run(ctx, reqs)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	failed := 0
	for _, o := range res.Outcomes {
		switch {
		case o.Serialized:
			fmt.Printf("  %s -> %s\n", o.Name, o.ArtifactPath)
		default:
			failed++
			fmt.Printf("  %s FAILED: %v\n", o.Name, o.Err)
		}
		if o.Warning != "" {
			fmt.Printf("    warning: %s\n", o.Warning)
		}
		if o.ValidationFailures > 0 || o.ComputeErrors > 0 {
			fmt.Printf("    skipped tiles: %d validation, %d compute\n", o.ValidationFailures, o.ComputeErrors)
		}
	}
	fmt.Printf("run %s: %d tiles, %d metrics, %d failed\n", res.RunID, res.Tiles, len(res.Outcomes), failed)

	if *runlogPath != "" {
		if err := recordRun(*runlogPath, *sourcePath, res); err != nil {
			log.Fatalf("record run: %v", err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// buildRun assembles the requests and options from either a config file or
// the -metrics shortcut. Explicit flags win over config file values.
func buildRun() ([]config.MetricRequest, engine.Options, error) {
	opts := engine.Options{
		TileHeight: *tileHeight,
		TileWidth:  *tileWidth,
		Workers:    *workers,
		OutputDir:  *outDir,
	}

	var reqs []config.MetricRequest
	switch {
	case *configPath != "" && *metricList != "":
		return nil, opts, fmt.Errorf("-config and -metrics are mutually exclusive")
	case *configPath != "":
		cfg, err := config.LoadRunConfig(*configPath)
		if err != nil {
			return nil, opts, err
		}
		if opts.TileHeight == 0 && cfg.TileHeight != nil {
			opts.TileHeight = *cfg.TileHeight
		}
		if opts.TileWidth == 0 && cfg.TileWidth != nil {
			opts.TileWidth = *cfg.TileWidth
		}
		if opts.Workers == 0 && cfg.Workers != nil {
			opts.Workers = *cfg.Workers
		}
		if opts.OutputDir == "" && cfg.OutputDir != nil {
			opts.OutputDir = *cfg.OutputDir
		}
		reqs = cfg.Metrics
	case *metricList != "":
		reqs = shortcutRequests(*metricList, *format)
	default:
		return nil, opts, fmt.Errorf("either -config or -metrics is required")
	}

	if opts.OutputDir == "" {
		opts.OutputDir = "out"
	}
	return reqs, opts, nil
}

// shortcutRequests expands "total_biomass,species_richness" into default
// requests, all sharing one output format.
func shortcutRequests(names, format string) []config.MetricRequest {
	var reqs []config.MetricRequest
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		reqs = append(reqs, config.MetricRequest{Name: name, OutputFormat: format})
	}
	return reqs
}

func recordRun(path, src string, res *engine.RunResult) error {
	store, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}
	return store.RecordRun(src, res)
}
