// Package engine runs a configured set of metrics over a biomass source in
// spatial tiles. All run configuration is validated before the first source
// read; per-tile failures after that point are counted and logged without
// aborting the run.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ctessum/sparse"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/config"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/encode"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/monitoring"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/source"
)

// Engine defaults applied when Options fields are zero.
const (
	DefaultTileHeight = 512
	DefaultTileWidth  = 512
)

// Options tunes one run. Zero values take the defaults above; Workers
// defaults to 1 (sequential).
type Options struct {
	TileHeight int
	TileWidth  int
	Workers    int
	OutputDir  string
}

// MetricOutcome summarizes one metric at the end of a run.
type MetricOutcome struct {
	Name       string
	OutputName string
	Format     encode.Format

	ArtifactPath string
	Serialized   bool

	ValidationFailures int64 // tiles skipped by Validate
	ComputeErrors      int64 // tiles that failed in Calculate or shape check

	Warning string
	Err     error // serialization failure, nil otherwise
}

// RunResult describes a completed run. Artifacts maps metric name to the
// artifact path for every metric that serialized successfully.
type RunResult struct {
	RunID      string
	TileHeight int
	TileWidth  int
	Tiles      int
	Started    time.Time
	Finished   time.Time
	Outcomes   []MetricOutcome
	Artifacts  map[string]string
}

// Processor binds a source, a metric registry, and run options.
type Processor struct {
	src  source.Source
	reg  *metrics.Registry
	opts Options
}

// New builds a Processor, filling in option defaults. Negative options are
// left as-is and rejected by Run.
func New(src source.Source, reg *metrics.Registry, opts Options) *Processor {
	if opts.TileHeight == 0 {
		opts.TileHeight = DefaultTileHeight
	}
	if opts.TileWidth == 0 {
		opts.TileWidth = DefaultTileWidth
	}
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	return &Processor{src: src, reg: reg, opts: opts}
}

// Run executes the requested metrics over the full source extent. It returns
// a *ConfigurationError, before reading any data, if the request list or the
// options cannot produce a valid run.
func (p *Processor) Run(ctx context.Context, requests []config.MetricRequest) (*RunResult, error) {
	started := time.Now()

	var active []config.MetricRequest
	for _, r := range requests {
		if r.IsEnabled() {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil, &ConfigurationError{Reason: "no metrics enabled"}
	}
	if p.opts.TileHeight <= 0 || p.opts.TileWidth <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("tile size %dx%d must be positive", p.opts.TileHeight, p.opts.TileWidth)}
	}
	if p.opts.Workers <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("worker count %d must be positive", p.opts.Workers)}
	}

	height, width := p.src.Height(), p.src.Width()

	// Resolve every metric up front so a bad request cannot leave a
	// half-finished run behind.
	run := make([]*runMetric, 0, len(active))
	seen := make(map[string]struct{}, len(active))
	for _, req := range active {
		alg, err := p.reg.Get(req.Name, metrics.Params(req.Parameters))
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("metric %q", req.Name), Err: err}
		}
		outName := req.OutputName
		if outName == "" {
			outName = req.Name
		}
		if _, dup := seen[outName]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate output name %q", outName)}
		}
		seen[outName] = struct{}{}

		m := &runMetric{
			name:       req.Name,
			outputName: outName,
			alg:        alg,
			buf:        sparse.ZerosDense(height, width),
			format:     encode.Raster,
		}
		if req.OutputFormat != "" {
			f, ok := encode.ParseFormat(req.OutputFormat)
			if !ok {
				m.formatWarning = fmt.Sprintf("unknown output format %q, writing raster instead", req.OutputFormat)
				monitoring.Warnf("metric %s: %s", req.Name, m.formatWarning)
			}
			m.format = f
		}
		run = append(run, m)
	}

	it, err := NewTileIterator(height, width, p.opts.TileHeight, p.opts.TileWidth)
	if err != nil {
		return nil, &ConfigurationError{Reason: "tiling", Err: err}
	}

	exec := &chunkExecutor{
		src:     p.src,
		codes:   p.src.SpeciesCodes(),
		bands:   p.src.Bands(),
		metrics: run,
	}
	if err := p.runTiles(ctx, it, exec); err != nil {
		return nil, err
	}

	ser := &encode.Serializer{Dir: p.opts.OutputDir}
	meta := encode.SpatialMeta{
		CRS:       p.src.CRS(),
		Transform: p.src.Transform(),
		Height:    height,
		Width:     width,
	}
	res := &RunResult{
		RunID:      uuid.NewString(),
		TileHeight: p.opts.TileHeight,
		TileWidth:  p.opts.TileWidth,
		Tiles:      it.Count(),
		Started:    started,
		Artifacts:  make(map[string]string),
	}
	for _, m := range run {
		out := MetricOutcome{
			Name:               m.name,
			OutputName:         m.outputName,
			Format:             m.format,
			ValidationFailures: m.validationFailures.Load(),
			ComputeErrors:      m.computeErrors.Load(),
			Warning:            m.formatWarning,
		}
		v := encode.Variable{
			Name:        m.outputName,
			DType:       m.alg.OutputDType(),
			Units:       m.alg.Units(),
			Description: m.alg.Description(),
		}
		path, fellBack, serr := ser.Serialize(v, m.buf, meta, m.format)
		if serr != nil {
			out.Err = serr
			monitoring.Logf("metric %s: %v", m.name, serr)
		} else {
			out.Serialized = true
			out.ArtifactPath = path
			if fellBack {
				out.Format = encode.Raster
				fb := fmt.Sprintf("%s serialization failed, wrote raster instead", m.format)
				if out.Warning != "" {
					out.Warning += "; " + fb
				} else {
					out.Warning = fb
				}
			}
			res.Artifacts[m.name] = path
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	res.Finished = time.Now()

	monitoring.Logf("run %s: %d metrics over %d tiles in %s", res.RunID, len(run), res.Tiles,
		res.Finished.Sub(res.Started).Round(time.Millisecond))
	return res, nil
}

// runTiles drives the executor over every tile, sequentially or with a
// worker pool. Tiles write disjoint buffer regions, so workers only need the
// channel for coordination.
func (p *Processor) runTiles(ctx context.Context, it *TileIterator, exec *chunkExecutor) error {
	if p.opts.Workers == 1 {
		for {
			t, ok := it.Next()
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := exec.processTile(t); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	tiles := make(chan Tile)
	g.Go(func() error {
		defer close(tiles)
		for {
			t, ok := it.Next()
			if !ok {
				return nil
			}
			select {
			case tiles <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			for t := range tiles {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := exec.processTile(t); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
