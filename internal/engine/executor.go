package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/ctessum/sparse"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/encode"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/metrics"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/monitoring"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/source"
)

// runMetric is one resolved metric's state for the duration of a run: the
// algorithm instance, its full-extent accumulation buffer, and counters for
// tiles that validated or computed unsuccessfully. Counters are atomic so
// worker goroutines can bump them without coordination; each buffer region
// is written by at most one tile, so the buffers need no locking.
type runMetric struct {
	name          string
	outputName    string
	format        encode.Format
	formatWarning string
	alg           metrics.Algorithm
	buf           *sparse.DenseArray

	validationFailures atomic.Int64
	computeErrors      atomic.Int64
}

// chunkExecutor computes every resolved metric over one tile at a time. The
// band stack is read once per tile and shared across metrics. A metric that
// fails validation or computation on a tile leaves that region of its buffer
// zero-filled; the run continues.
type chunkExecutor struct {
	src     source.Source
	codes   []string
	bands   int
	metrics []*runMetric
}

func (e *chunkExecutor) processTile(tile Tile) error {
	data, err := e.src.Slice(0, e.bands, tile.Y0, tile.Y1, tile.X0, tile.X1)
	if err != nil {
		return fmt.Errorf("read tile %s: %w", tile, err)
	}
	td := &metrics.TileData{Codes: e.codes, Data: data}

	for _, m := range e.metrics {
		if !m.alg.Validate(td) {
			m.validationFailures.Add(1)
			continue
		}
		grid, err := m.alg.Calculate(m.alg.Preprocess(td))
		if err != nil {
			m.computeErrors.Add(1)
			monitoring.Logf("metric %s: tile %s: %v", m.name, tile, err)
			continue
		}
		grid = m.alg.Postprocess(grid)
		if len(grid.Shape) != 2 || grid.Shape[0] != tile.Height() || grid.Shape[1] != tile.Width() {
			m.computeErrors.Add(1)
			monitoring.Logf("metric %s: tile %s: result shape %v does not match tile %dx%d",
				m.name, tile, grid.Shape, tile.Height(), tile.Width())
			continue
		}
		copyRegion(m.buf, grid, tile.Y0, tile.X0)
	}
	return nil
}

// copyRegion writes a tile-sized grid into the full-extent buffer at the
// tile's origin, one row run at a time.
func copyRegion(dst, src *sparse.DenseArray, y0, x0 int) {
	th, tw := src.Shape[0], src.Shape[1]
	w := dst.Shape[1]
	for y := 0; y < th; y++ {
		off := (y0+y)*w + x0
		copy(dst.Elements[off:off+tw], src.Elements[y*tw:(y+1)*tw])
	}
}
