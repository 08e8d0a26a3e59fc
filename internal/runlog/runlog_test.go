package runlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/encode"
	"github.com/mihiarc/bigmap-zarr-sub000/internal/engine"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func sampleResult(id string) *engine.RunResult {
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &engine.RunResult{
		RunID:      id,
		TileHeight: 512,
		TileWidth:  512,
		Tiles:      42,
		Started:    started,
		Finished:   started.Add(90 * time.Second),
		Outcomes: []engine.MetricOutcome{
			{
				Name: "total_biomass", OutputName: "total_biomass", Format: encode.Raster,
				ArtifactPath: "/out/total_biomass.tif", Serialized: true,
			},
			{
				Name: "shannon_diversity", OutputName: "shannon", Format: encode.ChunkedArray,
				ValidationFailures: 3, ComputeErrors: 1,
				Warning: "unknown output format \"hdf5\", writing raster instead",
				Err:     errors.New("disk full"),
			},
		},
		Artifacts: map[string]string{"total_biomass": "/out/total_biomass.tif"},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Migrate())

	v, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, v)
}

func TestRecordAndQueryRun(t *testing.T) {
	s := openStore(t)
	res := sampleResult("run-0001")
	require.NoError(t, s.RecordRun("/data/conus.zarr", res))

	runs, err := s.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "run-0001", r.RunID)
	assert.Equal(t, "/data/conus.zarr", r.SourcePath)
	assert.Equal(t, 42, r.Tiles)
	assert.True(t, r.Started.Equal(res.Started))
	assert.True(t, r.Finished.Equal(res.Finished))

	ms, err := s.RunMetrics("run-0001")
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, "total_biomass", ms[0].Name)
	assert.True(t, ms[0].Serialized)
	assert.Equal(t, "/out/total_biomass.tif", ms[0].ArtifactPath)

	m := ms[1]
	assert.Equal(t, "shannon", m.OutputName)
	assert.False(t, m.Serialized)
	assert.Equal(t, int64(3), m.ValidationFailures)
	assert.Equal(t, int64(1), m.ComputeErrors)
	assert.Equal(t, "disk full", m.Error)
	assert.NotEmpty(t, m.Warning)
}

func TestRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	older := sampleResult("run-old")
	newer := sampleResult("run-new")
	newer.Started = older.Started.Add(time.Hour)
	newer.Finished = newer.Started.Add(time.Minute)

	require.NoError(t, s.RecordRun("/data/a.zarr", older))
	require.NoError(t, s.RecordRun("/data/b.zarr", newer))

	runs, err := s.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-new", runs[0].RunID)
}

func TestDuplicateRunIDRejected(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.RecordRun("/data/a.zarr", sampleResult("run-dup")))
	assert.Error(t, s.RecordRun("/data/a.zarr", sampleResult("run-dup")))
}
