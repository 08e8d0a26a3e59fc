// Package runlog persists run history to a local sqlite database: one row
// per run plus one row per metric outcome, so past artifacts stay traceable
// to the configuration that produced them.
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mihiarc/bigmap-zarr-sub000/internal/engine"
)

type Store struct {
	*sql.DB
}

// Open opens (or creates) the run log database and applies the connection
// pragmas. Call Migrate before recording anything.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Apply essential PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	return &Store{db}, nil
}

// RecordRun writes one run and all of its metric outcomes in a single
// transaction.
func (s *Store) RecordRun(sourcePath string, res *engine.RunResult) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, source_path, tile_height, tile_width, tiles, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, sourcePath, res.TileHeight, res.TileWidth, res.Tiles,
		res.Started.UTC().Format(time.RFC3339Nano), res.Finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	for _, o := range res.Outcomes {
		var errText string
		if o.Err != nil {
			errText = o.Err.Error()
		}
		_, err = tx.Exec(`
			INSERT INTO run_metrics (run_id, name, output_name, format, artifact_path,
				serialized, validation_failures, compute_errors, warning, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, o.Name, o.OutputName, o.Format.String(), o.ArtifactPath,
			o.Serialized, o.ValidationFailures, o.ComputeErrors, o.Warning, errText,
		)
		if err != nil {
			return fmt.Errorf("insert metric %s for run %s: %w", o.Name, res.RunID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of run history.
type RunSummary struct {
	RunID      string
	SourcePath string
	TileHeight int
	TileWidth  int
	Tiles      int
	Started    time.Time
	Finished   time.Time
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Query(`
		SELECT run_id, source_path, tile_height, tile_width, tiles, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.SourcePath, &r.TileHeight, &r.TileWidth, &r.Tiles, &started, &finished); err != nil {
			return nil, err
		}
		if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", r.RunID, started, err)
		}
		if r.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at %q: %w", r.RunID, finished, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MetricRecord is one metric outcome row.
type MetricRecord struct {
	Name               string
	OutputName         string
	Format             string
	ArtifactPath       string
	Serialized         bool
	ValidationFailures int64
	ComputeErrors      int64
	Warning            string
	Error              string
}

// RunMetrics returns the metric outcomes recorded for one run.
func (s *Store) RunMetrics(runID string) ([]MetricRecord, error) {
	rows, err := s.Query(`
		SELECT name, output_name, format, artifact_path, serialized,
			validation_failures, compute_errors, warning, error
		FROM run_metrics WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricRecord
	for rows.Next() {
		var m MetricRecord
		if err := rows.Scan(&m.Name, &m.OutputName, &m.Format, &m.ArtifactPath, &m.Serialized,
			&m.ValidationFailures, &m.ComputeErrors, &m.Warning, &m.Error); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
