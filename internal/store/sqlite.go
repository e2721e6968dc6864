// Package store persists analysis runs and their critical spots to SQLite so
// the spots and serve commands can read results without re-running the
// analysis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urbancanopy/canopy-cli/internal/pipeline"
	"github.com/urbancanopy/canopy-cli/internal/spots"
)

// Run is one persisted analysis run.
type Run struct {
	ID        string            `json:"run_id"`
	Location  string            `json:"location"`
	Lat       float64           `json:"lat"`
	Lon       float64           `json:"lon"`
	Summary   *pipeline.Summary `json:"summary,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SQLiteStore persists runs using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	location   TEXT NOT NULL,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	summary    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS spots (
	run_id  TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	spot_id INTEGER NOT NULL,
	lat     REAL NOT NULL,
	lon     REAL NOT NULL,
	score   REAL NOT NULL,
	area_m2 REAL NOT NULL,
	area_px INTEGER NOT NULL,
	PRIMARY KEY (run_id, spot_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_location ON runs(location);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate applies the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists an analysis run and its spots in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, a *pipeline.Analysis, summary *pipeline.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "store: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, location, lat, lon, summary, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Location.Slug(), a.Location.Lat, a.Location.Lon, string(summaryJSON), a.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "store: insert run %s", a.RunID)
	}

	for _, sp := range a.Spots {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO spots (run_id, spot_id, lat, lon, score, area_m2, area_px) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.RunID, sp.ID, sp.Lat, sp.Lon, sp.MeanScore, sp.AreaM2, sp.SizePx,
		)
		if err != nil {
			return eris.Wrapf(err, "store: insert spot %d for run %s", sp.ID, a.RunID)
		}
	}

	return eris.Wrap(tx.Commit(), "store: commit run")
}

// GetRun fetches one run by ID. Returns nil when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, location, lat, lon, summary, created_at FROM runs WHERE run_id = ?`,
		runID,
	)
	return scanRun(row)
}

// LatestRun fetches the most recent run for a location slug. Returns nil when
// the location has no runs.
func (s *SQLiteStore) LatestRun(ctx context.Context, location string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, location, lat, lon, summary, created_at FROM runs
		 WHERE location = ? ORDER BY created_at DESC LIMIT 1`,
		location,
	)
	return scanRun(row)
}

// ListRuns returns runs newest-first, optionally filtered by location slug.
// Summaries are omitted to keep listings light.
func (s *SQLiteStore) ListRuns(ctx context.Context, location string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT run_id, location, lat, lon, created_at FROM runs WHERE 1=1`
	var args []any
	if location != "" {
		query += ` AND location = ?`
		args = append(args, location)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Location, &r.Lat, &r.Lon, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run row")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "store: list runs iterate")
}

// SpotsForRun returns the persisted spots of a run in ranked order.
func (s *SQLiteStore) SpotsForRun(ctx context.Context, runID string) ([]spots.Spot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT spot_id, lat, lon, score, area_m2, area_px FROM spots
		 WHERE run_id = ? ORDER BY spot_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: spots for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []spots.Spot
	for rows.Next() {
		var sp spots.Spot
		if err := rows.Scan(&sp.ID, &sp.Lat, &sp.Lon, &sp.MeanScore, &sp.AreaM2, &sp.SizePx); err != nil {
			return nil, eris.Wrap(err, "store: scan spot row")
		}
		out = append(out, sp)
	}
	return out, eris.Wrap(rows.Err(), "store: spots iterate")
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	var summaryJSON string
	err := row.Scan(&r.ID, &r.Location, &r.Lat, &r.Lon, &summaryJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	r.Summary = &pipeline.Summary{}
	if err := json.Unmarshal([]byte(summaryJSON), r.Summary); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal summary")
	}
	return &r, nil
}
