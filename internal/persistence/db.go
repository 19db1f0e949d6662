// Package persistence records generation runs and their stage timings in
// SQLite. Historical timings supply the expected duration of each stage.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tradewinds/internal/config"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run is one completed generation run.
type Run struct {
	ID          string    `db:"id" json:"id"`
	Seed        int64     `db:"seed" json:"seed"`
	Width       float64   `db:"width" json:"width"`
	Height      float64   `db:"height" json:"height"`
	Tiles       int       `db:"tiles" json:"tiles"`
	Territories int       `db:"territories" json:"territories"`
	Harbors     int       `db:"harbors" json:"harbors"`
	Routes      int       `db:"routes" json:"routes"`
	ConfigJSON  string    `db:"config_json" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		width REAL NOT NULL,
		height REAL NOT NULL,
		tiles INTEGER NOT NULL,
		territories INTEGER NOT NULL,
		harbors INTEGER NOT NULL,
		routes INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_timings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		seconds REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timings_stage ON stage_timings(stage);
	CREATE INDEX IF NOT EXISTS idx_timings_run ON stage_timings(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun stores a run and its per-stage durations in seconds.
func (db *DB) SaveRun(run Run, cfg config.Generation, times map[string]float64) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.ConfigJSON = string(cfgJSON)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO runs
		(id, seed, width, height, tiles, territories, harbors, routes, config_json, created_at)
		VALUES (:id, :seed, :width, :height, :tiles, :territories, :harbors, :routes, :config_json, :created_at)`,
		run)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Preparex("INSERT INTO stage_timings (run_id, stage, seconds) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for stage, secs := range times {
		if _, err := stmt.Exec(run.ID, stage, secs); err != nil {
			return fmt.Errorf("insert timing %s: %w", stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("run saved", "run", run.ID, "stages", len(times))
	return nil
}

// ExpectedDurations returns the mean recorded duration of every stage.
func (db *DB) ExpectedDurations() (map[string]time.Duration, error) {
	var rows []struct {
		Stage   string  `db:"stage"`
		Seconds float64 `db:"seconds"`
	}
	err := db.conn.Select(&rows, "SELECT stage, AVG(seconds) AS seconds FROM stage_timings GROUP BY stage")
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Duration, len(rows))
	for _, r := range rows {
		out[r.Stage] = time.Duration(r.Seconds * float64(time.Second))
	}
	return out, nil
}

// RunTimings returns the recorded stage durations of one run, in seconds.
func (db *DB) RunTimings(runID string) (map[string]float64, error) {
	var rows []struct {
		Stage   string  `db:"stage"`
		Seconds float64 `db:"seconds"`
	}
	err := db.conn.Select(&rows, "SELECT stage, seconds FROM stage_timings WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Stage] = r.Seconds
	}
	return out, nil
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		`SELECT id, seed, width, height, tiles, territories, harbors, routes, config_json, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return runs, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
