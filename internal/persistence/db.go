// Package persistence provides SQLite-based run history: one row per
// process run and one row per tick. Readings themselves are never stored.
package persistence

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/wildsim/internal/engine"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn  *sqlx.DB
	runID string
}

// Run describes a run at start.
type Run struct {
	Seed     int64
	Agents   int
	Interval time.Duration
	Endpoint string
	Started  time.Time
}

// RunRecord is a row of the runs table.
type RunRecord struct {
	ID         string         `db:"id"`
	Seed       int64          `db:"seed"`
	Agents     int            `db:"agents"`
	IntervalMS int64          `db:"interval_ms"`
	Endpoint   string         `db:"endpoint"`
	StartedAt  int64          `db:"started_at"`
	FinishedAt sql.NullInt64  `db:"finished_at"`
	Ticks      int64          `db:"ticks"`
	Sent       int64          `db:"sent"`
	Failed     int64          `db:"failed"`
	StopReason sql.NullString `db:"stop_reason"`
}

// Started returns the start time.
func (r RunRecord) Started() time.Time {
	return time.UnixMilli(r.StartedAt).UTC()
}

// TickRecord is a row of the tick_stats table.
type TickRecord struct {
	Tick     int64 `db:"tick"`
	At       int64 `db:"at"`
	Sent     int   `db:"sent"`
	Failed   int   `db:"failed"`
	Aborted  int   `db:"aborted"`
	Attempts int   `db:"attempts"`
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
		agents INTEGER NOT NULL,
		interval_ms INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		ticks INTEGER NOT NULL DEFAULT 0,
		sent INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		at INTEGER NOT NULL,
		sent INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		aborted INTEGER NOT NULL,
		attempts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tick_stats_run ON tick_stats(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun inserts a runs row and makes it the target of RecordTick.
func (db *DB) StartRun(r Run) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, seed, agents, interval_ms, endpoint, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.Seed, r.Agents, r.Interval.Milliseconds(), r.Endpoint, r.Started.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	db.runID = id
	slog.Info("run recorded", "run", id)
	return id, nil
}

// RunID returns the current run, empty before StartRun.
func (db *DB) RunID() string {
	return db.runID
}

// RecordTick appends one tick's statistics to the current run.
func (db *DB) RecordTick(rep engine.TickReport) error {
	if db.runID == "" {
		return fmt.Errorf("record tick %d: no run started", rep.Tick)
	}
	_, err := db.conn.Exec(
		`INSERT INTO tick_stats (run_id, tick, at, sent, failed, aborted, attempts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		db.runID, rep.Tick, rep.At.UnixMilli(), rep.Sent, rep.Failed, rep.Aborted, rep.Attempts,
	)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", rep.Tick, err)
	}
	return nil
}

// FinishRun stores the final totals for the current run.
func (db *DB) FinishRun(sum engine.Summary, reason string, at time.Time) error {
	if db.runID == "" {
		return nil
	}
	_, err := db.conn.Exec(
		`UPDATE runs SET finished_at = ?, ticks = ?, sent = ?, failed = ?, stop_reason = ?
		 WHERE id = ?`,
		at.UnixMilli(), sum.Ticks, sum.Sent, sum.Failed, reason, db.runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		`SELECT id, seed, agents, interval_ms, endpoint, started_at, finished_at,
		        ticks, sent, failed, stop_reason
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return runs, err
}

// Ticks returns the tick rows of a run in order.
func (db *DB) Ticks(runID string) ([]TickRecord, error) {
	var ticks []TickRecord
	err := db.conn.Select(&ticks,
		"SELECT tick, at, sent, failed, aborted, attempts FROM tick_stats WHERE run_id = ? ORDER BY tick",
		runID,
	)
	return ticks, err
}
