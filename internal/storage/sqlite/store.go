// Package sqlite persists ABCD runs and their per-trial results in SQLite.
//
// Estimates are stored as text so that NaN and ±Inf survive the round trip;
// SQLite would otherwise coerce a NaN REAL into NULL.
package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/trials"
	"github.com/banshee-data/abcd.report/internal/uncertainty"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

const (
	busyRetries = 5
	busyBackoff = 20 * time.Millisecond
)

// Run is one persisted batch of trials with its summary.
type Run struct {
	RunID       string          `json:"run_id"`
	CreatedAt   int64           `json:"created_at"`
	ConfigJSON  json.RawMessage `json:"config_json,omitempty"`
	BaseSeed    uint64          `json:"base_seed"`
	TrialCount  int             `json:"trial_count"`
	Converged   int             `json:"converged"`
	Degenerate  int             `json:"degenerate"`
	MeanCalcA   float64         `json:"mean_calc_a"`
	StdDevCalcA float64         `json:"stddev_calc_a"`
	MeanPull    float64         `json:"mean_pull"`
	StdDevPull  float64         `json:"stddev_pull"`
	DurationMS  int64           `json:"duration_ms"`
}

// NewRun builds a Run record from a batch summary.
func NewRun(baseSeed uint64, config json.RawMessage, s trials.Summary, elapsed time.Duration) *Run {
	return &Run{
		ConfigJSON:  config,
		BaseSeed:    baseSeed,
		TrialCount:  s.Trials,
		Converged:   s.Converged,
		Degenerate:  s.Degenerate,
		MeanCalcA:   s.MeanCalcA,
		StdDevCalcA: s.StdDevCalcA,
		MeanPull:    s.MeanPull,
		StdDevPull:  s.StdDevPull,
		DurationMS:  elapsed.Milliseconds(),
	}
}

// Store provides persistence for runs and trial results.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies all migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := NewStore(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an already open database. Callers must run Migrate.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate runs all pending migrations up to the latest version.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m is not closed: closing it would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// InsertRun persists run. If RunID is empty, a UUID is generated; a zero
// CreatedAt is set to the current time.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO abcd_runs (
				run_id, created_at, config_json, base_seed, trial_count,
				converged, degenerate, mean_calc_a, stddev_calc_a,
				mean_pull, stddev_pull, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt, configStr, formatSeed(run.BaseSeed), run.TrialCount,
			run.Converged, run.Degenerate, nullable(run.MeanCalcA), nullable(run.StdDevCalcA),
			nullable(run.MeanPull), nullable(run.StdDevPull), run.DurationMS,
		)
		return err
	})
}

// InsertTrials persists results for runID in a single transaction.
func (s *Store) InsertTrials(runID string, results []abcd.Result) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO abcd_trials (
				run_id, trial, seed, count_a, count_b, count_c, count_d,
				calc_a, calc_a_error, events, converged
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range results {
			if _, err := stmt.Exec(
				runID, r.Trial, formatSeed(r.Seed),
				int64(r.A), int64(r.B), int64(r.C), int64(r.D),
				uncertainty.FormatFloat(r.CalcA.Value), uncertainty.FormatFloat(r.CalcA.Error),
				r.Events, r.Converged,
			); err != nil {
				return fmt.Errorf("insert trial %d: %w", r.Trial, err)
			}
		}
		return tx.Commit()
	})
}

// SaveRun inserts run and its trial results.
func (s *Store) SaveRun(run *Run, results []abcd.Result) error {
	if err := s.InsertRun(run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := s.InsertTrials(run.RunID, results); err != nil {
		return fmt.Errorf("insert trials for run %s: %w", run.RunID, err)
	}
	return nil
}

const runColumns = `run_id, created_at, config_json, base_seed, trial_count,
	converged, degenerate, mean_calc_a, stddev_calc_a, mean_pull, stddev_pull, duration_ms`

// GetRun returns a single run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM abcd_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return r, err
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM abcd_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListTrials returns the results of runID in trial order.
func (s *Store) ListTrials(runID string) ([]abcd.Result, error) {
	rows, err := s.db.Query(`
		SELECT trial, seed, count_a, count_b, count_c, count_d,
		       calc_a, calc_a_error, events, converged
		FROM abcd_trials
		WHERE run_id = ?
		ORDER BY trial`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var results []abcd.Result
	for rows.Next() {
		var (
			r             abcd.Result
			seed          string
			a, b, c, d    int64
			value, errStr string
		)
		if err := rows.Scan(&r.Trial, &seed, &a, &b, &c, &d, &value, &errStr, &r.Events, &r.Converged); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		r.A, r.B, r.C, r.D = float64(a), float64(b), float64(c), float64(d)
		if r.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("trial %d: parse seed: %w", r.Trial, err)
		}
		if r.CalcA.Value, err = strconv.ParseFloat(value, 64); err != nil {
			return nil, fmt.Errorf("trial %d: parse calc_a: %w", r.Trial, err)
		}
		if r.CalcA.Error, err = strconv.ParseFloat(errStr, 64); err != nil {
			return nil, fmt.Errorf("trial %d: parse calc_a_error: %w", r.Trial, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its trials.
func (s *Store) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM abcd_runs WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                         Run
		configStr                 sql.NullString
		seed                      string
		meanA, sdA, meanP, sdPull sql.NullFloat64
	)
	err := row.Scan(
		&r.RunID, &r.CreatedAt, &configStr, &seed, &r.TrialCount,
		&r.Converged, &r.Degenerate, &meanA, &sdA, &meanP, &sdPull, &r.DurationMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	if r.BaseSeed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s: parse seed: %w", r.RunID, err)
	}
	r.MeanCalcA = fromNullable(meanA)
	r.StdDevCalcA = fromNullable(sdA)
	r.MeanPull = fromNullable(meanP)
	r.StdDevPull = fromNullable(sdPull)
	return &r, nil
}

// formatSeed stores seeds as decimal text; SQLite integers are signed 64-bit.
func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func nullable(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f) && !math.IsInf(f, 0)}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// retryOnBusy runs fn, retrying with linear backoff while SQLite reports
// the database as busy or locked.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * busyBackoff)
	}
	return err
}

func isBusy(err error) bool {
	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
