// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of completed runs and their
// per-account outcomes.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// ErrRunNotFound is returned by Run for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const (
	// defaultLimit bounds list queries that pass no limit.
	defaultLimit = 20

	// timeLayout is fixed width so recorded_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is the run ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			simulate INTEGER NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT,
			cik TEXT,
			status TEXT NOT NULL,
			stage TEXT,
			error_kind TEXT,
			error TEXT,
			artifacts TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_cik ON results(cik)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a terminal run summary. Recording the same run id again
// replaces the earlier entry.
func (s *Store) Record(ctx context.Context, summary types.RunSummary) error {
	if summary.RunID == "" {
		return errors.New("run id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, summary.RunID); err != nil {
		return fmt.Errorf("clearing previous run: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, date, simulate, total, succeeded, failed, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Date, summary.Simulate,
		summary.Total, summary.Succeeded, summary.Failed,
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, position, name, cik, status, stage, error_kind, error, artifacts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range summary.Results {
		artifactsJSON, err := json.Marshal(r.Artifacts)
		if err != nil {
			return fmt.Errorf("encoding artifacts: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			summary.RunID, i, r.Account.Name, r.Account.CIK,
			string(r.Status), string(r.Stage), string(r.ErrorKind), r.Error,
			string(artifactsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting result %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// RunRecord is one row of the run history.
type RunRecord struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Date       string    `json:"date" yaml:"date"`
	Simulate   bool      `json:"simulate" yaml:"simulate"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Runs lists recorded runs, newest first. A non-empty date restricts the
// list to runs for that logical date.
func (s *Store) Runs(ctx context.Context, date string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT id, date, simulate, total, succeeded, failed, recorded_at FROM runs`
	var args []any
	if date != "" {
		query += ` WHERE date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY recorded_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			recorded string
		)
		if err := rows.Scan(&rec.RunID, &rec.Date, &rec.Simulate, &rec.Total, &rec.Succeeded, &rec.Failed, &recorded); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.RecordedAt, _ = time.Parse(timeLayout, recorded)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Run reloads a recorded summary with its results in input order.
func (s *Store) Run(ctx context.Context, id string) (types.RunSummary, error) {
	var summary types.RunSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, date, simulate, total, succeeded, failed FROM runs WHERE id = ?`, id,
	).Scan(&summary.RunID, &summary.Date, &summary.Simulate, &summary.Total, &summary.Succeeded, &summary.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunSummary{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("querying run: %w", err)
	}

	results, err := s.queryResults(ctx,
		`SELECT name, cik, status, stage, error_kind, error, artifacts
		 FROM results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return types.RunSummary{}, err
	}
	summary.Results = results
	summary.Failures = []types.Failure{}
	for _, r := range results {
		if r.Status != types.StatusSucceeded {
			summary.Failures = append(summary.Failures, types.Failure{Account: r.Account, Kind: r.ErrorKind})
		}
	}
	return summary, nil
}

// AccountOutcome is one account's result within a recorded run.
type AccountOutcome struct {
	RunID  string          `json:"run_id" yaml:"run_id"`
	Date   string          `json:"date" yaml:"date"`
	Result types.RunResult `json:"result" yaml:"result"`
}

// AccountHistory lists the outcomes recorded for a CIK, newest run first.
func (s *Store) AccountHistory(ctx context.Context, cik string, limit int) ([]AccountOutcome, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, u.date, r.name, r.cik, r.status, r.stage, r.error_kind, r.error, r.artifacts
		 FROM results r JOIN runs u ON u.id = r.run_id
		 WHERE r.cik = ?
		 ORDER BY u.recorded_at DESC, r.run_id
		 LIMIT ?`, cik, limit)
	if err != nil {
		return nil, fmt.Errorf("querying account history: %w", err)
	}
	defer rows.Close()

	var out []AccountOutcome
	for rows.Next() {
		var o AccountOutcome
		if err := scanResult(rows, &o.Result, &o.RunID, &o.Date); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]types.RunResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.RunResult
	for rows.Next() {
		var r types.RunResult
		if err := scanResult(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanResult scans the optional leading columns into prefix, then the
// result columns (name, cik, status, stage, error_kind, error, artifacts).
func scanResult(rows *sql.Rows, r *types.RunResult, prefix ...any) error {
	var (
		status, stage, kind string
		name, cik, errText  sql.NullString
		artifacts           sql.NullString
	)
	dest := append(prefix, &name, &cik, &status, &stage, &kind, &errText, &artifacts)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scanning result: %w", err)
	}
	r.Account = types.Account{Name: name.String, CIK: cik.String}
	r.Status = types.Status(status)
	r.Stage = types.Stage(stage)
	r.ErrorKind = types.ErrorKind(kind)
	r.Error = errText.String
	if artifacts.Valid && artifacts.String != "" {
		if err := json.Unmarshal([]byte(artifacts.String), &r.Artifacts); err != nil {
			return fmt.Errorf("decoding artifacts: %w", err)
		}
	}
	return nil
}
