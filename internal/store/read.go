package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/apiparity/internal/ir"
)

// Run is the stored header of one suite run.
type Run struct {
	RunID       string     `json:"run_id"`
	Suite       ir.Suite   `json:"suite"`
	BaseURL     string     `json:"base_url"`
	Source      string     `json:"source,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Summary     ir.Summary `json:"summary"`
	Fingerprint string     `json:"fingerprint"`
	ToolVersion string     `json:"tool_version"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Suite   ir.Suite
	BaseURL string
	Limit   int
}

const runColumns = `run_id, suite, base_url, source, started_at, finished_at,
		passed, failed, errored, skipped, fingerprint, tool_version`

// ListRuns returns stored runs, newest first.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var where []string
	var args []any
	if f.Suite != "" {
		where = append(where, "suite = ?")
		args = append(args, string(f.Suite))
	}
	if f.BaseURL != "" {
		where = append(where, "base_url = ?")
		args = append(args, f.BaseURL)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FindRun resolves a run ID or a unique prefix of one.
func (s *Store) FindRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("find run: %w", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ? OR substr(run_id, 1, length(?)) = ?
		ORDER BY run_id = ? DESC, seq DESC
		LIMIT 2
	`, id, id, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("find run %s: %w", id, err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}

	switch {
	case len(matches) == 0:
		return Run{}, fmt.Errorf("find run %s: %w", id, ErrRunNotFound)
	case matches[0].RunID == id:
		return matches[0], nil
	case len(matches) > 1:
		return Run{}, fmt.Errorf("find run %s: %w", id, ErrAmbiguousRun)
	}
	return matches[0], nil
}

// ReadReport rebuilds the finalized SuiteReport of a stored run. The ID may
// be a unique prefix.
func (s *Store) ReadReport(ctx context.Context, id string) (*ir.SuiteReport, error) {
	run, err := s.FindRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, seq, suite, category, label, status, kind, message, violations, elapsed_ns
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC, case_id COLLATE BINARY ASC
	`, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	r := ir.NewSuiteReport(run.RunID, run.Suite, run.BaseURL, run.Source, run.StartedAt)
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		r.Add(o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	r.Finalize(run.FinishedAt)
	return r, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                 Run
		suite               string
		startedAt, finished string
	)
	err := row.Scan(
		&run.RunID,
		&suite,
		&run.BaseURL,
		&run.Source,
		&startedAt,
		&finished,
		&run.Summary.Passed,
		&run.Summary.Failed,
		&run.Summary.Errored,
		&run.Summary.Skipped,
		&run.Fingerprint,
		&run.ToolVersion,
	)
	if err == sql.ErrNoRows {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Suite = ir.Suite(suite)
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.RunID, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.RunID, err)
	}
	return run, nil
}

func scanOutcome(row scanner) (ir.Outcome, error) {
	var (
		o                           ir.Outcome
		suite, status, kind, violations string
		elapsed                     int64
	)
	err := row.Scan(
		&o.CaseID,
		&o.Seq,
		&suite,
		&o.Category,
		&o.Label,
		&status,
		&kind,
		&o.Message,
		&violations,
		&elapsed,
	)
	if err != nil {
		return ir.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	o.Suite = ir.Suite(suite)
	o.Status = ir.Status(status)
	o.Kind = ir.Kind(kind)
	o.Elapsed = time.Duration(elapsed)
	if o.Violations, err = unmarshalViolations(violations); err != nil {
		return ir.Outcome{}, fmt.Errorf("scan outcome %s: %w", o.CaseID, err)
	}
	return o, nil
}
