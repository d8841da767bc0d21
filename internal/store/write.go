package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/apiparity/internal/ir"
)

// WriteReport stores a finalized report and its outcomes in one
// transaction. Writing a run ID that is already stored is a no-op.
func (s *Store) WriteReport(ctx context.Context, r *ir.SuiteReport) error {
	if r == nil {
		return errors.New("write report: nil report")
	}
	if !r.Finalized() {
		return fmt.Errorf("write report %s: report is not finalized", r.RunID)
	}

	fingerprint, err := ir.OutcomesFingerprint(r.Outcomes)
	if err != nil {
		return fmt.Errorf("write report %s: %w", r.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report %s: begin: %w", r.RunID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, suite, base_url, source, started_at, finished_at,
		 passed, failed, errored, skipped, fingerprint, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		r.RunID,
		string(r.Suite),
		r.BaseURL,
		r.Source,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Summary.Passed,
		r.Summary.Failed,
		r.Summary.Errored,
		r.Summary.Skipped,
		fingerprint,
		ir.ToolVersion,
	)
	if err != nil {
		return fmt.Errorf("write report %s: %w", r.RunID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("write report %s: %w", r.RunID, err)
	} else if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes
		(run_id, case_id, seq, suite, category, label, status, kind, message, violations, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write report %s: prepare: %w", r.RunID, err)
	}
	defer stmt.Close()

	for _, o := range r.Outcomes {
		violations, err := marshalViolations(o.Violations)
		if err != nil {
			return fmt.Errorf("write outcome %s: %w", o.CaseID, err)
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID,
			o.CaseID,
			o.Seq,
			string(o.Suite),
			o.Category,
			o.Label,
			string(o.Status),
			string(o.Kind),
			o.Message,
			violations,
			o.Elapsed.Nanoseconds(),
		)
		if err != nil {
			return fmt.Errorf("write outcome %s: %w", o.CaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report %s: commit: %w", r.RunID, err)
	}
	return nil
}
