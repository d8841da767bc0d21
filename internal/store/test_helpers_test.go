package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/apiparity/internal/ir"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport builds a finalized behavioral report from outcomes.
func createTestReport(runID string, outcomes ...ir.Outcome) *ir.SuiteReport {
	r := ir.NewSuiteReport(runID, ir.SuiteBehavioral, "http://api.test", "", testEpoch)
	r.Add(outcomes...)
	r.Finalize(testEpoch.Add(2 * time.Second))
	return r
}

func pass(category, caseID string, seq int) ir.Outcome {
	return ir.Pass("HTTP 200").For(ir.SuiteBehavioral, category, caseID, "", seq)
}

func fail(category, caseID string, seq int) ir.Outcome {
	return ir.Fail(ir.KindAssertion, "expected HTTP 200, got HTTP 500",
		ir.Violation{Path: "documents[0].id", Message: "empty"}).
		For(ir.SuiteBehavioral, category, caseID, "", seq)
}
