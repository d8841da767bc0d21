package ir

import (
	"slices"
	"strings"
	"time"
)

// Summary holds outcome counts for a SuiteReport.
type Summary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// Total returns the number of outcomes counted.
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Errored + s.Skipped
}

// OK reports whether nothing failed or errored.
func (s Summary) OK() bool {
	return s.Failed+s.Errored == 0
}

// Add merges another summary into s.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Passed:  s.Passed + other.Passed,
		Failed:  s.Failed + other.Failed,
		Errored: s.Errored + other.Errored,
		Skipped: s.Skipped + other.Skipped,
	}
}

// SuiteReport is the terminal artifact of a run: the ordered outcomes of one
// suite against one base URL, plus summary counts.
//
// A report accumulates outcomes during the run and is frozen by Finalize.
// Adding to a finalized report panics; the report is write-once.
type SuiteReport struct {
	RunID      string    `json:"run_id"`
	Suite      Suite     `json:"suite"`
	BaseURL    string    `json:"base_url"`
	Source     string    `json:"source,omitempty"` // description document, openapi suite only
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"results"`
	Summary    Summary   `json:"summary"`

	finalized bool
}

// NewSuiteReport creates an empty, open report.
func NewSuiteReport(runID string, suite Suite, baseURL, source string, startedAt time.Time) *SuiteReport {
	return &SuiteReport{
		RunID:     runID,
		Suite:     suite,
		BaseURL:   baseURL,
		Source:    source,
		StartedAt: startedAt,
		Outcomes:  []Outcome{},
	}
}

// Add appends outcomes. Not safe for concurrent use; the orchestrator
// serializes calls.
func (r *SuiteReport) Add(outcomes ...Outcome) {
	if r.finalized {
		panic("ir: Add on finalized SuiteReport")
	}
	r.Outcomes = append(r.Outcomes, outcomes...)
}

// Finalize sorts outcomes into report order, computes the summary and
// freezes the report. Calling Finalize twice is a no-op.
func (r *SuiteReport) Finalize(finishedAt time.Time) {
	if r.finalized {
		return
	}
	SortOutcomes(r.Outcomes)
	r.Summary = Summarize(r.Outcomes)
	r.FinishedAt = finishedAt
	r.finalized = true
}

// Finalized reports whether Finalize has been called.
func (r *SuiteReport) Finalized() bool {
	return r.finalized
}

// Summarize counts outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusError:
			s.Errored++
		case StatusSkip:
			s.Skipped++
		}
	}
	return s
}

// categoryOrder is the reporting order of known categories. Behavioral
// categories come first, then the generation strategies of the openapi suite.
var categoryOrder = []string{
	"spec",
	"health",
	"basic",
	"parameters",
	"filtering",
	"errors",
	"consistency",
	"data_quality",
	"custom",
	"valid",
	"boundary",
	"invalid",
}

// CategoryRank returns the reporting rank of a category. Unknown categories
// sort after known ones.
func CategoryRank(category string) int {
	if i := slices.Index(categoryOrder, category); i >= 0 {
		return i
	}
	return len(categoryOrder)
}

// SortOutcomes orders outcomes by suite, category rank, category name, seq
// and case ID. The sort is stable so equal keys keep insertion order.
func SortOutcomes(outcomes []Outcome) {
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		if c := strings.Compare(string(a.Suite), string(b.Suite)); c != 0 {
			return c
		}
		if c := CategoryRank(a.Category) - CategoryRank(b.Category); c != 0 {
			return c
		}
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		if c := a.Seq - b.Seq; c != 0 {
			return c
		}
		return strings.Compare(a.CaseID, b.CaseID)
	})
}
