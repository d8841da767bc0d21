package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/roach88/apiparity/internal/ir"
)

// Document is the machine-readable report.
type Document struct {
	Summary ir.Summary `json:"summary" jsonschema:"description=Counts over every suite in the document"`
	Suites  []Suite    `json:"suites"`
	Results []Result   `json:"results"`
}

// Suite describes one suite run.
type Suite struct {
	RunID      string     `json:"run_id"`
	Suite      ir.Suite   `json:"suite" jsonschema:"enum=behavioral,enum=openapi"`
	BaseURL    string     `json:"base_url"`
	Source     string     `json:"source,omitempty" jsonschema:"description=Description document of the openapi suite"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Summary    ir.Summary `json:"summary"`
	Verdict    string     `json:"verdict" jsonschema:"enum=pass,enum=fail"`
}

// Result is one case outcome.
type Result struct {
	Suite      ir.Suite       `json:"suite" jsonschema:"enum=behavioral,enum=openapi"`
	Category   string         `json:"category"`
	Case       string         `json:"case"`
	Label      string         `json:"label,omitempty"`
	Outcome    ir.Status      `json:"outcome" jsonschema:"enum=pass,enum=fail,enum=error,enum=skip"`
	Kind       ir.Kind        `json:"kind,omitempty" jsonschema:"enum=transport,enum=validation,enum=assertion,enum=spec_mismatch,enum=aborted"`
	Message    string         `json:"message"`
	Violations []ir.Violation `json:"violations,omitempty"`
}

// Verdict returns "pass" when nothing failed or errored, else "fail".
func Verdict(s ir.Summary) string {
	if s.OK() {
		return "pass"
	}
	return "fail"
}

// Build assembles a Document from finalized reports, in the given order.
func Build(reports ...*ir.SuiteReport) Document {
	doc := Document{Suites: []Suite{}, Results: []Result{}}
	for _, r := range reports {
		if r == nil {
			continue
		}
		doc.Summary = doc.Summary.Add(r.Summary)
		doc.Suites = append(doc.Suites, Suite{
			RunID:      r.RunID,
			Suite:      r.Suite,
			BaseURL:    r.BaseURL,
			Source:     r.Source,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Summary:    r.Summary,
			Verdict:    Verdict(r.Summary),
		})
		for _, o := range r.Outcomes {
			doc.Results = append(doc.Results, Result{
				Suite:      o.Suite,
				Category:   o.Category,
				Case:       o.CaseID,
				Label:      o.Label,
				Outcome:    o.Status,
				Kind:       o.Kind,
				Message:    o.Message,
				Violations: o.Violations,
			})
		}
	}
	return doc
}

// WriteJSON writes the Document for reports as indented JSON.
func WriteJSON(w io.Writer, reports ...*ir.SuiteReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Build(reports...)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ReadJSON decodes a Document written by WriteJSON.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode report: %w", err)
	}
	return doc, nil
}
