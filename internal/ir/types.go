package ir

import (
	"fmt"
	"time"
)

// Suite identifies which verification layer produced an outcome.
type Suite string

const (
	// SuiteBehavioral is the runtime-invariant layer.
	SuiteBehavioral Suite = "behavioral"

	// SuiteOpenAPI is the description-document-driven layer.
	SuiteOpenAPI Suite = "openapi"
)

// Status is the pass/fail/error/skip tag of an outcome.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
	StatusSkip  Status = "skip"
)

// Kind classifies why an outcome is not a pass.
//
// Failures are behavioral or structural bugs in the implementation under test.
// Errors mean the verdict could not be reached (network, drift between the
// description document and the implementation, run abort).
type Kind string

const (
	KindNone         Kind = ""
	KindTransport    Kind = "transport"
	KindValidation   Kind = "validation"
	KindAssertion    Kind = "assertion"
	KindSpecMismatch Kind = "spec_mismatch"
	KindAborted      Kind = "aborted"
)

// Violation is a single addressable schema or invariant violation.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String renders the violation as "path: message".
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Outcome is the verdict for one case.
type Outcome struct {
	// Seq is the generation order of the case; used for stable report ordering.
	Seq int `json:"seq"`

	Suite    Suite  `json:"suite"`
	Category string `json:"category"`

	// CaseID is the deterministic identity of the case.
	CaseID string `json:"case"`
	Label  string `json:"label,omitempty"`

	Status     Status        `json:"outcome"`
	Kind       Kind          `json:"kind,omitempty"`
	Message    string        `json:"message,omitempty"`
	Violations []Violation   `json:"violations,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns,omitempty"`
}

// Pass builds a passing outcome.
func Pass(message string) Outcome {
	return Outcome{Status: StatusPass, Message: message}
}

// Fail builds a failing outcome of the given kind.
func Fail(kind Kind, message string, violations ...Violation) Outcome {
	return Outcome{Status: StatusFail, Kind: kind, Message: message, Violations: violations}
}

// Failf is Fail with fmt formatting.
func Failf(kind Kind, format string, args ...any) Outcome {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// Errored builds an errored outcome of the given kind.
func Errored(kind Kind, message string) Outcome {
	return Outcome{Status: StatusError, Kind: kind, Message: message}
}

// Skipped builds a skipped outcome.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkip, Message: reason}
}

// Passed reports whether the outcome is a pass.
func (o Outcome) Passed() bool {
	return o.Status == StatusPass
}

// For copies case identity onto the outcome.
func (o Outcome) For(suite Suite, category, caseID, label string, seq int) Outcome {
	o.Suite = suite
	o.Category = category
	o.CaseID = caseID
	o.Label = label
	o.Seq = seq
	return o
}
