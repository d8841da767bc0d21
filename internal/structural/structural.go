// Package structural checks live responses to generated cases against the
// description document: expected outcome class, declared response, media
// type and schema.
package structural

import (
	"fmt"
	"net/http"

	"github.com/roach88/apiparity/internal/cases"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/spec"
	"github.com/roach88/apiparity/internal/validator"
)

// Checker evaluates openapi cases. Safe for concurrent use.
type Checker struct {
	spec      *spec.InterfaceSpec
	validator *validator.Validator
}

// New creates a Checker for s.
func New(s *spec.InterfaceSpec) *Checker {
	return &Checker{spec: s, validator: validator.New()}
}

// Check evaluates r, the result of executing tc.
//
// Evaluation stops at the first problem, in this order: transport error,
// outcome class mismatch, undeclared status, undeclared media type,
// unparseable body, schema violations. XML bodies are checked for
// well-formedness only.
func (c *Checker) Check(tc cases.TestCase, r *probe.Result) ir.Outcome {
	if r == nil {
		return ir.Errored(ir.KindTransport, "no response captured")
	}
	if r.Err != nil {
		if r.Err.Canceled {
			return ir.Errored(ir.KindAborted, r.Err.Error())
		}
		return ir.Errored(ir.KindTransport, r.Err.Error())
	}

	op := c.operation(tc)
	if op == nil {
		return ir.Errored(ir.KindSpecMismatch, fmt.Sprintf("operation %s %s is not declared", tc.Method, tc.Path))
	}

	if tc.Expect != "" && !tc.Expect.Matches(r.Status) {
		return ir.Failf(ir.KindAssertion, "%s: expected %s, got HTTP %d", describe(tc), expectation(tc.Expect), r.Status)
	}

	resp := op.Response(r.Status)
	if resp == nil {
		return ir.Errored(ir.KindSpecMismatch,
			fmt.Sprintf("HTTP %d (%s) has no declared response for %s", r.Status, http.StatusText(r.Status), op.ID))
	}
	if !resp.HasContent() {
		return ir.Pass(fmt.Sprintf("HTTP %d, no body declared", r.Status))
	}

	mt := resp.MediaType(r.ContentType)
	if mt == nil {
		return ir.Errored(ir.KindSpecMismatch,
			fmt.Sprintf("Content-Type %q is not declared for HTTP %s of %s", r.ContentType, resp.Status, op.ID))
	}

	switch {
	case r.IsJSON():
		if r.ParseErr != nil {
			return ir.Failf(ir.KindValidation, "response body is not valid JSON: %v", r.ParseErr)
		}
		res := c.validator.Validate(r.JSON, mt.Schema)
		if !res.OK {
			return ir.Fail(ir.KindValidation,
				fmt.Sprintf("HTTP %d body violates %s (%d violation(s))", r.Status, schemaName(mt.Schema), len(res.Violations)),
				res.Violations...)
		}
		return ir.Pass(fmt.Sprintf("HTTP %d %s conforms to %s", r.Status, r.MediaType(), schemaName(mt.Schema)))
	case r.IsXML():
		if r.ParseErr != nil {
			return ir.Failf(ir.KindValidation, "response body is not well-formed XML: %v", r.ParseErr)
		}
		return ir.Pass(fmt.Sprintf("HTTP %d %s is well-formed", r.Status, r.MediaType()))
	}
	return ir.Pass(fmt.Sprintf("HTTP %d %s matches a declared media type", r.Status, r.MediaType()))
}

func (c *Checker) operation(tc cases.TestCase) *spec.Operation {
	if tc.OperationID != "" {
		if op := c.spec.OperationByID(tc.OperationID); op != nil {
			return op
		}
	}
	return c.spec.Operation(tc.Method, tc.Path)
}

func describe(tc cases.TestCase) string {
	if tc.Target == "" {
		return tc.Label
	}
	if v, ok := tc.Param(tc.Target); ok {
		return fmt.Sprintf("%s=%q", tc.Target, v)
	}
	return tc.Target + " omitted"
}

func expectation(e cases.ExpectClass) string {
	if e == cases.ExpectClientError {
		return "a client error"
	}
	return "success"
}

func schemaName(s *spec.Schema) string {
	if s == nil {
		return "an unconstrained schema"
	}
	if n := s.Name(); n != "" {
		return n
	}
	return "the declared schema"
}
