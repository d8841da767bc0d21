package behavior

import (
	"fmt"
	"slices"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
)

// Consistency checks that two responses to the same request carry the same
// total and the same canonical result set. When ordered is false the sets
// are compared irrespective of document order.
func Consistency(a, b *probe.Result, layout Layout, ordered bool) ir.Outcome {
	objA, docsA, fail := searchBody(a, layout)
	if fail != nil {
		return *fail
	}
	objB, docsB, fail := searchBody(b, layout)
	if fail != nil {
		return *fail
	}

	var vs []ir.Violation
	if layout.TotalField != "" && !ir.CanonicalEqual(objA[layout.TotalField], objB[layout.TotalField]) {
		vs = append(vs, ir.Violation{
			Path:    layout.TotalField,
			Message: fmt.Sprintf("first %v, second %v", objA[layout.TotalField], objB[layout.TotalField]),
		})
	}

	fpA, err := resultSetFingerprint(docsA, ordered)
	if err != nil {
		return ir.Fail(ir.KindValidation, err.Error())
	}
	fpB, err := resultSetFingerprint(docsB, ordered)
	if err != nil {
		return ir.Fail(ir.KindValidation, err.Error())
	}
	if fpA != fpB {
		vs = append(vs, ir.Violation{
			Path:    layout.DocumentsField,
			Message: fmt.Sprintf("result sets differ (%d vs %d documents)", len(docsA), len(docsB)),
		})
	}

	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "repeated request returned different results", vs...)
	}
	return ir.Pass(fmt.Sprintf("%d identical document(s)", len(docsA)))
}

// resultSetFingerprint hashes the canonical encodings of docs. Unordered
// sets are sorted by encoding first so order does not matter.
func resultSetFingerprint(docs []Document, ordered bool) (string, error) {
	if ordered {
		values := make([]any, len(docs))
		for i, d := range docs {
			values[i] = d.Fields
		}
		return ir.ResultSetFingerprint(values)
	}

	encoded := make([]string, len(docs))
	for i, d := range docs {
		b, err := ir.Canonical(d.Fields)
		if err != nil {
			return "", fmt.Errorf("canonicalize document %d: %w", i, err)
		}
		encoded[i] = string(b)
	}
	slices.Sort(encoded)
	values := make([]any, len(encoded))
	for i, e := range encoded {
		values[i] = e
	}
	return ir.ResultSetFingerprint(values)
}

// PaginationTotals checks that two pages of the same query report the
// same total.
func PaginationTotals(a, b *probe.Result, layout Layout) ir.Outcome {
	objA, _, fail := searchBody(a, layout)
	if fail != nil {
		return *fail
	}
	objB, _, fail := searchBody(b, layout)
	if fail != nil {
		return *fail
	}
	ta, okA := integer(objA[layout.TotalField])
	tb, okB := integer(objB[layout.TotalField])
	if !okA || !okB {
		return ir.Fail(ir.KindValidation, "total is not an integer",
			ir.Violation{Path: layout.TotalField, Message: fmt.Sprintf("pages report %v and %v", objA[layout.TotalField], objB[layout.TotalField])})
	}
	if ta != tb {
		return ir.Failf(ir.KindAssertion, "total changed across pages: %d then %d", ta, tb)
	}
	return ir.Pass(fmt.Sprintf("total %d stable across pages", ta))
}

// PagesDiffer checks that consecutive pages of rows documents do not
// overlap. It passes trivially when the total cannot fill two pages.
func PagesDiffer(a, b *probe.Result, layout Layout, rows int) ir.Outcome {
	objA, docsA, fail := searchBody(a, layout)
	if fail != nil {
		return *fail
	}
	_, docsB, fail := searchBody(b, layout)
	if fail != nil {
		return *fail
	}
	if total, ok := integer(objA[layout.TotalField]); ok && total <= int64(2*rows) {
		return ir.Skipped(fmt.Sprintf("total %d too small to compare two pages of %d", total, rows))
	}

	first := make(map[string]bool, len(docsA))
	for _, d := range docsA {
		first[d.ID(layout)] = true
	}
	var vs []ir.Violation
	for _, d := range docsB {
		if first[d.ID(layout)] {
			vs = append(vs, ir.Violation{Path: docPath(layout, d), Message: fmt.Sprintf("%s %q also on previous page", layout.IDField, d.ID(layout))})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "pagination returned overlapping pages", vs...)
	}
	return ir.Pass("pages are disjoint")
}
