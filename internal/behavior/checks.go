package behavior

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/validator"
)

// transport returns an errored outcome when r carries no HTTP response.
func transport(r *probe.Result) (ir.Outcome, bool) {
	if r == nil {
		return ir.Errored(ir.KindTransport, "no response captured"), true
	}
	if r.Err != nil {
		kind := ir.KindTransport
		if r.Err.Canceled {
			kind = ir.KindAborted
		}
		return ir.Errored(kind, r.Err.Error()), true
	}
	return ir.Outcome{}, false
}

// searchBody checks that r is a 2xx JSON response and extracts its result set.
func searchBody(r *probe.Result, layout Layout) (map[string]any, []Document, *ir.Outcome) {
	if o, bad := transport(r); bad {
		return nil, nil, &o
	}
	if r.Status < 200 || r.Status > 299 {
		o := ir.Failf(ir.KindAssertion, "expected 2xx, got HTTP %d", r.Status)
		return nil, nil, &o
	}
	if !r.IsJSON() {
		o := ir.Failf(ir.KindAssertion, "expected a JSON response, got Content-Type %q", r.ContentType)
		return nil, nil, &o
	}
	if r.ParseErr != nil {
		o := ir.Failf(ir.KindValidation, "response body is not valid JSON: %v", r.ParseErr)
		return nil, nil, &o
	}
	obj := r.Object()
	if obj == nil {
		o := ir.Failf(ir.KindValidation, "response body is %s, want object", typeName(r.JSON))
		return nil, nil, &o
	}
	docs, err := Documents(obj, layout)
	if err != nil {
		o := ir.Fail(ir.KindValidation, err.Error())
		return nil, nil, &o
	}
	return obj, docs, nil
}

// Status passes when r's status is one of want.
func Status(r *probe.Result, want ...int) ir.Outcome {
	if o, bad := transport(r); bad {
		return o
	}
	if slices.Contains(want, r.Status) {
		return ir.Pass(fmt.Sprintf("HTTP %d", r.Status))
	}
	return ir.Failf(ir.KindAssertion, "expected HTTP %s, got %d", joinInts(want), r.Status)
}

// Health checks an optional health endpoint. A 404 skips the check.
func Health(r *probe.Result, wantStatus string) ir.Outcome {
	if o, bad := transport(r); bad {
		return o
	}
	if r.Status == http.StatusNotFound {
		return ir.Skipped("health endpoint not implemented")
	}
	if r.Status != http.StatusOK {
		return ir.Failf(ir.KindAssertion, "health endpoint returned HTTP %d", r.Status)
	}
	if !r.IsJSON() || r.ParseErr != nil {
		return ir.Failf(ir.KindAssertion, "health endpoint must return JSON, got %q", r.ContentType)
	}
	got, ok := r.Object()["status"]
	if !ok {
		return ir.Fail(ir.KindAssertion, "health response has no status field",
			ir.Violation{Path: "status", Message: "required property is missing"})
	}
	if wantStatus != "" && scalarString(got) != wantStatus {
		return ir.Failf(ir.KindAssertion, "health status is %q, want %q", scalarString(got), wantStatus)
	}
	return ir.Pass("service healthy")
}

// ResponseStructure checks that every field in fields is present, that the
// total is a non-negative integer and that the result set is well-formed.
func ResponseStructure(r *probe.Result, layout Layout, fields []string) ir.Outcome {
	obj, _, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	for _, f := range fields {
		if _, ok := obj[f]; !ok {
			vs = append(vs, ir.Violation{Path: f, Message: "required property is missing"})
		}
	}
	if layout.TotalField != "" {
		if raw, ok := obj[layout.TotalField]; ok {
			if n, isInt := integer(raw); !isInt || n < 0 {
				vs = append(vs, ir.Violation{Path: layout.TotalField, Message: fmt.Sprintf("must be a non-negative integer, got %v", raw)})
			}
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindValidation, fmt.Sprintf("response structure has %d problem(s)", len(vs)), vs...)
	}
	return ir.Pass("response structure complete")
}

// DocumentKeys checks that id-keyed result sets use the document id, or
// the id prefixed with "D", as the key, and that at most rows documents
// are returned.
func DocumentKeys(r *probe.Result, layout Layout, rows int) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	if rows >= 0 && len(docs) > rows {
		vs = append(vs, ir.Violation{Path: layout.DocumentsField, Message: fmt.Sprintf("%d documents returned, requested at most %d", len(docs), rows)})
	}
	for _, d := range docs {
		if d.Key == "" {
			continue
		}
		id := d.ID(layout)
		if d.Key != id && d.Key != "D"+id {
			vs = append(vs, ir.Violation{
				Path:    docPath(layout, d),
				Message: fmt.Sprintf("key does not match %s %q", layout.IDField, id),
			})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "document keys inconsistent", vs...)
	}
	return ir.Pass(fmt.Sprintf("%d document(s) keyed by id", len(docs)))
}

// ContentType checks that the negotiated media type matches the requested
// format ("json" or "xml") and that the body parses as that format.
func ContentType(r *probe.Result, format string) ir.Outcome {
	if o, bad := transport(r); bad {
		return o
	}
	if r.Status < 200 || r.Status > 299 {
		return ir.Failf(ir.KindAssertion, "expected 2xx for format=%s, got HTTP %d", format, r.Status)
	}
	var match bool
	switch strings.ToLower(format) {
	case "json":
		match = r.IsJSON()
	case "xml":
		match = r.IsXML()
	default:
		return ir.Failf(ir.KindAssertion, "unknown format %q", format)
	}
	if !match {
		return ir.Failf(ir.KindAssertion, "requested format=%s, got Content-Type %q", format, r.ContentType)
	}
	if r.ParseErr != nil {
		return ir.Failf(ir.KindValidation, "%s body does not parse: %v", format, r.ParseErr)
	}
	return ir.Pass(fmt.Sprintf("Content-Type %s", r.MediaType()))
}

// RowsLimit checks a request for rows documents against the service maximum.
// A client error is acceptable; a success must cap both the echoed rows
// value and the result set at max.
func RowsLimit(r *probe.Result, layout Layout, rowsField string, max int) ir.Outcome {
	if o, bad := transport(r); bad {
		return o
	}
	if r.Status >= 400 && r.Status < 500 {
		return ir.Pass(fmt.Sprintf("over-limit request rejected with HTTP %d", r.Status))
	}
	obj, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	if n, ok := integer(obj[rowsField]); ok && n > int64(max) {
		vs = append(vs, ir.Violation{Path: rowsField, Message: fmt.Sprintf("echoed %d, exceeds maximum %d", n, max)})
	}
	if len(docs) > max {
		vs = append(vs, ir.Violation{Path: layout.DocumentsField, Message: fmt.Sprintf("%d documents, exceeds maximum %d", len(docs), max)})
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "row limit not enforced", vs...)
	}
	return ir.Pass(fmt.Sprintf("rows capped at %d", max))
}

// Echo checks that the response echoes a request parameter in field.
func Echo(r *probe.Result, layout Layout, field string, want int64) ir.Outcome {
	obj, _, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	got, ok := integer(obj[field])
	if !ok {
		return ir.Fail(ir.KindValidation, fmt.Sprintf("%s is not an integer", field),
			ir.Violation{Path: field, Message: fmt.Sprintf("got %v", obj[field])})
	}
	if got != want {
		return ir.Failf(ir.KindAssertion, "%s echoed as %d, requested %d", field, got, want)
	}
	return ir.Pass(fmt.Sprintf("%s=%d echoed", field, want))
}

// FieldSelection checks that every document keeps its identifier when a
// field list is requested.
func FieldSelection(r *probe.Result, layout Layout) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	for _, d := range docs {
		if _, ok := d.Fields[layout.IDField]; !ok {
			vs = append(vs, ir.Violation{Path: validator.KeyPath(docPath(layout, d), layout.IDField), Message: "required property is missing"})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "field selection dropped document ids", vs...)
	}
	return ir.Pass(fmt.Sprintf("%d document(s) keep %s", len(docs), layout.IDField))
}

// NonNegativeTotal checks a search response's total count.
func NonNegativeTotal(r *probe.Result, layout Layout) ir.Outcome {
	obj, _, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	n, ok := integer(obj[layout.TotalField])
	if !ok || n < 0 {
		return ir.Fail(ir.KindAssertion, "total must be a non-negative integer",
			ir.Violation{Path: layout.TotalField, Message: fmt.Sprintf("got %v", obj[layout.TotalField])})
	}
	return ir.Pass(fmt.Sprintf("%d match(es)", n))
}

// Uniqueness checks that document identifiers are pairwise distinct.
func Uniqueness(r *probe.Result, layout Layout) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	seen := make(map[string]string, len(docs))
	var vs []ir.Violation
	for _, d := range docs {
		id := d.ID(layout)
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			vs = append(vs, ir.Violation{Path: docPath(layout, d), Message: fmt.Sprintf("duplicate %s %q (first at %s)", layout.IDField, id, first)})
			continue
		}
		seen[id] = docPath(layout, d)
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, fmt.Sprintf("%d duplicate document id(s)", len(vs)), vs...)
	}
	return ir.Pass(fmt.Sprintf("%d unique id(s)", len(seen)))
}

// NonEmptyFields checks that every document has a non-empty id and that
// titleField, when present, is not blank.
func NonEmptyFields(r *probe.Result, layout Layout, titleField string) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	for _, d := range docs {
		if d.ID(layout) == "" {
			vs = append(vs, ir.Violation{Path: validator.KeyPath(docPath(layout, d), layout.IDField), Message: "must not be empty"})
		}
		if titleField == "" {
			continue
		}
		if t, ok := d.Fields[titleField]; ok && t != nil && strings.TrimSpace(scalarString(t)) == "" {
			vs = append(vs, ir.Violation{Path: validator.KeyPath(docPath(layout, d), titleField), Message: "must not be blank when present"})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, "documents with empty fields", vs...)
	}
	return ir.Pass(fmt.Sprintf("%d document(s) have populated fields", len(docs)))
}

// Filter checks that every returned document's field equals value
// (case-insensitively). A document without the field fails. List-valued
// fields pass when any element matches.
func Filter(r *probe.Result, layout Layout, field, value string) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	var vs []ir.Violation
	for _, d := range docs {
		raw, ok := d.Fields[field]
		if !ok || raw == nil {
			vs = append(vs, ir.Violation{Path: validator.KeyPath(docPath(layout, d), field), Message: "field absent; cannot confirm filter"})
			continue
		}
		if !matchesValue(raw, value) {
			vs = append(vs, ir.Violation{Path: validator.KeyPath(docPath(layout, d), field), Message: fmt.Sprintf("got %v, filter %q", raw, value)})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, fmt.Sprintf("%d document(s) outside filter %s=%q", len(vs), field, value), vs...)
	}
	return ir.Pass(fmt.Sprintf("%d document(s) match %s=%q", len(docs), field, value))
}

func matchesValue(raw any, value string) bool {
	if list, ok := raw.([]any); ok {
		return slices.ContainsFunc(list, func(x any) bool { return matchesValue(x, value) })
	}
	return strings.TrimSpace(scalarString(raw)) == value
}

// DateRange checks that every document's date field lies within
// [start, end]. Dates may be YYYY-MM-DD or RFC 3339; only the day is
// compared.
func DateRange(r *probe.Result, layout Layout, field, start, end string) ir.Outcome {
	_, docs, fail := searchBody(r, layout)
	if fail != nil {
		return *fail
	}
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return ir.Errored(ir.KindAssertion, fmt.Sprintf("configured start date %q: %v", start, err))
	}
	to, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return ir.Errored(ir.KindAssertion, fmt.Sprintf("configured end date %q: %v", end, err))
	}

	var vs []ir.Violation
	for _, d := range docs {
		path := validator.KeyPath(docPath(layout, d), field)
		day, ok := parseDay(scalarString(d.Fields[field]))
		switch {
		case !ok:
			vs = append(vs, ir.Violation{Path: path, Message: fmt.Sprintf("absent or unparseable date %v", d.Fields[field])})
		case day.Before(from) || day.After(to):
			vs = append(vs, ir.Violation{Path: path, Message: fmt.Sprintf("%s outside %s..%s", day.Format(time.DateOnly), start, end)})
		}
	}
	if len(vs) > 0 {
		return ir.Fail(ir.KindAssertion, fmt.Sprintf("%d document(s) outside date range", len(vs)), vs...)
	}
	return ir.Pass(fmt.Sprintf("%d document(s) within %s..%s", len(docs), start, end))
}

func parseDay(s string) (time.Time, bool) {
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	return t, err == nil
}

// GracefulDegradation checks the response to malformed or out-of-range
// input. Transport faults and 5xx fail. A 4xx must carry a well-formed
// body; a 2xx must carry an empty result set.
func GracefulDegradation(r *probe.Result, layout Layout) ir.Outcome {
	if r == nil || r.Err != nil {
		msg := "no response captured"
		if r != nil {
			msg = r.Err.Error()
		}
		if r != nil && r.Err.Canceled {
			return ir.Errored(ir.KindAborted, msg)
		}
		return ir.Fail(ir.KindTransport, "malformed input caused a transport fault: "+msg)
	}
	switch {
	case r.Status >= 500:
		return ir.Failf(ir.KindAssertion, "malformed input caused a server error (HTTP %d)", r.Status)
	case r.Status >= 400:
		if r.ParseErr != nil {
			return ir.Failf(ir.KindValidation, "client error body is malformed: %v", r.ParseErr)
		}
		return ir.Pass(fmt.Sprintf("rejected with HTTP %d", r.Status))
	case r.Status >= 200 && r.Status < 300:
		_, docs, fail := searchBody(r, layout)
		if fail != nil {
			return *fail
		}
		if len(docs) > 0 {
			return ir.Failf(ir.KindAssertion, "malformed input accepted: HTTP %d with %d document(s)", r.Status, len(docs))
		}
		return ir.Pass(fmt.Sprintf("HTTP %d with empty result set", r.Status))
	}
	return ir.Failf(ir.KindAssertion, "unexpected HTTP %d", r.Status)
}

func docPath(layout Layout, d Document) string {
	if d.Key == "" {
		return validator.IndexPath(layout.DocumentsField, d.Index)
	}
	return validator.KeyPath(layout.DocumentsField, d.Key)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " or ")
}
