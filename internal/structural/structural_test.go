package structural

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apiparity/internal/cases"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/spec"
	"github.com/roach88/apiparity/internal/testutil"
)

func loadSpec(t *testing.T, name string) *spec.InterfaceSpec {
	t.Helper()
	s, err := spec.Load(context.Background(), testutil.WriteSpec(t, name))
	require.NoError(t, err)
	return s
}

func result(status int, contentType, body string) *probe.Result {
	return probe.NewResult(status, http.Header{"Content-Type": {contentType}}, []byte(body))
}

var (
	searchOK = cases.TestCase{
		OperationID: "searchDocuments", Method: "GET", Path: "/wds",
		Label: "required parameters only", Expect: cases.ExpectSuccess,
	}
	searchBad = cases.TestCase{
		OperationID: "searchDocuments", Method: "GET", Path: "/wds",
		Label: "rows above maximum", Expect: cases.ExpectClientError, Target: "rows",
		Params: []cases.Param{{Name: "rows", In: spec.InQuery, Value: "101"}},
	}
)

const validSearch = `{"rows":10,"os":0,"page":1,"total":1,"documents":{"D1":{"id":"1","docdt":"2021-03-15T00:00:00Z","docty":null}}}`

func TestCheck(t *testing.T) {
	c := New(loadSpec(t, "wds.yaml"))

	tests := []struct {
		name    string
		tc      cases.TestCase
		result  *probe.Result
		status  ir.Status
		kind    ir.Kind
		message string
	}{
		{
			name:   "conforming search",
			tc:     searchOK,
			result: result(200, "application/json; charset=utf-8", validSearch),
			status: ir.StatusPass,
		},
		{
			name:    "transport failure",
			tc:      searchOK,
			result:  &probe.Result{Err: &probe.TransportError{Attempts: 3, Err: errors.New("connection refused")}},
			status:  ir.StatusError,
			kind:    ir.KindTransport,
			message: "connection refused",
		},
		{
			name:   "canceled",
			tc:     searchOK,
			result: &probe.Result{Err: &probe.TransportError{Attempts: 1, Canceled: true, Err: context.Canceled}},
			status: ir.StatusError,
			kind:   ir.KindAborted,
		},
		{
			name:    "success expected, rejected",
			tc:      searchOK,
			result:  result(400, "application/json", `{"error":"bad"}`),
			status:  ir.StatusFail,
			kind:    ir.KindAssertion,
			message: "expected success, got HTTP 400",
		},
		{
			name:    "client error expected, accepted",
			tc:      searchBad,
			result:  result(200, "application/json", validSearch),
			status:  ir.StatusFail,
			kind:    ir.KindAssertion,
			message: `rows="101": expected a client error, got HTTP 200`,
		},
		{
			name:    "client error expected, server error",
			tc:      searchBad,
			result:  result(500, "application/json", `{}`),
			status:  ir.StatusFail,
			kind:    ir.KindAssertion,
			message: "got HTTP 500",
		},
		{
			name:   "declared error schema",
			tc:     searchBad,
			result: result(400, "application/json", `{"error":"rows must be an integer between 0 and 100"}`),
			status: ir.StatusPass,
		},
		{
			name:    "undeclared status",
			tc:      searchBad,
			result:  result(404, "application/json", `{}`),
			status:  ir.StatusError,
			kind:    ir.KindSpecMismatch,
			message: "HTTP 404 (Not Found) has no declared response",
		},
		{
			name:    "undeclared media type",
			tc:      searchOK,
			result:  result(200, "text/html", `<html></html>`),
			status:  ir.StatusError,
			kind:    ir.KindSpecMismatch,
			message: `Content-Type "text/html"`,
		},
		{
			name:   "malformed JSON",
			tc:     searchOK,
			result: result(200, "application/json", `{"rows":`),
			status: ir.StatusFail,
			kind:   ir.KindValidation,
		},
		{
			name:   "well-formed XML",
			tc:     searchOK,
			result: result(200, "application/xml", `<documents total="1"><doc id="1"/></documents>`),
			status: ir.StatusPass,
		},
		{
			name:    "malformed XML",
			tc:      searchOK,
			result:  result(200, "application/xml", `<documents>`),
			status:  ir.StatusFail,
			kind:    ir.KindValidation,
			message: "not well-formed XML",
		},
		{
			name:    "unknown operation",
			tc:      cases.TestCase{Method: "POST", Path: "/wds", Expect: cases.ExpectSuccess},
			result:  result(200, "application/json", `{}`),
			status:  ir.StatusError,
			kind:    ir.KindSpecMismatch,
			message: "POST /wds is not declared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := c.Check(tt.tc, tt.result)
			assert.Equal(t, tt.status, o.Status, o.Message)
			assert.Equal(t, tt.kind, o.Kind)
			if tt.message != "" {
				assert.Contains(t, o.Message, tt.message)
			}
		})
	}
}

func TestCheck_ViolationsAttached(t *testing.T) {
	c := New(loadSpec(t, "wds.yaml"))

	body := `{"rows":10,"os":0,"page":0,"documents":{"D1":{"id":"","docdt":"yesterday"}}}`
	o := c.Check(searchOK, result(200, "application/json", body))

	require.Equal(t, ir.StatusFail, o.Status)
	assert.Equal(t, ir.KindValidation, o.Kind)
	assert.Contains(t, o.Message, "SearchResponse")

	var paths []string
	for _, v := range o.Violations {
		paths = append(paths, v.Path)
	}
	assert.ElementsMatch(t, []string{
		"total",
		"page",
		"documents.D1.id",
		"documents.D1.docdt",
	}, paths)
}

func TestCheck_RangeResponseAndProblemJSON(t *testing.T) {
	c := New(loadSpec(t, "items.yaml"))
	tc := cases.TestCase{OperationID: "get_items_itemid", Method: "GET", Path: "/items/{itemId}", Expect: cases.ExpectClientError}

	o := c.Check(tc, result(422, "application/problem+json", `{"title":"bad ratio"}`))
	assert.Equal(t, ir.StatusPass, o.Status, o.Message)
}

func TestCheck_GeneratedCasesAgainstFakeAPI(t *testing.T) {
	s := loadSpec(t, "wds.yaml")
	c := New(s)
	api := testutil.NewFakeAPI(t)
	p := probe.New(probe.Config{BaseURL: api.URL, Timeout: 2 * time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	gen := cases.New(cases.GeneratorConfig{DateStart: "strdate", DateEnd: "enddate"})
	n := 0
	for tc := range gen.Generate(s, cases.StrategyAll) {
		n++
		o := c.Check(tc, p.Execute(context.Background(), tc.Request()))
		assert.Equal(t, ir.StatusPass, o.Status, "%s: %s %v", tc.ID, o.Message, o.Violations)
	}
	assert.Equal(t, 21, n)
}
