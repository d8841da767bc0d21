package behavior

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apiparity/internal/config"
	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
)

var layout = LayoutFrom(config.Default().Behavioral)

func jsonResult(status int, body string) *probe.Result {
	return probe.NewResult(status, http.Header{"Content-Type": {"application/json"}}, []byte(body))
}

func xmlResult(status int, body string) *probe.Result {
	return probe.NewResult(status, http.Header{"Content-Type": {"application/xml; charset=utf-8"}}, []byte(body))
}

func transportFailure(canceled bool) *probe.Result {
	return &probe.Result{Attempts: 3, Err: &probe.TransportError{Attempts: 3, Canceled: canceled, Err: errors.New("connection refused")}}
}

const twoDocs = `{"rows":2,"os":0,"page":1,"total":7,"documents":{
	"D1":{"id":"1","title":"Energy in Brazil","count":"Brazil","lang":"English","docdt":"2021-03-15T00:00:00Z"},
	"D2":{"id":"2","title":"Solar auctions","count":"brazil","lang":"English","docdt":"2023-02-10"},
	"facets":{"count":{"Brazil":2}}}}`

func TestDocuments(t *testing.T) {
	res := jsonResult(200, twoDocs)

	docs, err := Documents(res.JSON, layout)
	require.NoError(t, err)
	require.Len(t, docs, 2, "facets is ignored")
	assert.Equal(t, "D1", docs[0].Key)
	assert.Equal(t, "1", docs[0].ID(layout))

	arr := jsonResult(200, `{"documents":[{"id":1},{"id":2}]}`)
	docs, err = Documents(arr.JSON, layout)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "", docs[1].Key)
	assert.Equal(t, 1, docs[1].Index)
	assert.Equal(t, "2", docs[1].ID(layout))

	_, err = Documents(map[string]any{"other": 1}, layout)
	assert.ErrorContains(t, err, `no "documents" field`)
	_, err = Documents(map[string]any{"documents": "x"}, layout)
	assert.ErrorContains(t, err, "want object or array")
	_, err = Documents([]any{}, layout)
	assert.ErrorContains(t, err, "want object")
}

func TestHealth(t *testing.T) {
	assert.Equal(t, ir.StatusPass, Health(jsonResult(200, `{"status":"healthy"}`), "healthy").Status)
	assert.Equal(t, ir.StatusSkip, Health(jsonResult(404, `{}`), "healthy").Status)
	assert.Equal(t, ir.StatusFail, Health(jsonResult(503, `{}`), "healthy").Status)
	assert.Equal(t, ir.StatusFail, Health(jsonResult(200, `{"status":"down"}`), "healthy").Status)
	assert.Equal(t, ir.StatusFail, Health(jsonResult(200, `{}`), "healthy").Status)
	assert.Equal(t, ir.StatusFail, Health(xmlResult(200, `<ok/>`), "healthy").Status)

	o := Health(transportFailure(false), "healthy")
	assert.Equal(t, ir.StatusError, o.Status)
	assert.Equal(t, ir.KindTransport, o.Kind)
}

func TestStatus(t *testing.T) {
	assert.True(t, Status(jsonResult(200, `{}`), 200).Passed())
	o := Status(jsonResult(500, `{}`), 200, 204)
	assert.Equal(t, ir.StatusFail, o.Status)
	assert.Contains(t, o.Message, "200 or 204")
	assert.Equal(t, ir.KindAborted, Status(transportFailure(true), 200).Kind)
}

func TestResponseStructure(t *testing.T) {
	fields := config.Default().Behavioral.RequiredFields

	assert.True(t, ResponseStructure(jsonResult(200, twoDocs), layout, fields).Passed())

	o := ResponseStructure(jsonResult(200, `{"rows":2,"total":-1,"documents":{}}`), layout, fields)
	require.Equal(t, ir.StatusFail, o.Status)
	var paths []string
	for _, v := range o.Violations {
		paths = append(paths, v.Path)
	}
	assert.ElementsMatch(t, []string{"os", "page", "total"}, paths)

	o = ResponseStructure(jsonResult(200, `[1,2]`), layout, fields)
	assert.Equal(t, ir.KindValidation, o.Kind)

	o = ResponseStructure(jsonResult(200, `{"rows":`), layout, fields)
	assert.Equal(t, ir.KindValidation, o.Kind)
	assert.Contains(t, o.Message, "not valid JSON")
}

func TestDocumentKeys(t *testing.T) {
	assert.True(t, DocumentKeys(jsonResult(200, twoDocs), layout, 3).Passed())
	assert.False(t, DocumentKeys(jsonResult(200, twoDocs), layout, 1).Passed())

	o := DocumentKeys(jsonResult(200, `{"documents":{"X9":{"id":"9"},"9":{"id":"9"}}}`), layout, 10)
	require.Equal(t, ir.StatusFail, o.Status)
	require.Len(t, o.Violations, 1)
	assert.Equal(t, "documents.X9", o.Violations[0].Path)
}

func TestContentType(t *testing.T) {
	assert.True(t, ContentType(jsonResult(200, `{}`), "json").Passed())
	assert.True(t, ContentType(xmlResult(200, `<documents/>`), "xml").Passed())
	assert.True(t, ContentType(probe.NewResult(200, http.Header{"Content-Type": {"application/atom+xml"}}, []byte(`<feed/>`)), "xml").Passed())

	o := ContentType(jsonResult(200, `{}`), "xml")
	assert.Equal(t, ir.StatusFail, o.Status)
	assert.Contains(t, o.Message, "format=xml")

	o = ContentType(xmlResult(200, `<documents>`), "xml")
	assert.Equal(t, ir.KindValidation, o.Kind)

	assert.False(t, ContentType(jsonResult(400, `{}`), "json").Passed())
}

func TestRowsLimit(t *testing.T) {
	assert.True(t, RowsLimit(jsonResult(400, `{"error":"rows"}`), layout, "rows", 100).Passed())
	assert.True(t, RowsLimit(jsonResult(200, `{"rows":100,"documents":{}}`), layout, "rows", 100).Passed())

	o := RowsLimit(jsonResult(200, `{"rows":150,"documents":{}}`), layout, "rows", 100)
	assert.Equal(t, ir.StatusFail, o.Status)
	assert.Equal(t, "rows", o.Violations[0].Path)

	assert.False(t, RowsLimit(jsonResult(500, `{}`), layout, "rows", 100).Passed())
}

func TestEchoAndFieldSelection(t *testing.T) {
	assert.True(t, Echo(jsonResult(200, `{"os":2,"documents":{}}`), layout, "os", 2).Passed())
	assert.False(t, Echo(jsonResult(200, `{"os":0,"documents":{}}`), layout, "os", 2).Passed())
	assert.Equal(t, ir.KindValidation, Echo(jsonResult(200, `{"os":"2","documents":{}}`), layout, "os", 2).Kind)

	assert.True(t, FieldSelection(jsonResult(200, `{"documents":{"D1":{"id":"1","title":"t"}}}`), layout).Passed())
	o := FieldSelection(jsonResult(200, `{"documents":{"D1":{"title":"t"}}}`), layout)
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Equal(t, "documents.D1.id", o.Violations[0].Path)
}

func TestNonNegativeTotal(t *testing.T) {
	assert.True(t, NonNegativeTotal(jsonResult(200, `{"total":0,"documents":{}}`), layout).Passed())
	assert.False(t, NonNegativeTotal(jsonResult(200, `{"total":-3,"documents":{}}`), layout).Passed())
	assert.False(t, NonNegativeTotal(jsonResult(200, `{"documents":{}}`), layout).Passed())
}

func TestUniqueness(t *testing.T) {
	assert.True(t, Uniqueness(jsonResult(200, twoDocs), layout).Passed())

	o := Uniqueness(jsonResult(200, `{"documents":[{"id":"1"},{"id":"2"},{"id":"1"}]}`), layout)
	require.Equal(t, ir.StatusFail, o.Status)
	require.Len(t, o.Violations, 1)
	assert.Equal(t, "documents[2]", o.Violations[0].Path)
	assert.Contains(t, o.Violations[0].Message, "documents[0]")
}

func TestNonEmptyFields(t *testing.T) {
	assert.True(t, NonEmptyFields(jsonResult(200, twoDocs), layout, "title").Passed())

	o := NonEmptyFields(jsonResult(200, `{"documents":{"D1":{"id":"","title":"  "},"D2":{"id":"2","title":null}}}`), layout, "title")
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Len(t, o.Violations, 2)
}

func TestFilter(t *testing.T) {
	assert.True(t, Filter(jsonResult(200, `{"documents":{"D1":{"id":"1","count":" Brazil"}}}`), layout, "count", "Brazil").Passed())
	assert.True(t, Filter(jsonResult(200, `{"documents":{}}`), layout, "count", "Brazil").Passed(), "empty set")
	assert.True(t, Filter(jsonResult(200, `{"documents":[{"id":"1","count":["Kenya","Brazil"]}]}`), layout, "count", "Brazil").Passed())

	o := Filter(jsonResult(200, twoDocs), layout, "lang", "Spanish")
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Len(t, o.Violations, 2)

	o = Filter(jsonResult(200, twoDocs), layout, "count", "Brazil")
	require.Equal(t, ir.StatusFail, o.Status, "values compare exactly")
	require.Len(t, o.Violations, 1)
	assert.Equal(t, "documents.D2.count", o.Violations[0].Path)

	o = Filter(jsonResult(200, `{"documents":{"D1":{"id":"1"}}}`), layout, "count", "Brazil")
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Contains(t, o.Violations[0].Message, "absent")
}

func TestDateRange(t *testing.T) {
	assert.True(t, DateRange(jsonResult(200, twoDocs), layout, "docdt", "2020-01-01", "2023-12-31").Passed())

	o := DateRange(jsonResult(200, twoDocs), layout, "docdt", "2022-01-01", "2023-12-31")
	require.Equal(t, ir.StatusFail, o.Status)
	require.Len(t, o.Violations, 1)
	assert.Equal(t, "documents.D1.docdt", o.Violations[0].Path)

	o = DateRange(jsonResult(200, `{"documents":[{"id":"1","docdt":"soon"}]}`), layout, "docdt", "2020-01-01", "2023-12-31")
	assert.Equal(t, ir.StatusFail, o.Status)

	o = DateRange(jsonResult(200, twoDocs), layout, "docdt", "2020-13-45", "2023-12-31")
	assert.Equal(t, ir.StatusError, o.Status)
}

func TestGracefulDegradation(t *testing.T) {
	tests := []struct {
		name   string
		result *probe.Result
		status ir.Status
		kind   ir.Kind
	}{
		{"client error", jsonResult(400, `{"error":"bad"}`), ir.StatusPass, ir.KindNone},
		{"malformed client error", jsonResult(400, `{"error":`), ir.StatusFail, ir.KindValidation},
		{"empty success", jsonResult(200, `{"total":0,"documents":{}}`), ir.StatusPass, ir.KindNone},
		{"accepted with results", jsonResult(200, twoDocs), ir.StatusFail, ir.KindAssertion},
		{"server error", jsonResult(500, `{}`), ir.StatusFail, ir.KindAssertion},
		{"transport fault", transportFailure(false), ir.StatusFail, ir.KindTransport},
		{"canceled", transportFailure(true), ir.StatusError, ir.KindAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := GracefulDegradation(tt.result, layout)
			assert.Equal(t, tt.status, o.Status, o.Message)
			assert.Equal(t, tt.kind, o.Kind)
		})
	}
}
