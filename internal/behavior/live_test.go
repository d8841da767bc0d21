package behavior

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/probe"
	"github.com/roach88/apiparity/internal/testutil"
)

func search(t *testing.T, api *testutil.FakeAPI, query url.Values) *probe.Result {
	t.Helper()
	p := probe.New(probe.Config{BaseURL: api.URL, Timeout: 2 * time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return p.Execute(context.Background(), probe.Request{Method: "GET", Path: "/wds", Query: query})
}

func TestChecksAgainstFakeAPI(t *testing.T) {
	api := testutil.NewFakeAPI(t)

	res := search(t, api, url.Values{"format": {"json"}, "rows": {"3"}})
	assert.True(t, ResponseStructure(res, layout, []string{"rows", "os", "page", "total", "documents"}).Passed())
	assert.True(t, DocumentKeys(res, layout, 3).Passed())
	assert.True(t, Uniqueness(res, layout).Passed())
	assert.True(t, NonEmptyFields(res, layout, "title").Passed())
	assert.True(t, Echo(res, layout, "rows", 3).Passed())

	assert.True(t, ContentType(search(t, api, url.Values{"format": {"xml"}}), "xml").Passed())

	brazil := search(t, api, url.Values{"count_exact": {"Brazil"}, "rows": {"20"}})
	assert.True(t, Filter(brazil, layout, "count", "Brazil").Passed())
	docs, err := Documents(brazil.JSON, layout)
	require.NoError(t, err)
	assert.Len(t, docs, 5)

	dated := search(t, api, url.Values{"strdate": {"2022-01-01"}, "enddate": {"2022-12-31"}, "rows": {"20"}})
	assert.True(t, DateRange(dated, layout, "docdt", "2022-01-01", "2022-12-31").Passed())

	p1 := search(t, api, url.Values{"rows": {"5"}, "os": {"0"}})
	p2 := search(t, api, url.Values{"rows": {"5"}, "os": {"5"}})
	assert.True(t, PaginationTotals(p1, p2, layout).Passed())
	assert.True(t, PagesDiffer(p1, p2, layout, 5).Passed())
	assert.True(t, Consistency(p1, search(t, api, url.Values{"rows": {"5"}, "os": {"0"}}), layout, false).Passed())

	assert.True(t, RowsLimit(search(t, api, url.Values{"rows": {"150"}}), layout, "rows", 100).Passed())
	assert.True(t, GracefulDegradation(search(t, api, url.Values{"format": {"invalid"}}), layout).Passed())
}

func TestGracefulDegradationAgainstFakeAPI(t *testing.T) {
	bad := url.Values{"rows": {"invalid"}}

	strict := testutil.NewFakeAPI(t, testutil.WithServerErrors())
	o := GracefulDegradation(search(t, strict, bad), layout)
	assert.Equal(t, ir.StatusFail, o.Status)
	assert.Contains(t, o.Message, "HTTP 500")

	lenient := testutil.NewFakeAPI(t, testutil.WithLenientErrors())
	o = GracefulDegradation(search(t, lenient, bad), layout)
	assert.Equal(t, ir.StatusFail, o.Status)
	assert.Contains(t, o.Message, "malformed input accepted")
}

func TestUniquenessAgainstDuplicatingAPI(t *testing.T) {
	api := testutil.NewFakeAPI(t, testutil.WithDuplicateIDs())
	o := Uniqueness(search(t, api, url.Values{"rows": {"3"}}), layout)
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Len(t, o.Violations, 2)
}
