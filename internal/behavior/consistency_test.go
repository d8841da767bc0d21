package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apiparity/internal/ir"
)

func TestConsistency(t *testing.T) {
	a := jsonResult(200, `{"total":2,"documents":[{"id":"1","t":"é"},{"id":"2"}]}`)
	same := jsonResult(200, `{"total":2,"documents":[{"t":"e\u0301","id":"1"},{"id":"2"}]}`)
	reordered := jsonResult(200, `{"total":2,"documents":[{"id":"2"},{"id":"1","t":"é"}]}`)
	different := jsonResult(200, `{"total":3,"documents":[{"id":"1","t":"é"},{"id":"3"}]}`)

	assert.True(t, Consistency(a, same, layout, true).Passed(), "key order and normalization form do not matter")
	assert.True(t, Consistency(a, reordered, layout, false).Passed())
	assert.False(t, Consistency(a, reordered, layout, true).Passed())

	o := Consistency(a, different, layout, false)
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Len(t, o.Violations, 2)

	assert.Equal(t, ir.StatusError, Consistency(a, transportFailure(false), layout, false).Status)
}

func TestPaginationTotals(t *testing.T) {
	p1 := jsonResult(200, `{"total":12,"os":0,"documents":{}}`)
	p2 := jsonResult(200, `{"total":12,"os":5,"documents":{}}`)
	p3 := jsonResult(200, `{"total":11,"os":5,"documents":{}}`)

	assert.True(t, PaginationTotals(p1, p2, layout).Passed())
	assert.False(t, PaginationTotals(p1, p3, layout).Passed())
	assert.Equal(t, ir.KindValidation, PaginationTotals(p1, jsonResult(200, `{"documents":{}}`), layout).Kind)
}

func TestPagesDiffer(t *testing.T) {
	p1 := jsonResult(200, `{"total":12,"documents":{"D1":{"id":"1"},"D2":{"id":"2"}}}`)
	p2 := jsonResult(200, `{"total":12,"documents":{"D3":{"id":"3"},"D4":{"id":"4"}}}`)
	overlap := jsonResult(200, `{"total":12,"documents":{"D2":{"id":"2"},"D3":{"id":"3"}}}`)

	assert.True(t, PagesDiffer(p1, p2, layout, 2).Passed())

	o := PagesDiffer(p1, overlap, layout, 2)
	require.Equal(t, ir.StatusFail, o.Status)
	assert.Equal(t, "documents.D2", o.Violations[0].Path)

	small := jsonResult(200, `{"total":3,"documents":{"D1":{"id":"1"}}}`)
	assert.Equal(t, ir.StatusSkip, PagesDiffer(small, small, layout, 2).Status)
}
