package cases

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/spec"
	"github.com/roach88/apiparity/internal/testutil"
)

func loadSpec(t *testing.T, name string) *spec.InterfaceSpec {
	t.Helper()
	s, err := spec.Load(context.Background(), testutil.WriteSpec(t, name))
	require.NoError(t, err)
	return s
}

func generator() *Generator {
	return New(GeneratorConfig{DateStart: "strdate", DateEnd: "enddate"})
}

func TestGenerate_Golden(t *testing.T) {
	s := loadSpec(t, "wds.yaml")

	var buf bytes.Buffer
	for tc := range generator().Generate(s, StrategyAll) {
		fmt.Fprintf(&buf, "%d %s %s %s %s\n", tc.Seq, tc.ID, tc.Expect, tc.Method, tc.Request().URL(""))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "wds_all", buf.Bytes())
}

func TestGenerate_Deterministic(t *testing.T) {
	s := loadSpec(t, "wds.yaml")
	gen := generator()
	seq := gen.Generate(s, StrategyAll)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	third := slices.Collect(generator().Generate(s, StrategyAll))

	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "re-iterating the same sequence")
	assert.Equal(t, first, third, "a fresh generator")
}

func TestGenerate_StopsEarly(t *testing.T) {
	s := loadSpec(t, "wds.yaml")
	var got []string
	for tc := range generator().Generate(s, StrategyBoundary) {
		got = append(got, tc.ID)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{
		"openapi/boundary/searchDocuments/format-enum-json",
		"openapi/boundary/searchDocuments/format-enum-xml",
	}, got)
}

func TestGenerate_CaseFields(t *testing.T) {
	s := loadSpec(t, "wds.yaml")
	for tc := range generator().Generate(s, StrategyInvalid) {
		assert.Equal(t, ir.SuiteOpenAPI, tc.Suite)
		assert.Equal(t, "invalid", tc.Category)
		assert.Equal(t, StrategyInvalid, tc.Strategy)
		assert.Equal(t, ExpectClientError, tc.Expect)
		assert.NotEmpty(t, tc.Target, tc.ID)
		assert.Nil(t, tc.Assert)
	}
}

func TestGenerate_PathHeaderAndRequired(t *testing.T) {
	s := loadSpec(t, "items.yaml")
	all := slices.Collect(generator().Generate(s, StrategyAll))

	byID := make(map[string]TestCase, len(all))
	for _, tc := range all {
		byID[tc.ID] = tc
	}
	get := func(id string) TestCase {
		t.Helper()
		tc, ok := byID[id]
		require.True(t, ok, "missing case %s", id)
		return tc
	}

	req := get("openapi/valid/get_items_itemid/required-parameters-only").Request()
	assert.Equal(t, "/items/00000000-0000-4000-8000-000000000000", req.Path)
	assert.Equal(t, "0.5", req.Query.Get("ratio"))
	assert.Empty(t, req.Header)

	req = get("openapi/valid/get_items_itemid/all-optional-parameters").Request()
	assert.Equal(t, "test", req.Header.Get("X-Trace"))
	assert.Equal(t, "true", req.Query.Get("verbose"))

	assert.Equal(t, "tes", get("openapi/boundary/get_items_itemid/x-trace-length-3-below-minimum").Request().Header.Get("X-Trace"))
	assert.Equal(t, "testtest", get("openapi/boundary/get_items_itemid/x-trace-length-8-at-maximum").Request().Header.Get("X-Trace"))
	assert.Equal(t, "testtestt", get("openapi/boundary/get_items_itemid/x-trace-length-9-above-maximum").Request().Header.Get("X-Trace"))
	assert.Equal(t, "-0.5", get("openapi/boundary/get_items_itemid/ratio-below-minimum").Request().Query.Get("ratio"))
	assert.Equal(t, "2.5", get("openapi/boundary/get_items_itemid/ratio-above-maximum").Request().Query.Get("ratio"))

	missing := get("openapi/invalid/get_items_itemid/ratio-missing")
	_, has := missing.Param("ratio")
	assert.False(t, has)
	assert.Equal(t, "ratio", missing.Target)

	assert.Equal(t, "/items/not-a-uuid", get("openapi/invalid/get_items_itemid/itemid-malformed-uuid").Request().Path)
	assert.Equal(t, "not_a_boolean", get("openapi/invalid/get_items_itemid/verbose-wrong-type").Request().Query.Get("verbose"))
	assert.Equal(t, "not_a_number", get("openapi/invalid/get_items_itemid/ratio-wrong-type").Request().Query.Get("ratio"))

	for _, tc := range all {
		assert.NotContains(t, tc.ID, "itemid-missing", "path parameters are never dropped")
	}
}

func TestGenerate_NoDateRangeWithoutConfig(t *testing.T) {
	s := loadSpec(t, "wds.yaml")
	for tc := range New(GeneratorConfig{}).Generate(s, StrategyInvalid) {
		assert.NotEqual(t, "inverted date range", tc.Label)
	}
}

func TestSample(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	n := func(v int) *int { return &v }

	tests := []struct {
		name   string
		schema *spec.Schema
		want   string
	}{
		{"nil", nil, "test"},
		{"default wins", &spec.Schema{Types: []string{"integer"}, Default: 10, Enum: []any{5}}, "10"},
		{"first enum", &spec.Schema{Types: []string{"string"}, Enum: []any{"json", "xml"}}, "json"},
		{"example", &spec.Schema{Types: []string{"string"}, Example: "energy"}, "energy"},
		{"integer minimum", &spec.Schema{Types: []string{"integer"}, Minimum: f(3)}, "3"},
		{"exclusive minimum", &spec.Schema{Types: []string{"integer"}, Minimum: f(3), ExclusiveMinimum: true}, "4"},
		{"integer fallback", &spec.Schema{Types: []string{"integer"}}, "1"},
		{"clamped under maximum", &spec.Schema{Types: []string{"number"}, Maximum: f(0.25)}, "0.25"},
		{"boolean", &spec.Schema{Types: []string{"boolean"}}, "true"},
		{"array item", &spec.Schema{Types: []string{"array"}, Items: &spec.Schema{Types: []string{"string"}, Format: "date"}}, "2020-01-01"},
		{"date", &spec.Schema{Types: []string{"string"}, Format: "date"}, "2020-01-01"},
		{"date-time", &spec.Schema{Types: []string{"string"}, Format: "date-time"}, "2020-01-01T00:00:00Z"},
		{"uuid", &spec.Schema{Types: []string{"string"}, Format: "uuid"}, "00000000-0000-4000-8000-000000000000"},
		{"min length", &spec.Schema{Types: []string{"string"}, MinLength: n(6)}, "testte"},
		{"max length", &spec.Schema{Types: []string{"string"}, MaxLength: n(2)}, "te"},
		{"nullable", &spec.Schema{Types: []string{"integer", "null"}, Minimum: f(0)}, "0"},
		{"recursive", &spec.Schema{Recursive: true, Target: &spec.Schema{Types: []string{"boolean"}}}, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sample(tt.schema))
		})
	}
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy(" Boundary ")
	require.NoError(t, err)
	assert.Equal(t, StrategyBoundary, st)
	assert.Equal(t, []Strategy{StrategyValid, StrategyBoundary, StrategyInvalid}, StrategyAll.Expand())

	_, err = ParseStrategy("fuzz")
	assert.ErrorContains(t, err, `unknown strategy "fuzz"`)
}

func TestExpectClass(t *testing.T) {
	assert.True(t, ExpectSuccess.Matches(204))
	assert.False(t, ExpectSuccess.Matches(400))
	assert.True(t, ExpectClientError.Matches(422))
	assert.False(t, ExpectClientError.Matches(500))
}

func TestRequest_CookiesAndRepeatedQuery(t *testing.T) {
	tc := TestCase{
		Method: http.MethodGet,
		Path:   "/a/{id}/b",
		Params: []Param{
			{Name: "id", In: spec.InPath, Value: "x y"},
			{Name: "session", In: spec.InCookie, Value: "abc"},
			{Name: "theme", In: spec.InCookie, Value: "dark"},
			{Name: "tag", In: spec.InQuery, Value: "1"},
			{Name: "tag", In: spec.InQuery, Value: "2"},
		},
		Follow: [][]Param{{{Name: "id", In: spec.InPath, Value: "z"}}},
	}

	reqs := tc.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/a/x%20y/b", reqs[0].Path)
	assert.Equal(t, "session=abc; theme=dark", reqs[0].Header.Get("Cookie"))
	assert.Equal(t, []string{"1", "2"}, reqs[0].Query["tag"])
	assert.Equal(t, "/a/z/b", reqs[1].Path)
	assert.Nil(t, reqs[1].Query)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "x-trace-length-3-below-minimum", slug("X-Trace length 3 below minimum"))
	assert.Equal(t, "a-b", slug("  a__b!! "))
}
