package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchBody struct {
	Rows      int                       `json:"rows"`
	Offset    int                       `json:"os"`
	Page      int                       `json:"page"`
	Total     int                       `json:"total"`
	Documents map[string]map[string]any `json:"documents"`
}

func get(t *testing.T, api *FakeAPI, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(api.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func search(t *testing.T, api *FakeAPI, query string) searchBody {
	t.Helper()
	resp, body := get(t, api, "/wds?"+query)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out searchBody
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestFakeAPI_SearchDefaults(t *testing.T) {
	api := NewFakeAPI(t)

	out := search(t, api, "")
	assert.Equal(t, 10, out.Rows)
	assert.Equal(t, 0, out.Offset)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, len(DefaultDocuments), out.Total)
	assert.Len(t, out.Documents, 10)

	for key, doc := range out.Documents {
		assert.Equal(t, "D"+doc["id"].(string), key)
	}
}

func TestFakeAPI_Filters(t *testing.T) {
	api := NewFakeAPI(t)

	out := search(t, api, "count_exact=Brazil&rows=100")
	require.NotEmpty(t, out.Documents)
	for _, doc := range out.Documents {
		assert.Equal(t, "Brazil", doc["count"])
	}

	out = search(t, api, "lang_exact=Spanish&rows=100")
	assert.Equal(t, 2, out.Total)

	out = search(t, api, "strdate=2022-01-01&enddate=2022-12-31&rows=100")
	require.NotEmpty(t, out.Documents)
	for _, doc := range out.Documents {
		assert.True(t, strings.HasPrefix(doc["docdt"].(string), "2022-"))
	}
}

func TestFakeAPI_Pagination(t *testing.T) {
	api := NewFakeAPI(t)

	first := search(t, api, "rows=5&os=0")
	second := search(t, api, "rows=5&os=5")

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 2, second.Page)
	for key := range first.Documents {
		assert.NotContains(t, second.Documents, key)
	}
}

func TestFakeAPI_FieldSelection(t *testing.T) {
	api := NewFakeAPI(t)

	out := search(t, api, "fl=title&rows=3")
	for _, doc := range out.Documents {
		assert.ElementsMatch(t, []string{"id", "title"}, keys(doc))
	}
}

func TestFakeAPI_XML(t *testing.T) {
	api := NewFakeAPI(t)

	resp, body := get(t, api, "/wds?format=xml&rows=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.Contains(t, string(body), "<documents total=")
}

func TestFakeAPI_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		opts   []FakeOption
		status int
	}{
		{"client error", nil, http.StatusBadRequest},
		{"server error", []FakeOption{WithServerErrors()}, http.StatusInternalServerError},
		{"lenient", []FakeOption{WithLenientErrors()}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := NewFakeAPI(t, tt.opts...)
			for _, q := range []string{"format=csv", "rows=abc", "rows=1000", "os=-1", "strdate=2023-12-31&enddate=2020-01-01"} {
				resp, _ := get(t, api, "/wds?"+q)
				assert.Equal(t, tt.status, resp.StatusCode, q)
			}
		})
	}
}

func TestFakeAPI_Health(t *testing.T) {
	resp, _ := get(t, NewFakeAPI(t), "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, NewFakeAPI(t, WithoutHealth()), "/health")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFakeAPI_Faults(t *testing.T) {
	api := NewFakeAPI(t)
	api.SetFault("/wds", Fault{StatusCode: http.StatusServiceUnavailable})

	resp, body := get(t, api, "/wds")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "injected fault")

	api.SetFault("/wds", Fault{})
	resp, _ = get(t, api, "/wds")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, api.Hits("/wds"))
}

func TestFakeAPI_DuplicateIDs(t *testing.T) {
	api := NewFakeAPI(t, WithDuplicateIDs())

	out := search(t, api, "rows=3")
	ids := make(map[string]bool)
	for _, doc := range out.Documents {
		ids[doc["id"].(string)] = true
	}
	assert.Len(t, out.Documents, 3)
	assert.Len(t, ids, 1)
}

func TestWriteSpec(t *testing.T) {
	path := WriteSpec(t, "wds.yaml")
	assert.FileExists(t, path)
	assert.Contains(t, string(SpecBytes(t, "wds.yaml")), "openapi: 3.0.3")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
