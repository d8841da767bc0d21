package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &n))
	return &n
}

func TestToValue_KeepsLiteralKeys(t *testing.T) {
	n := parseNode(t, "responses:\n  200: {description: ok}\n  default: {}\nflag: true\nnum: 1.5\nnone: null\n")

	v, err := toValue(n)
	require.NoError(t, err)

	m := v.(map[string]any)
	responses := m["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
	assert.Contains(t, responses, "default")
	assert.Equal(t, true, m["flag"])
	assert.Equal(t, 1.5, m["num"])
	assert.Nil(t, m["none"])
}

func TestLookupPointer(t *testing.T) {
	root := parseNode(t, "paths:\n  /wds:\n    get:\n      tags: [a, b]\n  a~b: {x: 1}\n")

	n, ok := lookupPointer(root, "#/paths/~1wds/get/tags/1")
	require.True(t, ok)
	assert.Equal(t, "b", n.Value)

	n, ok = lookupPointer(root, "#/paths/a~0b/x")
	require.True(t, ok)
	assert.Equal(t, "1", n.Value)

	_, ok = lookupPointer(root, "#/paths/~1wds/post")
	assert.False(t, ok)
	_, ok = lookupPointer(root, "#/paths/~1wds/get/tags/9")
	assert.False(t, ok)

	n, ok = lookupPointer(root, "#")
	require.True(t, ok)
	assert.Equal(t, yaml.MappingNode, n.Kind)
}

func TestChildPointer(t *testing.T) {
	assert.Equal(t, "#/paths/~1wds~1{id}", child("#/paths", "/wds/{id}"))
	assert.Equal(t, "#/a~0b", child("#", "a~b"))
}
