package spec

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// deref unwraps document and alias nodes.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// field returns the value node for key in a mapping, or nil.
func field(n *yaml.Node, key string) *yaml.Node {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return deref(n.Content[i+1])
		}
	}
	return nil
}

// pairs calls fn for each key/value pair of a mapping, in document order.
func pairs(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, deref(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

func isMapping(n *yaml.Node) bool {
	n = deref(n)
	return n != nil && n.Kind == yaml.MappingNode
}

func isSequence(n *yaml.Node) bool {
	n = deref(n)
	return n != nil && n.Kind == yaml.SequenceNode
}

func scalar(n *yaml.Node) string {
	n = deref(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func boolField(n *yaml.Node, key string) bool {
	v := field(n, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return false
	}
	b, err := strconv.ParseBool(v.Value)
	return err == nil && b
}

func floatField(n *yaml.Node, key string) (*float64, error) {
	v := field(n, key)
	if v == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(scalar(v), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: expected number, got %q", key, scalar(v))
	}
	return &f, nil
}

func intField(n *yaml.Node, key string) (*int, error) {
	v := field(n, key)
	if v == nil {
		return nil, nil
	}
	i, err := strconv.Atoi(scalar(v))
	if err != nil {
		return nil, fmt.Errorf("%s: expected integer, got %q", key, scalar(v))
	}
	return &i, nil
}

// toValue converts a YAML node into plain JSON-compatible Go values:
// map[string]any, []any, string, bool, int, float64 and nil. Mapping keys
// keep their literal text, so "200:" becomes the key "200".
func toValue(n *yaml.Node) (any, error) {
	n = deref(n)
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := toValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := toValue(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool", "!!int", "!!float":
			var v any
			if err := n.Decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		default:
			return n.Value, nil
		}
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}

// lookupPointer resolves an internal JSON pointer ("#/components/schemas/X")
// against the document root.
func lookupPointer(root *yaml.Node, ptr string) (*yaml.Node, bool) {
	if ptr == "#" {
		return deref(root), true
	}
	n := deref(root)
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "#/"), "/") {
		tok = unescapePointerToken(tok)
		switch {
		case isMapping(n):
			n = field(n, tok)
		case isSequence(n):
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(n.Content) {
				return nil, false
			}
			n = deref(n.Content[i])
		default:
			return nil, false
		}
		if n == nil {
			return nil, false
		}
	}
	return n, true
}

func escapePointerToken(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~", "~0"), "/", "~1")
}

func unescapePointerToken(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}

// child appends an escaped token to a pointer.
func child(ptr, tok string) string {
	return ptr + "/" + escapePointerToken(tok)
}
