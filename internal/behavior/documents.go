package behavior

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/apiparity/internal/config"
)

// Layout describes where documents live in a search response.
type Layout struct {
	DocumentsField string
	IDField        string
	TotalField     string
	IgnoreKeys     []string
	Ordered        bool
}

// LayoutFrom builds a Layout from behavioral configuration.
func LayoutFrom(b config.Behavioral) Layout {
	return Layout{
		DocumentsField: b.DocumentsField,
		IDField:        b.IDField,
		TotalField:     b.TotalField,
		IgnoreKeys:     b.IgnoreKeys,
		Ordered:        b.Ordered,
	}
}

// Document is one entry of a result set. Key is the object key it was
// listed under, or "" when the result set is an array.
type Document struct {
	Index  int
	Key    string
	Fields map[string]any
}

// ID returns the document's identifier rendered as a string, or "".
func (d Document) ID(layout Layout) string {
	return scalarString(d.Fields[layout.IDField])
}

// Documents extracts the result set from a decoded response body. The
// documents field may be an array or an object keyed by identifier;
// object keys listed in IgnoreKeys (such as "facets") are skipped. Object
// entries are returned in key order.
func Documents(body any, layout Layout) ([]Document, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response body is %s, want object", typeName(body))
	}
	raw, ok := obj[layout.DocumentsField]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", layout.DocumentsField)
	}

	switch docs := raw.(type) {
	case []any:
		out := make([]Document, 0, len(docs))
		for i, d := range docs {
			m, ok := d.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is %s, want object", layout.DocumentsField, i, typeName(d))
			}
			out = append(out, Document{Index: i, Fields: m})
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(docs))
		for k := range docs {
			if !slices.Contains(layout.IgnoreKeys, k) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		out := make([]Document, 0, len(keys))
		for i, k := range keys {
			m, ok := docs[k].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%q] is %s, want object", layout.DocumentsField, k, typeName(docs[k]))
			}
			out = append(out, Document{Index: i, Key: k, Fields: m})
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%q is %s, want object or array", layout.DocumentsField, typeName(raw))
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// integer returns v as an int64 when it is an integral JSON number.
func integer(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// plain converts json.Number leaves into int64 or float64 so expression
// programs can compare them numerically.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	}
	return v
}
