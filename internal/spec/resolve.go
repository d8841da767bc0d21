package spec

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// resolver expands schema nodes and their "$ref" references.
//
// Invariants:
//   - stack holds the pointers whose expansion is in progress
//   - done holds fully expanded pointers; a pointer expands at most once
//   - a reference to a pointer on the stack yields a back-reference node,
//     recorded in pending until the pointer finishes and Target is bound
type resolver struct {
	source  string
	root    *yaml.Node
	done    map[string]*Schema
	stack   []string
	pending map[string][]*Schema
}

func newResolver(source string, root *yaml.Node) *resolver {
	return &resolver{
		source:  source,
		root:    root,
		done:    make(map[string]*Schema),
		pending: make(map[string][]*Schema),
	}
}

// refOf returns the "$ref" value of a node, if it has one.
func refOf(n *yaml.Node) (string, bool) {
	ref := field(n, "$ref")
	if ref == nil {
		return "", false
	}
	return scalar(ref), true
}

// follow resolves a chain of non-schema references (parameters, responses)
// to the node it finally names. Chains longer than the document are cycles.
func (r *resolver) follow(n *yaml.Node, at string) (*yaml.Node, string, error) {
	for hops := 0; ; hops++ {
		ref, ok := refOf(n)
		if !ok {
			return n, at, nil
		}
		if hops > 32 {
			return nil, at, loadErr(ErrCodeInvalidRef, r.source, at, "reference chain through %s does not terminate", ref)
		}
		target, err := r.lookup(ref, at)
		if err != nil {
			return nil, at, err
		}
		n, at = target, ref
	}
}

func (r *resolver) lookup(ref, at string) (*yaml.Node, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, loadErr(ErrCodeInvalidRef, r.source, at, "external reference %q is not supported", ref)
	}
	target, ok := lookupPointer(r.root, ref)
	if !ok {
		return nil, loadErr(ErrCodeMissingRef, r.source, at, "reference target %s not found", ref)
	}
	return target, nil
}

// schema resolves the schema node n located at pointer at.
func (r *resolver) schema(n *yaml.Node, at string) (*Schema, error) {
	if n == nil {
		return nil, nil
	}
	if !isMapping(n) {
		// OpenAPI 3.1 allows boolean schemas.
		if v := scalar(n); v == "true" {
			return &Schema{}, nil
		}
		return nil, loadErr(ErrCodeMalformed, r.source, at, "schema must be a mapping")
	}

	ref, ok := refOf(n)
	if !ok {
		return r.parseSchema(n, at)
	}

	if s, ok := r.done[ref]; ok {
		return s, nil
	}
	if slices.Contains(r.stack, ref) {
		back := &Schema{Ref: ref, Recursive: true}
		r.pending[ref] = append(r.pending[ref], back)
		return back, nil
	}

	target, err := r.lookup(ref, at)
	if err != nil {
		return nil, err
	}

	r.stack = append(r.stack, ref)
	s, err := r.schema(target, ref)
	r.stack = r.stack[:len(r.stack)-1]
	if err != nil {
		return nil, err
	}
	if s.Recursive {
		return nil, loadErr(ErrCodeInvalidRef, r.source, at, "reference cycle %s has no schema", ref)
	}

	if s.Ref == "" {
		s.Ref = ref
	}
	r.done[ref] = s
	for _, back := range r.pending[ref] {
		back.Target = s
	}
	delete(r.pending, ref)
	return s, nil
}

func (r *resolver) schemaField(n *yaml.Node, at, key string) (*Schema, error) {
	v := field(n, key)
	if v == nil {
		return nil, nil
	}
	return r.schema(v, child(at, key))
}

func (r *resolver) schemaList(n *yaml.Node, at, key string) ([]*Schema, error) {
	v := field(n, key)
	if v == nil {
		return nil, nil
	}
	if !isSequence(v) {
		return nil, loadErr(ErrCodeMalformed, r.source, child(at, key), "%s must be a list", key)
	}
	out := make([]*Schema, 0, len(v.Content))
	for i, c := range v.Content {
		s, err := r.schema(c, child(at, fmt.Sprint(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// parseSchema builds a Schema from an inline (non-$ref) mapping node.
func (r *resolver) parseSchema(n *yaml.Node, at string) (*Schema, error) {
	s := &Schema{
		Format:      scalar(field(n, "format")),
		Pattern:     scalar(field(n, "pattern")),
		Description: scalar(field(n, "description")),
		UniqueItems: boolField(n, "uniqueItems"),
	}

	malformed := func(err error) error {
		return &SpecLoadError{Code: ErrCodeMalformed, Source: r.source, Pointer: at, Message: "invalid schema", Err: err}
	}

	// type: "string" | ["string", "null"]
	if t := field(n, "type"); t != nil {
		if isSequence(t) {
			for _, c := range t.Content {
				s.Types = append(s.Types, scalar(c))
			}
		} else {
			s.Types = []string{scalar(t)}
		}
	}
	if boolField(n, "nullable") && len(s.Types) > 0 && !s.HasType("null") {
		s.Types = append(s.Types, "null")
	}

	if e := field(n, "enum"); e != nil {
		if !isSequence(e) {
			return nil, loadErr(ErrCodeMalformed, r.source, child(at, "enum"), "enum must be a list")
		}
		for _, c := range e.Content {
			v, err := toValue(c)
			if err != nil {
				return nil, malformed(err)
			}
			s.Enum = append(s.Enum, v)
		}
	}
	for key, dst := range map[string]*any{"default": &s.Default, "example": &s.Example} {
		if v := field(n, key); v != nil {
			val, err := toValue(v)
			if err != nil {
				return nil, malformed(err)
			}
			*dst = val
		}
	}

	var err error
	if s.Minimum, err = floatField(n, "minimum"); err != nil {
		return nil, malformed(err)
	}
	if s.Maximum, err = floatField(n, "maximum"); err != nil {
		return nil, malformed(err)
	}
	if s.MultipleOf, err = floatField(n, "multipleOf"); err != nil {
		return nil, malformed(err)
	}
	// exclusiveMinimum is a boolean modifier in 3.0 and a number in 3.1.
	if ex := field(n, "exclusiveMinimum"); ex != nil {
		if v := scalar(ex); v == "true" || v == "false" {
			s.ExclusiveMinimum = v == "true"
		} else if s.Minimum, err = floatField(n, "exclusiveMinimum"); err != nil {
			return nil, malformed(err)
		} else {
			s.ExclusiveMinimum = true
		}
	}
	if ex := field(n, "exclusiveMaximum"); ex != nil {
		if v := scalar(ex); v == "true" || v == "false" {
			s.ExclusiveMaximum = v == "true"
		} else if s.Maximum, err = floatField(n, "exclusiveMaximum"); err != nil {
			return nil, malformed(err)
		} else {
			s.ExclusiveMaximum = true
		}
	}
	for key, dst := range map[string]**int{
		"minLength":     &s.MinLength,
		"maxLength":     &s.MaxLength,
		"minItems":      &s.MinItems,
		"maxItems":      &s.MaxItems,
		"minProperties": &s.MinProperties,
		"maxProperties": &s.MaxProperties,
	} {
		if *dst, err = intField(n, key); err != nil {
			return nil, malformed(err)
		}
	}

	if s.Items, err = r.schemaField(n, at, "items"); err != nil {
		return nil, err
	}

	if props := field(n, "properties"); props != nil {
		if !isMapping(props) {
			return nil, loadErr(ErrCodeMalformed, r.source, child(at, "properties"), "properties must be a mapping")
		}
		s.Properties = make(map[string]*Schema)
		err := pairs(props, func(name string, v *yaml.Node) error {
			ps, err := r.schema(v, child(child(at, "properties"), name))
			if err != nil {
				return err
			}
			s.Properties[name] = ps
			s.PropertyOrder = append(s.PropertyOrder, name)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if req := field(n, "required"); req != nil {
		if !isSequence(req) {
			return nil, loadErr(ErrCodeMalformed, r.source, child(at, "required"), "required must be a list")
		}
		for _, c := range req.Content {
			s.Required = append(s.Required, scalar(c))
		}
	}

	if ap := field(n, "additionalProperties"); ap != nil {
		switch scalar(ap) {
		case "false":
			s.NoAdditional = true
		case "true":
		default:
			if s.AdditionalProperties, err = r.schema(ap, child(at, "additionalProperties")); err != nil {
				return nil, err
			}
		}
	}

	if s.AllOf, err = r.schemaList(n, at, "allOf"); err != nil {
		return nil, err
	}
	if s.AnyOf, err = r.schemaList(n, at, "anyOf"); err != nil {
		return nil, err
	}
	if s.OneOf, err = r.schemaList(n, at, "oneOf"); err != nil {
		return nil, err
	}

	return s, nil
}
