package spec

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var methodOrder = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// build constructs the InterfaceSpec from a self-checked document.
func build(source string, root *yaml.Node) (*InterfaceSpec, error) {
	r := newResolver(source, root)
	doc := deref(root)

	s := &InterfaceSpec{
		Source:     source,
		Version:    scalar(field(doc, "openapi")),
		Title:      scalar(field(field(doc, "info"), "title")),
		Components: make(map[string]*Schema),
	}

	// Components first, so operations share the memoized expansions.
	schemas := field(field(doc, "components"), "schemas")
	err := pairs(schemas, func(name string, _ *yaml.Node) error {
		ptr := child("#/components/schemas", name)
		cs, err := r.schema(&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "$ref"},
			{Kind: yaml.ScalarNode, Value: ptr},
		}}, ptr)
		if err != nil {
			return err
		}
		s.Components[name] = cs
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = pairs(field(doc, "paths"), func(path string, item *yaml.Node) error {
		at := child("#/paths", path)
		item, at, err := r.follow(item, at)
		if err != nil {
			return err
		}
		shared, err := buildParameters(r, field(item, "parameters"), child(at, "parameters"))
		if err != nil {
			return err
		}
		for _, method := range methodOrder {
			opNode := field(item, method)
			if opNode == nil {
				continue
			}
			op, err := buildOperation(r, path, method, opNode, child(at, method), shared)
			if err != nil {
				return err
			}
			s.Operations = append(s.Operations, op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := checkOperations(source, s); err != nil {
		return nil, err
	}
	return s, nil
}

func buildOperation(r *resolver, path, method string, n *yaml.Node, at string, shared []*Parameter) (*Operation, error) {
	op := &Operation{
		ID:      scalar(field(n, "operationId")),
		Method:  strings.ToUpper(method),
		Path:    path,
		Summary: scalar(field(n, "summary")),
	}
	if op.ID == "" {
		op.ID = derivedOperationID(method, path)
	}

	own, err := buildParameters(r, field(n, "parameters"), child(at, "parameters"))
	if err != nil {
		return nil, err
	}
	op.Parameters = mergeParameters(shared, own)

	if rb := field(n, "requestBody"); rb != nil {
		rb, rbAt, err := r.follow(rb, child(at, "requestBody"))
		if err != nil {
			return nil, err
		}
		err = pairs(field(rb, "content"), func(name string, mt *yaml.Node) error {
			if op.RequestBody != nil || !IsJSONMediaType(name) {
				return nil
			}
			op.RequestBody, err = r.schemaField(mt, child(child(rbAt, "content"), name), "schema")
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	err = pairs(field(n, "responses"), func(status string, rn *yaml.Node) error {
		resp, err := buildResponse(r, status, rn, child(child(at, "responses"), status))
		if err != nil {
			return err
		}
		op.Responses = append(op.Responses, resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func buildParameters(r *resolver, n *yaml.Node, at string) ([]*Parameter, error) {
	if n == nil {
		return nil, nil
	}
	if !isSequence(n) {
		return nil, loadErr(ErrCodeMalformed, r.source, at, "parameters must be a list")
	}
	var out []*Parameter
	for i, pn := range n.Content {
		pn, pAt, err := r.follow(pn, child(at, fmt.Sprint(i)))
		if err != nil {
			return nil, err
		}
		p := &Parameter{
			Name:        scalar(field(pn, "name")),
			In:          Location(scalar(field(pn, "in"))),
			Description: scalar(field(pn, "description")),
			Required:    boolField(pn, "required"),
		}
		if p.Name == "" || p.In == "" {
			return nil, loadErr(ErrCodeMalformed, r.source, pAt, "parameter requires name and in")
		}
		if p.In == InPath {
			p.Required = true
		}
		if p.Schema, err = r.schemaField(pn, pAt, "schema"); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// mergeParameters overlays operation-level parameters on path-level ones;
// a parameter is identified by name and location.
func mergeParameters(shared, own []*Parameter) []*Parameter {
	out := make([]*Parameter, 0, len(shared)+len(own))
	for _, p := range shared {
		overridden := false
		for _, o := range own {
			if o.Name == p.Name && o.In == p.In {
				overridden = true
				break
			}
		}
		if !overridden {
			out = append(out, p)
		}
	}
	return append(out, own...)
}

func buildResponse(r *resolver, status string, n *yaml.Node, at string) (*Response, error) {
	n, at, err := r.follow(n, at)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Status:      status,
		Description: scalar(field(n, "description")),
	}
	err = pairs(field(n, "content"), func(name string, mt *yaml.Node) error {
		ms, err := r.schemaField(mt, child(child(at, "content"), name), "schema")
		if err != nil {
			return err
		}
		resp.Content = append(resp.Content, &MediaType{Name: strings.ToLower(name), Schema: ms})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// derivedOperationID names operations that lack an operationId: "get_wds"
// for GET /wds, "get_documents_id" for GET /documents/{id}.
func derivedOperationID(method, path string) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(path), "_"), "_")
	if slug == "" {
		slug = "root"
	}
	return method + "_" + slug
}

// checkOperations is the domain self-check run after construction.
func checkOperations(source string, s *InterfaceSpec) error {
	if len(s.Operations) == 0 {
		return loadErr(ErrCodeSelfCheck, source, "#/paths", "document declares no operations")
	}
	for _, op := range s.Operations {
		if !hasResponseSchema(op) {
			return loadErr(ErrCodeSelfCheck, source, child(child("#/paths", op.Path), strings.ToLower(op.Method)),
				"operation %s declares no response schema", op.ID)
		}
	}
	return nil
}

func hasResponseSchema(op *Operation) bool {
	for _, resp := range op.Responses {
		for _, mt := range resp.Content {
			if mt.Schema != nil {
				return true
			}
		}
	}
	return false
}
