package spec

import (
	"mime"
	"strconv"
	"strings"
)

// InterfaceSpec is the parsed description document. It is built once per run
// and read-only afterwards.
type InterfaceSpec struct {
	Source  string
	Version string
	Title   string

	// Operations in document order: paths as declared, methods in
	// get/put/post/delete/options/head/patch/trace order.
	Operations []*Operation

	// Components holds the resolved component schemas by name.
	Components map[string]*Schema
}

// Operation looks up an operation by method and path template.
func (s *InterfaceSpec) Operation(method, path string) *Operation {
	for _, op := range s.Operations {
		if strings.EqualFold(op.Method, method) && op.Path == path {
			return op
		}
	}
	return nil
}

// OperationByID looks up an operation by its operationId.
func (s *InterfaceSpec) OperationByID(id string) *Operation {
	for _, op := range s.Operations {
		if op.ID == id {
			return op
		}
	}
	return nil
}

// Operation is one method on one path.
type Operation struct {
	ID          string
	Method      string // upper case
	Path        string
	Summary     string
	Parameters  []*Parameter
	RequestBody *Schema
	Responses   []*Response
}

// Parameter looks up a parameter by name.
func (o *Operation) Parameter(name string) *Parameter {
	for _, p := range o.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Response returns the declared response for a status code: the exact
// code first, then the "4XX" style range, then "default". Nil when the
// document declares nothing that covers the status.
func (o *Operation) Response(status int) *Response {
	code := strconv.Itoa(status)
	for _, r := range o.Responses {
		if r.Status == code {
			return r
		}
	}
	if len(code) == 3 {
		rng := code[:1] + "XX"
		for _, r := range o.Responses {
			if strings.EqualFold(r.Status, rng) {
				return r
			}
		}
	}
	for _, r := range o.Responses {
		if r.Status == "default" {
			return r
		}
	}
	return nil
}

// Response is a declared response for one status code.
type Response struct {
	Status      string
	Description string
	Content     []*MediaType
}

// HasContent reports whether the response declares any body.
func (r *Response) HasContent() bool {
	return len(r.Content) > 0
}

// MediaType finds the declared media type matching a Content-Type header.
// Exact matches win over "type/*" and "*/*" wildcards. A JSON-family header
// ("application/problem+json") falls back to any declared JSON media type.
func (r *Response) MediaType(contentType string) *MediaType {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	for _, m := range r.Content {
		if strings.EqualFold(m.Name, mt) {
			return m
		}
	}
	if i := strings.Index(mt, "/"); i > 0 {
		wildcard := mt[:i] + "/*"
		for _, m := range r.Content {
			if strings.EqualFold(m.Name, wildcard) {
				return m
			}
		}
	}
	for _, m := range r.Content {
		if m.Name == "*/*" {
			return m
		}
	}
	if IsJSONMediaType(mt) {
		for _, m := range r.Content {
			if IsJSONMediaType(m.Name) {
				return m
			}
		}
	}
	return nil
}

// MediaType is one entry of a response's content map.
type MediaType struct {
	Name   string
	Schema *Schema // nil when the media type declares no schema
}

// IsJSONMediaType reports whether mt is application/json or a +json suffix type.
func IsJSONMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// IsXMLMediaType reports whether mt is in the XML family.
func IsXMLMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml")
}

// Location is where a parameter is carried in the request.
type Location string

const (
	InQuery  Location = "query"
	InPath   Location = "path"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// Parameter is a declared request parameter. Immutable once loaded.
type Parameter struct {
	Name        string
	In          Location
	Description string
	Required    bool
	Schema      *Schema
}

// Constrained reports whether the parameter declares any constraint the
// boundary strategy can probe.
func (p *Parameter) Constrained() bool {
	s := p.Schema
	if s == nil {
		return false
	}
	return len(s.Enum) > 0 || s.Minimum != nil || s.Maximum != nil ||
		s.MinLength != nil || s.MaxLength != nil ||
		s.Format == "date" || s.Format == "date-time"
}

// Schema is a resolved schema node.
//
// A node with Recursive set is a back-reference created when resolution
// revisited a pointer already being expanded; Target points at the schema
// the pointer resolved to. Validation follows Target lazily, which keeps the
// model finite while still describing recursive documents.
type Schema struct {
	// Types lists the accepted JSON types. OpenAPI 3.0 "nullable: true"
	// appends "null". Empty means any type.
	Types []string

	Format      string
	Pattern     string
	Description string
	Enum        []any
	Default     any
	Example     any

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64

	MinLength *int
	MaxLength *int

	Items       *Schema
	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	Properties    map[string]*Schema
	PropertyOrder []string
	Required      []string

	// AdditionalProperties constrains undeclared properties; NoAdditional
	// forbids them ("additionalProperties: false").
	AdditionalProperties *Schema
	NoAdditional         bool
	MinProperties        *int
	MaxProperties        *int

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema

	// Ref is the pointer this schema was resolved from, if any.
	Ref string

	Recursive bool
	Target    *Schema
}

// Resolve follows a back-reference to the schema it names. Non-recursive
// schemas resolve to themselves.
func (s *Schema) Resolve() *Schema {
	seen := 0
	for s != nil && s.Recursive {
		if s.Target == nil || seen > 64 {
			return nil
		}
		s = s.Target
		seen++
	}
	return s
}

// Name returns the last segment of Ref ("Document" for
// "#/components/schemas/Document"), or "" for inline schemas.
func (s *Schema) Name() string {
	if s.Ref == "" {
		return ""
	}
	if i := strings.LastIndex(s.Ref, "/"); i >= 0 {
		return unescapePointerToken(s.Ref[i+1:])
	}
	return s.Ref
}

// HasType reports whether t is one of the schema's declared types.
func (s *Schema) HasType(t string) bool {
	for _, typ := range s.Types {
		if typ == t {
			return true
		}
	}
	return false
}

// PrimaryType returns the first non-null declared type, or "".
func (s *Schema) PrimaryType() string {
	for _, typ := range s.Types {
		if typ != "null" {
			return typ
		}
	}
	return ""
}
