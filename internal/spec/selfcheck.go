package spec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed meta.json
var metaSchemaJSON []byte

const metaSchemaURL = "apiparity-openapi-meta.json"

var (
	metaOnce   sync.Once
	metaSchema *sjsonschema.Schema
	metaErr    error
)

func compiledMetaSchema() (*sjsonschema.Schema, error) {
	metaOnce.Do(func() {
		doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(metaSchemaJSON))
		if err != nil {
			metaErr = fmt.Errorf("parse meta-schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(metaSchemaURL, doc); err != nil {
			metaErr = fmt.Errorf("add meta-schema: %w", err)
			return
		}
		metaSchema, metaErr = c.Compile(metaSchemaURL)
	})
	return metaSchema, metaErr
}

// selfCheck validates the raw document structure before model construction.
func selfCheck(source string, root *yaml.Node) error {
	sch, err := compiledMetaSchema()
	if err != nil {
		return &SpecLoadError{Code: ErrCodeSelfCheck, Source: source, Message: "meta-schema unavailable", Err: err}
	}

	raw, err := toValue(root)
	if err != nil {
		return &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "document is not JSON-compatible", Err: err}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "document is not JSON-compatible", Err: err}
	}
	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &SpecLoadError{Code: ErrCodeMalformed, Source: source, Message: "document is not JSON-compatible", Err: err}
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return &SpecLoadError{Code: ErrCodeSelfCheck, Source: source, Message: "structural check failed", Err: err}
	}

	causes := flattenValidationErrors(ve)
	first := causes[0]
	msgs := make([]string, 0, len(causes))
	for _, c := range causes {
		msgs = append(msgs, fmt.Sprintf("%s: %v", instancePointer(c.InstanceLocation), c.ErrorKind))
	}
	return loadErr(ErrCodeSelfCheck, source, instancePointer(first.InstanceLocation),
		"structural check failed: %s", strings.Join(msgs, "; "))
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

func instancePointer(loc []string) string {
	ptr := "#"
	for _, tok := range loc {
		ptr = child(ptr, tok)
	}
	return ptr
}
