package report

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the report document schema.
const SchemaID = "https://github.com/roach88/apiparity/schemas/report-v1.json"

// Schema produces a JSON Schema Draft 2020-12 document describing the JSON
// report, so CI tooling can validate what it gates on.
func Schema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Document{})
	s.ID = SchemaID
	s.Title = "apiparity report v1"
	s.Description = "Machine-readable result of one or more apiparity suite runs"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
