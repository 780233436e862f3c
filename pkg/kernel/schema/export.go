package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const (
	moduleSchemaID    = "https://github.com/ormasoftchile/fomod/schemas/module-v0.json"
	selectionSchemaID = "https://github.com/ormasoftchile/fomod/schemas/selection-v0.json"
)

// GenerateModuleJSONSchema produces a JSON Schema Draft 2020-12 document
// from the Module Go types.
func GenerateModuleJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Module{})
	s.ID = moduleSchemaID
	s.Title = "Install module"
	s.Description = "Schema for install module documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal module schema: %w", err)
	}
	return data, nil
}

// GenerateSelectionJSONSchema produces the JSON Schema of the bulk-selection payload.
func GenerateSelectionJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Selection{})
	s.ID = selectionSchemaID
	s.Title = "Bulk selection"
	s.Description = "Option selections replayed by a non-interactive install"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal selection schema: %w", err)
	}
	return data, nil
}
