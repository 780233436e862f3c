package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Selection is the bulk-selection payload of a scripted install.
type Selection struct {
	Steps []StepSelection `json:"steps" yaml:"steps"`
}

// StepSelection lists the groups of one step, by step name.
type StepSelection struct {
	Step   string           `json:"step"   yaml:"step"`
	Groups []GroupSelection `json:"groups" yaml:"groups"`
}

// GroupSelection names the options that must end up selected in a group.
// Options of the group that are not listed are deselected.
type GroupSelection struct {
	Group   string   `json:"group"   yaml:"group"`
	Options []string `json:"options" yaml:"options"`
}

var (
	selectionSchemaOnce sync.Once
	selectionSchema     *sjsonschema.Schema
	selectionSchemaErr  error
)

func compiledSelectionSchema() (*sjsonschema.Schema, error) {
	selectionSchemaOnce.Do(func() {
		data, err := GenerateSelectionJSONSchema()
		if err != nil {
			selectionSchemaErr = err
			return
		}
		doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			selectionSchemaErr = fmt.Errorf("unmarshal selection schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(selectionSchemaID, doc); err != nil {
			selectionSchemaErr = fmt.Errorf("add selection schema: %w", err)
			return
		}
		selectionSchema, selectionSchemaErr = c.Compile(selectionSchemaID)
	})
	return selectionSchema, selectionSchemaErr
}

// ParseSelection validates a raw JSON payload against the selection schema
// and decodes it. Shape violations are STRUCTURAL errors.
func ParseSelection(data []byte) (*Selection, error) {
	sch, err := compiledSelectionSchema()
	if err != nil {
		return nil, err
	}

	inst, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Code: ErrCodeStructural, Message: "selection is not valid JSON", Cause: err}
	}
	if err := sch.Validate(inst); err != nil {
		var ve *sjsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &Error{Code: ErrCodeStructural, Message: "selection does not match schema", Path: firstLocation(ve), Cause: err}
		}
		return nil, &Error{Code: ErrCodeStructural, Message: "selection does not match schema", Cause: err}
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, &Error{Code: ErrCodeStructural, Message: "decode selection", Cause: err}
	}
	return &sel, nil
}

// LoadSelectionFile reads and parses a JSON selection payload.
func LoadSelectionFile(path string) (*Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	return ParseSelection(data)
}

// firstLocation returns the instance location of the deepest first cause.
func firstLocation(ve *sjsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return "/" + strings.Join(ve.InstanceLocation, "/")
}
