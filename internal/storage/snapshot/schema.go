package snapshot

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://tuamail.local/schemas/"

var (
	schemaOnce    sync.Once
	currentSchema *jsonschema.Schema
	legacySchema  *jsonschema.Schema
	schemaErr     error
)

func loadSchemas() {
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{"defs.json", "current.json", "legacy.json"} {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = fmt.Errorf("snapshot: read schema %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("snapshot: add schema %s: %w", name, err)
			return
		}
	}

	if currentSchema, schemaErr = compiler.Compile(schemaBase + "current.json"); schemaErr != nil {
		return
	}
	legacySchema, schemaErr = compiler.Compile(schemaBase + "legacy.json")
}

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(loadSchemas)
	return currentSchema, legacySchema, schemaErr
}

// parseDocument decodes data into the generic form expected by the
// validator, keeping numbers exact.
func parseDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return doc, nil
}

func validateCurrent(doc any) error {
	current, _, err := schemas()
	if err != nil {
		return err
	}
	return current.Validate(doc)
}

func validateLegacy(doc any) error {
	_, legacy, err := schemas()
	if err != nil {
		return err
	}
	return legacy.Validate(doc)
}

// ValidateShape checks a bare JSON payload against the known shapes and
// returns the first one it satisfies.
func ValidateShape(data []byte) (Shape, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return ShapeFault, err
	}
	if validateCurrent(doc) == nil {
		return ShapeCurrent, nil
	}
	if err := validateLegacy(doc); err != nil {
		return ShapeFault, err
	}
	return ShapeLegacy, nil
}
