// Package schema validates raw JSON documents against JSON Schema
// definitions declared as Go maps.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/examcore/internal/apperr"
)

// Schema names a JSON Schema definition.
type Schema struct {
	// Name identifies this schema in error messages and in the compile
	// cache. Kebab-case, e.g. "grading-rule".
	Name string

	// Description is a human-readable summary of the document shape.
	Description string

	// Definition is the JSON Schema (draft 2020-12) as a map.
	Definition map[string]any
}

// compiledCache caches compiled schemas by name.
var compiledCache sync.Map // map[string]*jsonschema.Schema

// Validate parses raw as JSON and validates it against s.
// Returns the decoded document on success. Malformed JSON and schema
// violations are reported as *apperr.ValidationError.
func (s *Schema) Validate(raw []byte) (any, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Validation(s.Name, "malformed JSON: %v", err)
	}

	compiled, err := s.compile()
	if err != nil {
		return nil, err
	}

	if err := compiled.Validate(parsed); err != nil {
		return nil, apperr.Validation(s.Name, "schema violation: %v", err)
	}
	return parsed, nil
}

// compile returns a cached compiled schema or compiles and caches it.
func (s *Schema) compile() (*jsonschema.Schema, error) {
	if cached, ok := compiledCache.Load(s.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not a Go map with typed
	// slices, so round-trip the definition through encoding/json.
	defBytes, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", s.Name, err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", s.Name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", s.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}

	actual, _ := compiledCache.LoadOrStore(s.Name, compiled)
	return actual.(*jsonschema.Schema), nil
}
