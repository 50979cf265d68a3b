package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/schema"
)

// FileSchema validates catalog files before decoding.
var FileSchema = &schema.Schema{
	Name:        "catalog-file",
	Description: "A set of published learning items",
	Definition: map[string]any{
		"$defs": grading.RuleDefs(),
		"type":  "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string", "minLength": 1},
						"domains": map[string]any{
							"type":     "array",
							"items":    map[string]any{"type": "string", "minLength": 1},
							"minItems": 1,
						},
						"difficulty": map[string]any{"type": "integer"},
						"rule":       map[string]any{"$ref": "#/$defs/rule"},
					},
					"required": []any{"id", "domains", "rule"},
				},
			},
		},
		"required": []any{"items"},
	},
}

type fileDoc struct {
	Items []Item `json:"items"`
}

// Parse decodes a JSON catalog document.
func Parse(raw []byte) (*Memory, error) {
	if _, err := FileSchema.Validate(raw); err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Validation("catalog", "decode: %v", err)
	}
	return NewMemory(doc.Items...)
}

// LoadFile reads and parses the JSON catalog at path.
func LoadFile(path string) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return m, nil
}
