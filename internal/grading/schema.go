package grading

import "github.com/abhisek/examcore/internal/schema"

// RuleDefs returns the JSON Schema definitions for grading rules, keyed for
// use under "$defs". The entry "rule" accepts any valid rule; other
// documents (such as catalog files) can embed it with {"$ref": "#/$defs/rule"}.
func RuleDefs() map[string]any {
	return map[string]any{
		"points": map[string]any{
			"type":             "number",
			"exclusiveMinimum": 0,
		},
		"selectRule": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind": map[string]any{"enum": []any{string(KindSingleSelect), string(KindMultiSelect)}},
				"correct": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string", "minLength": 1},
					"minItems": 1,
				},
				"points": map[string]any{"$ref": "#/$defs/points"},
			},
			"required": []any{"kind", "correct", "points"},
		},
		"numericRule": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind":      map[string]any{"const": string(KindNumeric)},
				"target":    map[string]any{"type": "number"},
				"tolerance": map[string]any{"type": "number", "minimum": 0},
				"points":    map[string]any{"$ref": "#/$defs/points"},
			},
			"required": []any{"kind", "target", "points"},
		},
		"mappingRule": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind": map[string]any{"const": string(KindMapping)},
				"pairs": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
					"minProperties":        1,
				},
				"points": map[string]any{"$ref": "#/$defs/points"},
			},
			"required": []any{"kind", "pairs", "points"},
		},
		"leafRule": map[string]any{
			"oneOf": []any{
				map[string]any{"$ref": "#/$defs/selectRule"},
				map[string]any{"$ref": "#/$defs/numericRule"},
				map[string]any{"$ref": "#/$defs/mappingRule"},
			},
		},
		"rule": map[string]any{
			"oneOf": []any{
				map[string]any{"$ref": "#/$defs/leafRule"},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind": map[string]any{"const": string(KindComposite)},
						"parts": map[string]any{
							"type":     "array",
							"items":    map[string]any{"$ref": "#/$defs/leafRule"},
							"minItems": 1,
						},
					},
					"required": []any{"kind", "parts"},
				},
			},
		},
	}
}

// RuleSchema validates a single grading rule document.
var RuleSchema = &schema.Schema{
	Name:        "grading-rule",
	Description: "A canonical grading rule for one item",
	Definition: map[string]any{
		"$defs": RuleDefs(),
		"$ref":  "#/$defs/rule",
	},
}

// AnswerSchema validates a submitted answer payload.
var AnswerSchema = &schema.Schema{
	Name:        "answer-payload",
	Description: "A learner's answer to one item",
	Definition: map[string]any{
		"$defs": map[string]any{
			"leafAnswer": map[string]any{
				"oneOf": []any{
					map[string]any{
						"type": "object",
						"properties": map[string]any{
							"kind":   map[string]any{"const": string(KindSingleSelect)},
							"choice": map[string]any{"type": "string", "minLength": 1},
						},
						"required": []any{"kind", "choice"},
					},
					map[string]any{
						"type": "object",
						"properties": map[string]any{
							"kind": map[string]any{"const": string(KindMultiSelect)},
							"selected": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
						},
						"required": []any{"kind", "selected"},
					},
					map[string]any{
						"type": "object",
						"properties": map[string]any{
							"kind":  map[string]any{"const": string(KindNumeric)},
							"value": map[string]any{"type": "number"},
						},
						"required": []any{"kind", "value"},
					},
					map[string]any{
						"type": "object",
						"properties": map[string]any{
							"kind": map[string]any{"const": string(KindMapping)},
							"pairs": map[string]any{
								"type":                 "object",
								"additionalProperties": map[string]any{"type": "string"},
							},
						},
						"required": []any{"kind", "pairs"},
					},
				},
			},
		},
		"oneOf": []any{
			map[string]any{"$ref": "#/$defs/leafAnswer"},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{"const": string(KindComposite)},
					"parts": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/$defs/leafAnswer"},
					},
				},
				"required": []any{"kind", "parts"},
			},
		},
	},
}
