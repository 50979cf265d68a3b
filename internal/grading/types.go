// Package grading validates submitted answers against canonical grading
// rules. Every function in this package is pure and safe for concurrent use.
package grading

// Kind discriminates the shape of a Rule and of the Answer graded against it.
type Kind string

const (
	KindSingleSelect Kind = "single_select" // exactly one correct option
	KindMultiSelect  Kind = "multi_select"  // "select all that apply"
	KindNumeric      Kind = "numeric"       // value within an absolute tolerance
	KindMapping      Kind = "mapping"       // key -> value pairs, scored per key
	KindComposite    Kind = "composite"     // several sub-questions under one item
)

// IsLeaf reports whether k is one of the four gradable answer shapes.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindSingleSelect, KindMultiSelect, KindNumeric, KindMapping:
		return true
	}
	return false
}

// Rule is the canonical grading rule for an item or sub-question.
// Which fields are meaningful depends on Kind.
type Rule struct {
	Kind Kind `json:"kind"`

	// Correct holds the canonical option IDs for single_select and
	// multi_select. single_select has exactly one entry.
	Correct []string `json:"correct,omitempty"`

	// Target and Tolerance apply to numeric. Tolerance is absolute and
	// inclusive at the boundary.
	Target    float64 `json:"target"`
	Tolerance float64 `json:"tolerance"`

	// Pairs is the canonical key -> value dictionary for mapping.
	Pairs map[string]string `json:"pairs,omitempty"`

	// Points is the value of a fully correct leaf answer. Ignored on
	// composite rules, whose value is the sum of their parts.
	Points float64 `json:"points,omitempty"`

	// Parts holds the leaf sub-rules of a composite rule, in display order.
	Parts []Rule `json:"parts,omitempty"`
}

// Answer is a learner's submitted payload. Its Kind must equal the Kind of
// the rule it is graded against.
type Answer struct {
	Kind Kind `json:"kind"`

	// Choice is the selected option ID for single_select.
	Choice string `json:"choice,omitempty"`

	// Selected holds the selected option IDs for multi_select. A nil slice
	// means the field was omitted; an empty slice is a valid (wrong) answer.
	Selected []string `json:"selected,omitempty"`

	// Value is the submitted number for numeric. Required.
	Value *float64 `json:"value,omitempty"`

	// Pairs is the submitted key -> value dictionary for mapping. A nil map
	// means the field was omitted.
	Pairs map[string]string `json:"pairs,omitempty"`

	// Parts holds one answer per composite sub-rule, in the same order.
	Parts []Answer `json:"parts,omitempty"`
}

// Result is the outcome of grading one answer.
type Result struct {
	// Score is PointsEarned / PointsPossible, in [0, 1].
	Score          float64     `json:"score"`
	PointsEarned   float64     `json:"points_earned"`
	PointsPossible float64     `json:"points_possible"`
	Parts          []SubResult `json:"per_sub_question"`
}

// Correct reports whether the answer earned full credit.
func (r Result) Correct() bool {
	return r.Score == 1
}

// SubResult is the per-sub-question detail of a Result. Leaf rules produce
// a single SubResult with Index 0.
type SubResult struct {
	Index          int     `json:"index"`
	Kind           Kind    `json:"kind"`
	Score          float64 `json:"score"`
	PointsEarned   float64 `json:"points_earned"`
	PointsPossible float64 `json:"points_possible"`
}
