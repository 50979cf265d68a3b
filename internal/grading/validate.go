package grading

import (
	"math"

	"github.com/abhisek/examcore/internal/apperr"
)

// ValidateRule checks that rule is well-formed and can grade answers.
// Returns *apperr.ValidationError describing the first problem found.
func ValidateRule(rule Rule) error {
	if rule.Kind == KindComposite {
		if len(rule.Parts) == 0 {
			return apperr.Validation("rule.parts", "composite rule needs at least one part")
		}
		for i, part := range rule.Parts {
			if part.Kind == KindComposite {
				return apperr.Validation("rule.parts", "part %d: composite rules cannot nest", i)
			}
			if err := validateLeaf(part); err != nil {
				return err
			}
		}
		return nil
	}
	return validateLeaf(rule)
}

func validateLeaf(rule Rule) error {
	if !rule.Kind.IsLeaf() {
		return apperr.Validation("rule.kind", "unknown kind %q", rule.Kind)
	}
	if !(rule.Points > 0) || math.IsInf(rule.Points, 0) {
		return apperr.Validation("rule.points", "must be a positive number, got %v", rule.Points)
	}
	if len(rule.Parts) > 0 {
		return apperr.Validation("rule.parts", "only composite rules have parts")
	}

	switch rule.Kind {
	case KindSingleSelect, KindMultiSelect:
		if len(rule.Correct) == 0 {
			return apperr.Validation("rule.correct", "at least one correct option is required")
		}
		seen := make(map[string]bool, len(rule.Correct))
		for _, id := range rule.Correct {
			id = normalize(id)
			if id == "" {
				return apperr.Validation("rule.correct", "option IDs must be non-empty")
			}
			if seen[id] {
				return apperr.Validation("rule.correct", "duplicate option %q", id)
			}
			seen[id] = true
		}
		if rule.Kind == KindSingleSelect && len(rule.Correct) != 1 {
			return apperr.Validation("rule.correct", "single_select needs exactly one correct option, got %d", len(rule.Correct))
		}

	case KindNumeric:
		if math.IsNaN(rule.Target) || math.IsInf(rule.Target, 0) {
			return apperr.Validation("rule.target", "must be a finite number")
		}
		if !(rule.Tolerance >= 0) || math.IsInf(rule.Tolerance, 0) {
			return apperr.Validation("rule.tolerance", "must be a finite non-negative number")
		}

	case KindMapping:
		if len(rule.Pairs) == 0 {
			return apperr.Validation("rule.pairs", "at least one key is required")
		}
		seen := make(map[string]bool, len(rule.Pairs))
		for k := range rule.Pairs {
			nk := normalize(k)
			if nk == "" {
				return apperr.Validation("rule.pairs", "keys must be non-empty")
			}
			if seen[nk] {
				return apperr.Validation("rule.pairs", "key %q is duplicated after trimming", nk)
			}
			seen[nk] = true
		}
	}
	return nil
}
