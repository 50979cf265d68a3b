package grading

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/examcore/internal/apperr"
)

// Grade scores answer against rule.
//
// A shape mismatch or a missing required field is reported as
// *apperr.ValidationError and is never coerced into a zero score, so callers
// can tell a wrong answer from a malformed request.
//
// Comparison rules:
// - Option IDs, mapping keys and mapping values are compared after trimming
//   surrounding whitespace; otherwise the comparison is exact
// - multi_select is all-or-nothing: subsets and supersets score 0
// - numeric tolerance is inclusive, with a relative slack of 1e-12 for
//   decimal rounding
// - mapping keys that collide after trimming are a validation error
// - mapping scores correct keys / canonical keys; missing keys are wrong
func Grade(rule Rule, answer Answer) (Result, error) {
	if rule.Kind == KindComposite {
		return gradeComposite(rule, answer)
	}

	sub, err := gradeLeaf(0, rule, answer, "answer")
	if err != nil {
		return Result{}, err
	}
	return Result{
		Score:          sub.Score,
		PointsEarned:   sub.PointsEarned,
		PointsPossible: sub.PointsPossible,
		Parts:          []SubResult{sub},
	}, nil
}

func gradeComposite(rule Rule, answer Answer) (Result, error) {
	if answer.Kind != KindComposite {
		return Result{}, apperr.Validation("answer", "expected %s answer, got %q", KindComposite, answer.Kind)
	}
	if len(rule.Parts) == 0 {
		return Result{}, apperr.Validation("rule", "composite rule has no parts")
	}
	if len(answer.Parts) != len(rule.Parts) {
		return Result{}, apperr.Validation("answer", "expected %d parts, got %d", len(rule.Parts), len(answer.Parts))
	}

	result := Result{Parts: make([]SubResult, 0, len(rule.Parts))}
	for i, part := range rule.Parts {
		if part.Kind == KindComposite {
			return Result{}, apperr.Validation("rule", "part %d: composite rules cannot nest", i)
		}
		sub, err := gradeLeaf(i, part, answer.Parts[i], partField(i))
		if err != nil {
			return Result{}, err
		}
		result.PointsEarned += sub.PointsEarned
		result.PointsPossible += sub.PointsPossible
		result.Parts = append(result.Parts, sub)
	}

	if result.PointsPossible > 0 {
		result.Score = result.PointsEarned / result.PointsPossible
	}
	return result, nil
}

// gradeLeaf scores one sub-question. field names the answer location for
// validation messages.
func gradeLeaf(index int, rule Rule, answer Answer, field string) (SubResult, error) {
	if !rule.Kind.IsLeaf() {
		return SubResult{}, apperr.Validation("rule", "unknown kind %q", rule.Kind)
	}
	if answer.Kind != rule.Kind {
		return SubResult{}, apperr.Validation(field, "expected %s answer, got %q", rule.Kind, answer.Kind)
	}
	if rule.Points <= 0 {
		return SubResult{}, apperr.Validation("rule", "points must be positive, got %v", rule.Points)
	}

	var (
		score float64
		err   error
	)
	switch rule.Kind {
	case KindSingleSelect:
		score, err = scoreSingleSelect(rule, answer, field)
	case KindMultiSelect:
		score, err = scoreMultiSelect(rule, answer, field)
	case KindNumeric:
		score, err = scoreNumeric(rule, answer, field)
	case KindMapping:
		score, err = scoreMapping(rule, answer, field)
	}
	if err != nil {
		return SubResult{}, err
	}

	return SubResult{
		Index:          index,
		Kind:           rule.Kind,
		Score:          score,
		PointsEarned:   score * rule.Points,
		PointsPossible: rule.Points,
	}, nil
}

func scoreSingleSelect(rule Rule, answer Answer, field string) (float64, error) {
	if len(rule.Correct) != 1 {
		return 0, apperr.Validation("rule", "single_select needs exactly one correct option, got %d", len(rule.Correct))
	}
	choice := normalize(answer.Choice)
	if choice == "" {
		return 0, apperr.Validation(field, "choice is required")
	}
	if choice == normalize(rule.Correct[0]) {
		return 1, nil
	}
	return 0, nil
}

func scoreMultiSelect(rule Rule, answer Answer, field string) (float64, error) {
	if len(rule.Correct) == 0 {
		return 0, apperr.Validation("rule", "multi_select has no correct options")
	}
	if answer.Selected == nil {
		return 0, apperr.Validation(field, "selected is required")
	}

	want := toSet(rule.Correct)
	got := toSet(answer.Selected)
	if len(got) != len(want) {
		return 0, nil
	}
	for id := range got {
		if !want[id] {
			return 0, nil
		}
	}
	return 1, nil
}

func scoreNumeric(rule Rule, answer Answer, field string) (float64, error) {
	if answer.Value == nil {
		return 0, apperr.Validation(field, "value is required")
	}
	v := *answer.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation(field, "value must be a finite number")
	}
	if rule.Tolerance < 0 || math.IsNaN(rule.Tolerance) {
		return 0, apperr.Validation("rule", "tolerance must be non-negative")
	}
	if withinTolerance(v, rule.Target, rule.Tolerance) {
		return 1, nil
	}
	return 0, nil
}

// toleranceSlack absorbs binary rounding of decimal inputs so a value on the
// tolerance boundary is accepted.
const toleranceSlack = 1e-12

func withinTolerance(v, target, tol float64) bool {
	return math.Abs(v-target) <= tol+toleranceSlack*math.Max(1, math.Abs(target))
}

func scoreMapping(rule Rule, answer Answer, field string) (float64, error) {
	if len(rule.Pairs) == 0 {
		return 0, apperr.Validation("rule", "mapping has no keys")
	}
	if answer.Pairs == nil {
		return 0, apperr.Validation(field, "pairs is required")
	}

	submitted := make(map[string]string, len(answer.Pairs))
	for k, v := range answer.Pairs {
		nk := normalize(k)
		if _, dup := submitted[nk]; dup {
			return 0, apperr.Validation(field, "key %q is duplicated after trimming", nk)
		}
		submitted[nk] = normalize(v)
	}

	matched := 0
	for k, v := range rule.Pairs {
		got, ok := submitted[normalize(k)]
		if ok && got == normalize(v) {
			matched++
		}
	}
	return float64(matched) / float64(len(rule.Pairs)), nil
}

// normalize trims surrounding whitespace from an identifier or value.
func normalize(s string) string {
	return strings.TrimSpace(s)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[normalize(id)] = true
	}
	return set
}

func partField(i int) string {
	return fmt.Sprintf("answer.parts[%d]", i)
}
