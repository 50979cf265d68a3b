package grading

import (
	"encoding/json"

	"github.com/abhisek/examcore/internal/apperr"
)

// ParseRule decodes and validates a JSON grading rule.
func ParseRule(raw []byte) (Rule, error) {
	if _, err := RuleSchema.Validate(raw); err != nil {
		return Rule{}, err
	}
	var rule Rule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return Rule{}, apperr.Validation("rule", "decode: %v", err)
	}
	if err := ValidateRule(rule); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// ParseAnswer decodes and structurally validates a JSON answer payload.
// It does not check the answer against any rule; Grade does that.
func ParseAnswer(raw []byte) (Answer, error) {
	if _, err := AnswerSchema.Validate(raw); err != nil {
		return Answer{}, err
	}
	var answer Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return Answer{}, apperr.Validation("answer", "decode: %v", err)
	}
	// "selected": [] and "pairs": {} are valid wrong answers; keep them
	// distinguishable from an omitted field.
	if answer.Kind == KindMultiSelect && answer.Selected == nil {
		answer.Selected = []string{}
	}
	if answer.Kind == KindMapping && answer.Pairs == nil {
		answer.Pairs = map[string]string{}
	}
	return answer, nil
}
