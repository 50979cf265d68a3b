package grading

import (
	"testing"

	"github.com/abhisek/examcore/internal/apperr"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
	}{
		{"single select", `{"kind":"single_select","correct":["b"],"points":1}`, KindSingleSelect},
		{"numeric", `{"kind":"numeric","target":42.0,"tolerance":0.5,"points":2}`, KindNumeric},
		{"mapping", `{"kind":"mapping","pairs":{"a":"1","b":"2"},"points":1}`, KindMapping},
		{"composite", `{"kind":"composite","parts":[
			{"kind":"multi_select","correct":["a","c"],"points":1},
			{"kind":"numeric","target":3,"points":1}
		]}`, KindComposite},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := ParseRule([]byte(tc.raw))
			if err != nil {
				t.Fatalf("ParseRule() error: %v", err)
			}
			if rule.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", rule.Kind, tc.kind)
			}
		})
	}
}

func TestParseRule_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed JSON", `{"kind":`},
		{"unknown kind", `{"kind":"essay","points":1}`},
		{"missing points", `{"kind":"single_select","correct":["a"]}`},
		{"zero points", `{"kind":"single_select","correct":["a"],"points":0}`},
		{"negative tolerance", `{"kind":"numeric","target":1,"tolerance":-1,"points":1}`},
		{"empty pairs", `{"kind":"mapping","pairs":{},"points":1}`},
		{"nested composite", `{"kind":"composite","parts":[{"kind":"composite","parts":[]}]}`},
		{"single select with two correct", `{"kind":"single_select","correct":["a","b"],"points":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRule([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !apperr.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}

func TestParseAnswer(t *testing.T) {
	answer, err := ParseAnswer([]byte(`{"kind":"numeric","value":42.4}`))
	if err != nil {
		t.Fatalf("ParseAnswer() error: %v", err)
	}
	if answer.Value == nil || *answer.Value != 42.4 {
		t.Errorf("value = %v, want 42.4", answer.Value)
	}

	answer, err = ParseAnswer([]byte(`{"kind":"multi_select","selected":[]}`))
	if err != nil {
		t.Fatalf("ParseAnswer() error: %v", err)
	}
	if answer.Selected == nil {
		t.Error("empty selection decoded as nil")
	}

	answer, err = ParseAnswer([]byte(`{"kind":"composite","parts":[{"kind":"single_select","choice":"a"},{"kind":"mapping","pairs":{"x":"y"}}]}`))
	if err != nil {
		t.Fatalf("ParseAnswer() error: %v", err)
	}
	if len(answer.Parts) != 2 || answer.Parts[1].Pairs["x"] != "y" {
		t.Errorf("parts = %+v", answer.Parts)
	}
}

func TestParseAnswer_Invalid(t *testing.T) {
	tests := []string{
		`not json`,
		`{"kind":"numeric"}`,
		`{"kind":"numeric","value":"42"}`,
		`{"kind":"single_select"}`,
		`{"kind":"mapping","pairs":{"a":1}}`,
		`{"kind":"freeform","text":"x"}`,
	}

	for _, raw := range tests {
		_, err := ParseAnswer([]byte(raw))
		if err == nil {
			t.Errorf("ParseAnswer(%s) = nil error, want validation error", raw)
			continue
		}
		if !apperr.IsValidation(err) {
			t.Errorf("ParseAnswer(%s) error %v is not a validation error", raw, err)
		}
	}
}

func TestParseThenGrade(t *testing.T) {
	rule, err := ParseRule([]byte(`{"kind":"mapping","pairs":{"a":"1","b":"2","c":"3","d":"4"},"points":1}`))
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	answer, err := ParseAnswer([]byte(`{"kind":"mapping","pairs":{"a":"1","b":"2","c":"3","d":"5"}}`))
	if err != nil {
		t.Fatalf("ParseAnswer() error: %v", err)
	}
	res, err := Grade(rule, answer)
	if err != nil {
		t.Fatalf("Grade() error: %v", err)
	}
	if res.Score != 0.75 {
		t.Errorf("score = %v, want 0.75", res.Score)
	}
}
