package grading

import (
	"math"
	"testing"

	"github.com/abhisek/examcore/internal/apperr"
)

func num(v float64) *float64 { return &v }

func TestGrade_SingleSelect(t *testing.T) {
	rule := Rule{Kind: KindSingleSelect, Correct: []string{"b"}, Points: 1}

	tests := []struct {
		choice string
		want   float64
	}{
		{"b", 1},
		{" b ", 1},
		{"a", 0},
		{"B", 0},
	}

	for _, tc := range tests {
		got, err := Grade(rule, Answer{Kind: KindSingleSelect, Choice: tc.choice})
		if err != nil {
			t.Fatalf("Grade(%q) error: %v", tc.choice, err)
		}
		if got.Score != tc.want {
			t.Errorf("Grade(%q) score = %v, want %v", tc.choice, got.Score, tc.want)
		}
	}
}

func TestGrade_MultiSelectIsAllOrNothing(t *testing.T) {
	rule := Rule{Kind: KindMultiSelect, Correct: []string{"a", "c"}, Points: 2}

	tests := []struct {
		name     string
		selected []string
		want     float64
	}{
		{"exact", []string{"a", "c"}, 1},
		{"reordered", []string{"c", "a"}, 1},
		{"duplicate submitted", []string{"a", "c", "a"}, 1},
		{"subset", []string{"a"}, 0},
		{"superset", []string{"a", "b", "c"}, 0},
		{"disjoint", []string{"b", "d"}, 0},
		{"empty", []string{}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Grade(rule, Answer{Kind: KindMultiSelect, Selected: tc.selected})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score != tc.want {
				t.Errorf("score = %v, want %v", got.Score, tc.want)
			}
			if got.PointsEarned != tc.want*2 {
				t.Errorf("points earned = %v, want %v", got.PointsEarned, tc.want*2)
			}
		})
	}
}

func TestGrade_NumericTolerance(t *testing.T) {
	rule := Rule{Kind: KindNumeric, Target: 42.0, Tolerance: 0.5, Points: 1}

	tests := []struct {
		value float64
		want  float64
	}{
		{42.4, 1},
		{42.6, 0},
		{42.5, 1},
		{41.5, 1},
		{41.4, 0},
		{42, 1},
	}

	for _, tc := range tests {
		got, err := Grade(rule, Answer{Kind: KindNumeric, Value: num(tc.value)})
		if err != nil {
			t.Fatalf("Grade(%v) error: %v", tc.value, err)
		}
		if got.Score != tc.want {
			t.Errorf("Grade(%v) score = %v, want %v", tc.value, got.Score, tc.want)
		}
	}
}

func TestGrade_NumericZeroTolerance(t *testing.T) {
	rule := Rule{Kind: KindNumeric, Target: 3, Points: 1}

	got, err := Grade(rule, Answer{Kind: KindNumeric, Value: num(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 1 {
		t.Errorf("score = %v, want 1", got.Score)
	}

	got, err = Grade(rule, Answer{Kind: KindNumeric, Value: num(3.0001)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 0 {
		t.Errorf("score = %v, want 0", got.Score)
	}
}

func TestGrade_NumericDecimalBoundary(t *testing.T) {
	tests := []struct {
		target, tol, value float64
		want               float64
	}{
		{1.0, 0.1, 1.1, 1},
		{1.0, 0.1, 0.9, 1},
		{0.3, 0.1, 0.2, 1},
		{0.3, 0.1, 0.4, 1},
		{1.0, 0.1, 1.1000001, 0},
		{1e6, 0.01, 1e6 + 0.01, 1},
		{1e6, 0.01, 1e6 + 0.011, 0},
	}

	for _, tc := range tests {
		rule := Rule{Kind: KindNumeric, Target: tc.target, Tolerance: tc.tol, Points: 1}
		got, err := Grade(rule, Answer{Kind: KindNumeric, Value: num(tc.value)})
		if err != nil {
			t.Fatalf("Grade(target=%v, tol=%v, value=%v) error: %v", tc.target, tc.tol, tc.value, err)
		}
		if got.Score != tc.want {
			t.Errorf("Grade(target=%v, tol=%v, value=%v) score = %v, want %v",
				tc.target, tc.tol, tc.value, got.Score, tc.want)
		}
	}
}

func TestGrade_MappingKeysCollidingAfterTrim(t *testing.T) {
	rule := Rule{Kind: KindMapping, Pairs: map[string]string{"a": "x", "b": "y"}, Points: 1}
	answer := Answer{Kind: KindMapping, Pairs: map[string]string{"a": "x", " a": "WRONG", "b": "y"}}

	// Map iteration order varies between calls; every call must agree.
	for i := 0; i < 200; i++ {
		_, err := Grade(rule, answer)
		if !apperr.IsValidation(err) {
			t.Fatalf("call %d: Grade() error = %v, want ValidationError", i, err)
		}
	}
}

func TestGrade_MappingPartialCredit(t *testing.T) {
	rule := Rule{
		Kind: KindMapping,
		Pairs: map[string]string{
			"tcp":  "transport",
			"ip":   "network",
			"http": "application",
			"eth":  "link",
		},
		Points: 4,
	}

	tests := []struct {
		name  string
		pairs map[string]string
		want  float64
	}{
		{"all correct", map[string]string{"tcp": "transport", "ip": "network", "http": "application", "eth": "link"}, 1},
		{"three of four", map[string]string{"tcp": "transport", "ip": "network", "http": "application", "eth": "physical"}, 0.75},
		{"missing key counts wrong", map[string]string{"tcp": "transport", "ip": "network"}, 0.5},
		{"extra keys ignored", map[string]string{"tcp": "transport", "udp": "transport"}, 0.25},
		{"whitespace trimmed", map[string]string{" tcp ": " transport"}, 0.25},
		{"empty", map[string]string{}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Grade(rule, Answer{Kind: KindMapping, Pairs: tc.pairs})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Score != tc.want {
				t.Errorf("score = %v, want %v", got.Score, tc.want)
			}
			if got.PointsEarned != tc.want*4 {
				t.Errorf("points earned = %v, want %v", got.PointsEarned, tc.want*4)
			}
		})
	}
}

func TestGrade_CompositeWeightsByPoints(t *testing.T) {
	rule := Rule{
		Kind: KindComposite,
		Parts: []Rule{
			{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 1},
			{Kind: KindNumeric, Target: 10, Tolerance: 0, Points: 3},
			{Kind: KindMapping, Pairs: map[string]string{"x": "1", "y": "2"}, Points: 2},
		},
	}
	answer := Answer{
		Kind: KindComposite,
		Parts: []Answer{
			{Kind: KindSingleSelect, Choice: "a"},
			{Kind: KindNumeric, Value: num(11)},
			{Kind: KindMapping, Pairs: map[string]string{"x": "1"}},
		},
	}

	got, err := Grade(rule, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 + 0 + 1 earned out of 6 possible.
	if got.PointsPossible != 6 {
		t.Errorf("points possible = %v, want 6", got.PointsPossible)
	}
	if got.PointsEarned != 2 {
		t.Errorf("points earned = %v, want 2", got.PointsEarned)
	}
	if math.Abs(got.Score-2.0/6.0) > 1e-12 {
		t.Errorf("score = %v, want %v", got.Score, 2.0/6.0)
	}
	if len(got.Parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(got.Parts))
	}
	wantScores := []float64{1, 0, 0.5}
	for i, p := range got.Parts {
		if p.Index != i {
			t.Errorf("part %d index = %d", i, p.Index)
		}
		if p.Score != wantScores[i] {
			t.Errorf("part %d score = %v, want %v", i, p.Score, wantScores[i])
		}
	}
	if got.Correct() {
		t.Error("Correct() = true for partial credit")
	}
}

func TestGrade_LeafResultHasOnePart(t *testing.T) {
	rule := Rule{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 5}

	got, err := Grade(rule, Answer{Kind: KindSingleSelect, Choice: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Parts) != 1 || got.Parts[0].Index != 0 {
		t.Errorf("parts = %+v, want one part at index 0", got.Parts)
	}
	if got.PointsEarned != 5 || got.PointsPossible != 5 {
		t.Errorf("points = %v/%v, want 5/5", got.PointsEarned, got.PointsPossible)
	}
	if !got.Correct() {
		t.Error("Correct() = false, want true")
	}
}

func TestGrade_Idempotent(t *testing.T) {
	rule := Rule{Kind: KindMapping, Pairs: map[string]string{"a": "1", "b": "2", "c": "3"}, Points: 1}
	answer := Answer{Kind: KindMapping, Pairs: map[string]string{"a": "1", "c": "3"}}

	first, err := Grade(rule, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Grade(rule, answer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.Score != first.Score || again.PointsEarned != first.PointsEarned {
			t.Fatalf("run %d: got %+v, want %+v", i, again, first)
		}
	}
}

func TestGrade_ScoreInUnitInterval(t *testing.T) {
	rules := []struct {
		rule   Rule
		answer Answer
	}{
		{Rule{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 1}, Answer{Kind: KindSingleSelect, Choice: "z"}},
		{Rule{Kind: KindMultiSelect, Correct: []string{"a"}, Points: 1}, Answer{Kind: KindMultiSelect, Selected: []string{"a"}}},
		{Rule{Kind: KindNumeric, Target: -1, Tolerance: 1, Points: 1}, Answer{Kind: KindNumeric, Value: num(100)}},
		{Rule{Kind: KindMapping, Pairs: map[string]string{"a": "b"}, Points: 1}, Answer{Kind: KindMapping, Pairs: map[string]string{"a": "b", "c": "d"}}},
	}

	for i, tc := range rules {
		got, err := Grade(tc.rule, tc.answer)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got.Score < 0 || got.Score > 1 {
			t.Errorf("case %d: score %v outside [0,1]", i, got.Score)
		}
	}
}

func TestGrade_MalformedAnswers(t *testing.T) {
	composite := Rule{
		Kind: KindComposite,
		Parts: []Rule{
			{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 1},
			{Kind: KindNumeric, Target: 1, Points: 1},
		},
	}

	tests := []struct {
		name   string
		rule   Rule
		answer Answer
	}{
		{
			name:   "kind mismatch",
			rule:   Rule{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 1},
			answer: Answer{Kind: KindNumeric, Value: num(1)},
		},
		{
			name:   "numeric value missing",
			rule:   Rule{Kind: KindNumeric, Target: 1, Points: 1},
			answer: Answer{Kind: KindNumeric},
		},
		{
			name:   "numeric NaN",
			rule:   Rule{Kind: KindNumeric, Target: 1, Points: 1},
			answer: Answer{Kind: KindNumeric, Value: num(math.NaN())},
		},
		{
			name:   "single select blank choice",
			rule:   Rule{Kind: KindSingleSelect, Correct: []string{"a"}, Points: 1},
			answer: Answer{Kind: KindSingleSelect, Choice: "  "},
		},
		{
			name:   "multi select missing selection",
			rule:   Rule{Kind: KindMultiSelect, Correct: []string{"a"}, Points: 1},
			answer: Answer{Kind: KindMultiSelect},
		},
		{
			name:   "mapping missing pairs",
			rule:   Rule{Kind: KindMapping, Pairs: map[string]string{"a": "b"}, Points: 1},
			answer: Answer{Kind: KindMapping},
		},
		{
			name:   "composite part count mismatch",
			rule:   composite,
			answer: Answer{Kind: KindComposite, Parts: []Answer{{Kind: KindSingleSelect, Choice: "a"}}},
		},
		{
			name: "composite part kind mismatch",
			rule: composite,
			answer: Answer{Kind: KindComposite, Parts: []Answer{
				{Kind: KindSingleSelect, Choice: "a"},
				{Kind: KindSingleSelect, Choice: "b"},
			}},
		},
		{
			name:   "leaf answer to composite rule",
			rule:   composite,
			answer: Answer{Kind: KindSingleSelect, Choice: "a"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Grade(tc.rule, tc.answer)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !apperr.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}
