package spacedrep

import (
	"testing"

	"github.com/abhisek/examcore/internal/apperr"
)

func TestQualityThresholds_Defaults(t *testing.T) {
	th := DefaultQualityThresholds()

	tests := []struct {
		score float64
		want  int
	}{
		{1.0, 5},
		{0.85, 5},
		{0.84, 4},
		{0.6, 4},
		{0.5, 3},
		{0.4, 3},
		{0.25, 2},
		{0.2, 2},
		{0.1, 1},
		{0.0001, 1},
		{0, 0},
	}

	for _, tc := range tests {
		if got := th.Quality(tc.score); got != tc.want {
			t.Errorf("Quality(%v) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestQualityThresholds_Validate(t *testing.T) {
	if err := DefaultQualityThresholds().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	bad := []QualityThresholds{
		{Perfect: 1.2, Good: 0.6, Pass: 0.4, Poor: 0.2},
		{Perfect: 0.85, Good: 0.9, Pass: 0.4, Poor: 0.2},
		{Perfect: 0.85, Good: 0.6, Pass: 0.6, Poor: 0.2},
		{Perfect: 0.85, Good: 0.6, Pass: 0.4, Poor: 0},
	}
	for _, th := range bad {
		err := th.Validate()
		if !apperr.IsValidation(err) {
			t.Errorf("Validate(%v) = %v, want validation error", th, err)
		}
	}
}
