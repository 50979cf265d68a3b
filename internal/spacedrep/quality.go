package spacedrep

import (
	"fmt"

	"github.com/abhisek/examcore/internal/apperr"
)

// QualityThresholds maps a normalized grading score to SM-2 recall quality.
// A score at or above Perfect yields 5, at or above Good yields 4, and so on
// down to Poor (2). Any score above zero yields at least 1; zero yields 0.
type QualityThresholds struct {
	Perfect float64 `mapstructure:"perfect" json:"perfect"`
	Good    float64 `mapstructure:"good" json:"good"`
	Pass    float64 `mapstructure:"pass" json:"pass"`
	Poor    float64 `mapstructure:"poor" json:"poor"`
}

// DefaultQualityThresholds returns the default score → quality mapping.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		Perfect: 0.85,
		Good:    0.6,
		Pass:    0.4,
		Poor:    0.2,
	}
}

// Quality converts a score in [0, 1] to a quality in 0..5.
func (t QualityThresholds) Quality(score float64) int {
	switch {
	case score >= t.Perfect:
		return 5
	case score >= t.Good:
		return 4
	case score >= t.Pass:
		return 3
	case score >= t.Poor:
		return 2
	case score > 0:
		return 1
	default:
		return 0
	}
}

// Validate checks that thresholds are in (0, 1] and strictly descending.
func (t QualityThresholds) Validate() error {
	ordered := []struct {
		name  string
		value float64
	}{
		{"perfect", t.Perfect},
		{"good", t.Good},
		{"pass", t.Pass},
		{"poor", t.Poor},
	}
	for i, th := range ordered {
		if !(th.value > 0 && th.value <= 1) {
			return apperr.Validation("engine.quality."+th.name, "must be in (0, 1], got %v", th.value)
		}
		if i > 0 && th.value >= ordered[i-1].value {
			return apperr.Validation("engine.quality."+th.name,
				"%v must be below %s (%v)", th.value, ordered[i-1].name, ordered[i-1].value)
		}
	}
	return nil
}

func (t QualityThresholds) String() string {
	return fmt.Sprintf("5>=%.2f 4>=%.2f 3>=%.2f 2>=%.2f", t.Perfect, t.Good, t.Pass, t.Poor)
}
