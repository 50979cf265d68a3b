// Package mastery tracks per-domain recency-weighted accuracy and ranks
// domains from weakest to strongest.
package mastery

import (
	"math"
	"time"
)

// DefaultRecencyWeight is the weight given to the newest attempt.
const DefaultRecencyWeight = 0.3

// DefaultMinAttempts is the attempt count below which accuracy is unknown.
const DefaultMinAttempts = 3

// Summary holds a user's rolling accuracy in one domain.
type Summary struct {
	UserID string `json:"user_id"`
	Domain string `json:"domain"`

	// Accuracy is an exponentially weighted moving average of attempt
	// scores, in [0, 1]. The first attempt seeds it.
	Accuracy  float64   `json:"accuracy"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic-concurrency token. 0 means not yet stored.
	Version int64 `json:"version"`
}

// NewSummary returns an empty summary for (userID, domain).
func NewSummary(userID, domain string) Summary {
	return Summary{UserID: userID, Domain: domain}
}

// Record folds one attempt score into the summary and returns the result.
// The receiver is not modified. Score is clamped to [0, 1]; weight outside
// (0, 1] falls back to DefaultRecencyWeight.
func (s Summary) Record(score, weight float64, now time.Time) Summary {
	score = clamp01(score)
	if !(weight > 0 && weight <= 1) {
		weight = DefaultRecencyWeight
	}

	if s.Attempts == 0 {
		s.Accuracy = score
	} else {
		s.Accuracy = weight*score + (1-weight)*s.Accuracy
	}
	s.Accuracy = clamp01(s.Accuracy)
	s.Attempts++
	s.UpdatedAt = now
	return s
}

// Known reports whether enough attempts have been recorded for Accuracy
// to be meaningful.
func (s Summary) Known(minAttempts int) bool {
	return s.Attempts >= minAttempts
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
