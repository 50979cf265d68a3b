// Package spacedrep implements SM-2 spaced repetition scheduling for
// individual learning items.
package spacedrep

import "time"

// InitialEasinessFactor is the easiness factor of a never-reviewed item.
const InitialEasinessFactor = 2.5

// MinEasinessFactor is the floor applied after every review.
const MinEasinessFactor = 1.3

// ReviewState holds the SM-2 state of one item for one user.
type ReviewState struct {
	UserID          string    `json:"user_id"`
	ItemID          string    `json:"item_id"`
	EasinessFactor  float64   `json:"easiness_factor"`
	RepetitionCount int       `json:"repetition_count"`
	IntervalDays    int       `json:"interval_days"`
	DueAt           time.Time `json:"due_at"`
	LastQuality     int       `json:"last_quality"`
	LapseCount      int       `json:"lapse_count"`

	// LastReviewedAt is zero until the first scheduled review.
	LastReviewedAt time.Time `json:"last_reviewed_at"`

	// Version is the optimistic-concurrency token. 0 means not yet stored.
	Version int64 `json:"version"`
}

// NewReviewState returns the state of an item on first exposure: due
// immediately, with interval 0 and the initial easiness factor.
func NewReviewState(userID, itemID string, now time.Time) ReviewState {
	return ReviewState{
		UserID:         userID,
		ItemID:         itemID,
		EasinessFactor: InitialEasinessFactor,
		DueAt:          now,
	}
}

// IsDue returns true if the item is due for review (at or past DueAt).
func (rs *ReviewState) IsDue(now time.Time) bool {
	return !now.Before(rs.DueAt)
}

// OverdueDays returns how many days past due the item is. Returns 0 if not yet due.
func (rs *ReviewState) OverdueDays(now time.Time) float64 {
	if now.Before(rs.DueAt) {
		return 0
	}
	return now.Sub(rs.DueAt).Hours() / 24.0
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (rs *ReviewState) DaysUntilReview(now time.Time) int {
	if rs.IsDue(now) {
		return 0
	}
	return int(rs.DueAt.Sub(now).Hours()/24.0) + 1
}

// Reviewed reports whether the item has been scheduled at least once.
func (rs *ReviewState) Reviewed() bool {
	return !rs.LastReviewedAt.IsZero()
}

// Status describes where an item is in its review lifecycle.
type Status string

const (
	StatusNew       Status = "new"       // never attempted
	StatusScheduled Status = "scheduled" // due in the future
	StatusDue       Status = "due"
)

// Status returns the lifecycle status at now. There is no terminal status;
// a reviewed item alternates between scheduled and due forever.
func (rs *ReviewState) Status(now time.Time) Status {
	if !rs.Reviewed() {
		return StatusNew
	}
	if rs.IsDue(now) {
		return StatusDue
	}
	return StatusScheduled
}
