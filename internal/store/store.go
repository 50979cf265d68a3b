// Package store persists per-user review state and mastery summaries
// behind versioned get/put operations.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/spacedrep"
)

// StateStore is the durable keyed store for learner state.
//
// Put operations are conditioned on the Version of the value passed in:
// 0 creates a new record, any other value must equal the stored version.
// A mismatch returns an error wrapping apperr.ErrConflict. On success the
// stored value is returned with its new version.
//
// Get operations return an error wrapping apperr.ErrNotFound when no
// record exists. Backend failures wrap apperr.ErrStoreUnavailable.
type StateStore interface {
	GetReview(ctx context.Context, userID, itemID string) (spacedrep.ReviewState, error)
	ListReviews(ctx context.Context, userID string) ([]spacedrep.ReviewState, error)
	PutReview(ctx context.Context, state spacedrep.ReviewState) (spacedrep.ReviewState, error)

	GetMastery(ctx context.Context, userID, domain string) (mastery.Summary, error)
	ListMastery(ctx context.Context, userID string) ([]mastery.Summary, error)
	PutMastery(ctx context.Context, summary mastery.Summary) (mastery.Summary, error)

	// SaveAttempt puts a review and the summaries it affects as one unit.
	// If any version check fails nothing is written and the error wraps
	// apperr.ErrConflict.
	SaveAttempt(ctx context.Context, review spacedrep.ReviewState, summaries []mastery.Summary) (spacedrep.ReviewState, []mastery.Summary, error)

	Ping(ctx context.Context) error
}

// AttemptRecord is one graded attempt kept for history.
type AttemptRecord struct {
	ID             string    `json:"id"` // ULID; assigned on append when empty
	UserID         string    `json:"user_id"`
	ItemID         string    `json:"item_id"`
	Score          float64   `json:"score"`
	PointsEarned   float64   `json:"points_earned"`
	PointsPossible float64   `json:"points_possible"`
	Quality        int       `json:"quality"`
	SubmittedAt    time.Time `json:"submitted_at"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// AttemptLog is an append-only record of graded attempts.
type AttemptLog interface {
	AppendAttempt(ctx context.Context, rec AttemptRecord) (AttemptRecord, error)

	// ListAttempts returns the user's most recent attempts, newest first.
	ListAttempts(ctx context.Context, userID string, limit int) ([]AttemptRecord, error)
}

// DefaultDBPath resolves the database file path in priority order:
// 1. EXAMCORE_DB environment variable
// 2. $XDG_DATA_HOME/examcore/examcore.db
// 3. ~/.local/share/examcore/examcore.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EXAMCORE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "examcore", "examcore.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
