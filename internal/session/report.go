package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/spacedrep"
)

// Report is a user's per-domain mastery.
type Report struct {
	UserID  string                 `json:"user_id"`
	Domains []mastery.DomainReport `json:"domains"`
}

// GetMasteryReport returns the user's mastery by domain. A user with no
// history gets an empty list.
func (s *Service) GetMasteryReport(ctx context.Context, userID string) (*Report, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	summaries, err := s.store.ListMastery(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	return &Report{
		UserID:  userID,
		Domains: mastery.Report(summaries, s.cfg.MinAttempts),
	}, nil
}

// ItemStatus describes where one item is in a user's review lifecycle.
type ItemStatus struct {
	ItemID          string                 `json:"item_id"`
	Status          spacedrep.Status       `json:"status"`
	DaysUntilReview int                    `json:"days_until_review"`
	Review          *spacedrep.ReviewState `json:"review,omitempty"`
}

// ItemStatus reports the lifecycle status of itemID for userID. Unknown
// items are NotFound; items never attempted are "new".
func (s *Service) ItemStatus(ctx context.Context, userID, itemID string) (*ItemStatus, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	rs, err := s.store.GetReview(ctx, userID, itemID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &ItemStatus{ItemID: itemID, Status: spacedrep.StatusNew}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	now := s.now()
	return &ItemStatus{
		ItemID:          itemID,
		Status:          rs.Status(now),
		DaysUntilReview: rs.DaysUntilReview(now),
		Review:          &rs,
	}, nil
}

// RecentAttempts returns the user's latest attempts, newest first. Returns
// an empty list when no attempt log is configured.
func (s *Service) RecentAttempts(ctx context.Context, userID string, limit int) ([]AttemptSummary, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if s.attempts == nil {
		return []AttemptSummary{}, nil
	}
	recs, err := s.attempts.ListAttempts(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]AttemptSummary, len(recs))
	for i, r := range recs {
		out[i] = AttemptSummary{ItemID: r.ItemID, Score: r.Score, Quality: r.Quality, SubmittedAt: r.SubmittedAt}
	}
	return out, nil
}

// AttemptSummary is one row of attempt history.
type AttemptSummary struct {
	ItemID      string    `json:"item_id"`
	Score       float64   `json:"score"`
	Quality     int       `json:"quality"`
	SubmittedAt time.Time `json:"submitted_at"`
}
