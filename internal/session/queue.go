package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/selector"
	"github.com/abhisek/examcore/internal/spacedrep"
)

// QueueRequest asks for a practice queue.
type QueueRequest struct {
	UserID     string
	TargetSize int

	// WeakRatio overrides the configured ratio when non-nil.
	WeakRatio *float64

	// Domains restricts candidates to items carrying any of these tags.
	// Empty means the whole catalog.
	Domains []string
}

// Queue is an ordered list of items for one practice session. It is not
// persisted.
type Queue struct {
	ID          string          `json:"id"`
	Items       []string        `json:"items"`
	Entries     []selector.Pick `json:"entries"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// GetSessionQueue builds the next practice queue for a user.
func (s *Service) GetSessionQueue(ctx context.Context, req QueueRequest) (*Queue, error) {
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}
	if req.TargetSize <= 0 {
		return nil, apperr.Validation("target_size", "must be positive, got %d", req.TargetSize)
	}
	ratio := s.cfg.WeakRatio
	if req.WeakRatio != nil {
		ratio = *req.WeakRatio
	}
	if !(ratio > 0 && ratio <= 1) {
		return nil, apperr.Validation("weak_ratio", "must be in (0, 1], got %v", ratio)
	}

	items, err := s.catalog.ListItemsByDomains(ctx, req.Domains)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	reviewList, err := s.store.ListReviews(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	summaryList, err := s.store.ListMastery(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}

	reviews := make(map[string]spacedrep.ReviewState, len(reviewList))
	for _, rs := range reviewList {
		reviews[rs.ItemID] = rs
	}
	summaries := make(map[string]mastery.Summary, len(summaryList))
	for _, ms := range summaryList {
		summaries[ms.Domain] = ms
	}

	domainSet := make(map[string]bool)
	for _, it := range items {
		for _, d := range it.Domains {
			domainSet[d] = true
		}
	}
	domains := make([]string, 0, len(domainSet))
	for d := range domainSet {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	now := s.now()
	picks, err := selector.Select(selector.Input{
		Now:        now,
		Candidates: items,
		Reviews:    reviews,
		Ranking:    mastery.Rank(domains, summaries, s.cfg.MinAttempts),
		TargetSize: req.TargetSize,
		WeakRatio:  ratio,
	})
	if err != nil {
		return nil, err
	}

	q := &Queue{
		ID:          uuid.NewString(),
		Items:       selector.IDs(picks),
		Entries:     picks,
		GeneratedAt: now,
	}
	s.metrics.ObserveQueue(len(q.Items))
	s.log.Debug("queue built",
		zap.String("user_id", req.UserID),
		zap.String("queue_id", q.ID),
		zap.Int("size", len(q.Items)),
		zap.Int("candidates", len(items)),
	)
	return q, nil
}
