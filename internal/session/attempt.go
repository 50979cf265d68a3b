package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/catalog"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/metrics"
	"github.com/abhisek/examcore/internal/spacedrep"
	"github.com/abhisek/examcore/internal/store"
)

// Attempt is a learner's answer to one item.
type Attempt struct {
	UserID string
	ItemID string
	Answer grading.Answer

	// SubmittedAt defaults to the service clock when zero.
	SubmittedAt time.Time
}

// AttemptResult is the graded outcome of an attempt after its review
// state has been saved.
type AttemptResult struct {
	grading.Result
	Quality   int                   `json:"quality"`
	NextDueAt time.Time             `json:"next_due_at"`
	Review    spacedrep.ReviewState `json:"review"`
}

// SubmitAttempt grades an attempt, reschedules the item and updates the
// user's mastery of each of the item's domains. It returns an error, and no
// score, unless the new review state was saved.
func (s *Service) SubmitAttempt(ctx context.Context, a Attempt) (*AttemptResult, error) {
	if err := requireID("user_id", a.UserID); err != nil {
		return nil, err
	}
	if err := requireID("item_id", a.ItemID); err != nil {
		return nil, err
	}

	item, err := s.catalog.GetItem(ctx, a.ItemID)
	if err != nil {
		s.metrics.ObserveAttempt("", outcomeOf(err), 0)
		return nil, fmt.Errorf("get item: %w", err)
	}
	kind := string(item.Rule.Kind)

	result, err := grading.Grade(item.Rule, a.Answer)
	if err != nil {
		s.metrics.ObserveAttempt(kind, metrics.OutcomeInvalid, 0)
		return nil, fmt.Errorf("grade %s: %w", item.ID, err)
	}
	quality := s.cfg.Quality.Quality(result.Score)

	now := a.SubmittedAt
	if now.IsZero() {
		now = s.now()
	}

	review, err := s.recordAttempt(ctx, a.UserID, item, quality, result.Score, now)
	if err != nil {
		s.metrics.ObserveAttempt(kind, outcomeOf(err), 0)
		return nil, err
	}
	s.appendHistory(ctx, a, result, quality, now)

	s.metrics.ObserveAttempt(kind, metrics.OutcomeGraded, result.Score)
	s.log.Info("attempt graded",
		zap.String("user_id", a.UserID),
		zap.String("item_id", item.ID),
		zap.Float64("score", result.Score),
		zap.Int("quality", quality),
		zap.Time("next_due_at", review.DueAt),
	)

	return &AttemptResult{
		Result:    result,
		Quality:   quality,
		NextDueAt: review.DueAt,
		Review:    review,
	}, nil
}

// recordAttempt reschedules the item and folds score into each of its
// domains, saving all of it in one versioned write. A retry re-reads every
// record and recomputes from it, so a failed call leaves nothing behind.
func (s *Service) recordAttempt(ctx context.Context, userID string, item catalog.Item, quality int, score float64, now time.Time) (spacedrep.ReviewState, error) {
	var saved spacedrep.ReviewState
	err := s.retryOnConflict(ctx, "save attempt", func() error {
		cur, err := s.store.GetReview(ctx, userID, item.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			cur = spacedrep.NewReviewState(userID, item.ID, now)
		case err != nil:
			return fmt.Errorf("get review: %w", err)
		}

		summaries := make([]mastery.Summary, 0, len(item.Domains))
		for _, domain := range item.Domains {
			sum, err := s.store.GetMastery(ctx, userID, domain)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				sum = mastery.NewSummary(userID, domain)
			case err != nil:
				return fmt.Errorf("get mastery %s: %w", domain, err)
			}
			summaries = append(summaries, sum.Record(score, s.cfg.MasteryRecencyWeight, now))
		}

		saved, _, err = s.store.SaveAttempt(ctx, spacedrep.Schedule(cur, quality, now), summaries)
		return err
	})
	return saved, err
}

// appendHistory writes the attempt log row. The review is already saved at
// this point, so a failure is logged rather than returned.
func (s *Service) appendHistory(ctx context.Context, a Attempt, result grading.Result, quality int, now time.Time) {
	if s.attempts == nil {
		return
	}
	_, err := s.attempts.AppendAttempt(ctx, store.AttemptRecord{
		UserID:         a.UserID,
		ItemID:         a.ItemID,
		Score:          result.Score,
		PointsEarned:   result.PointsEarned,
		PointsPossible: result.PointsPossible,
		Quality:        quality,
		SubmittedAt:    now,
	})
	if err != nil {
		s.log.Warn("append attempt history",
			zap.String("user_id", a.UserID),
			zap.String("item_id", a.ItemID),
			zap.Error(err),
		)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return metrics.OutcomeNotFound
	case apperr.IsValidation(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeFailed
	}
}
