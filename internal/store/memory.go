package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/spacedrep"
)

type key struct{ user, id string }

// Memory is an in-process StateStore and AttemptLog. Values are copied in
// and out; it is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	reviews  map[key]spacedrep.ReviewState
	mastery  map[key]mastery.Summary
	attempts []AttemptRecord
	now      func() time.Time
}

var (
	_ StateStore = (*Memory)(nil)
	_ AttemptLog = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reviews: make(map[key]spacedrep.ReviewState),
		mastery: make(map[key]mastery.Summary),
		now:     time.Now,
	}
}

func (m *Memory) GetReview(_ context.Context, userID, itemID string) (spacedrep.ReviewState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.reviews[key{userID, itemID}]
	if !ok {
		return spacedrep.ReviewState{}, fmt.Errorf("review %s/%s: %w", userID, itemID, apperr.ErrNotFound)
	}
	return rs, nil
}

func (m *Memory) ListReviews(_ context.Context, userID string) ([]spacedrep.ReviewState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []spacedrep.ReviewState
	for k, rs := range m.reviews {
		if k.user == userID {
			out = append(out, rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Memory) PutReview(_ context.Context, state spacedrep.ReviewState) (spacedrep.ReviewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{state.UserID, state.ItemID}
	cur, exists := m.reviews[k]
	if err := checkVersion(exists, cur.Version, state.Version); err != nil {
		return spacedrep.ReviewState{}, fmt.Errorf("put review %s/%s: %w", state.UserID, state.ItemID, err)
	}
	state.Version++
	m.reviews[k] = state
	return state, nil
}

func (m *Memory) GetMastery(_ context.Context, userID, domain string) (mastery.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.mastery[key{userID, domain}]
	if !ok {
		return mastery.Summary{}, fmt.Errorf("mastery %s/%s: %w", userID, domain, apperr.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) ListMastery(_ context.Context, userID string) ([]mastery.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []mastery.Summary
	for k, s := range m.mastery {
		if k.user == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (m *Memory) PutMastery(_ context.Context, summary mastery.Summary) (mastery.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{summary.UserID, summary.Domain}
	cur, exists := m.mastery[k]
	if err := checkVersion(exists, cur.Version, summary.Version); err != nil {
		return mastery.Summary{}, fmt.Errorf("put mastery %s/%s: %w", summary.UserID, summary.Domain, err)
	}
	summary.Version++
	m.mastery[k] = summary
	return summary, nil
}

func (m *Memory) SaveAttempt(_ context.Context, review spacedrep.ReviewState, summaries []mastery.Summary) (spacedrep.ReviewState, []mastery.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rk := key{review.UserID, review.ItemID}
	cur, exists := m.reviews[rk]
	if err := checkVersion(exists, cur.Version, review.Version); err != nil {
		return spacedrep.ReviewState{}, nil, fmt.Errorf("put review %s/%s: %w", review.UserID, review.ItemID, err)
	}
	seen := make(map[key]bool, len(summaries))
	for _, sum := range summaries {
		k := key{sum.UserID, sum.Domain}
		if seen[k] {
			return spacedrep.ReviewState{}, nil, fmt.Errorf("put mastery %s/%s: domain repeated in one save: %w",
				sum.UserID, sum.Domain, apperr.ErrConflict)
		}
		seen[k] = true
		cur, exists := m.mastery[k]
		if err := checkVersion(exists, cur.Version, sum.Version); err != nil {
			return spacedrep.ReviewState{}, nil, fmt.Errorf("put mastery %s/%s: %w", sum.UserID, sum.Domain, err)
		}
	}

	review.Version++
	m.reviews[rk] = review
	out := make([]mastery.Summary, 0, len(summaries))
	for _, sum := range summaries {
		sum.Version++
		m.mastery[key{sum.UserID, sum.Domain}] = sum
		out = append(out, sum)
	}
	return review, out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) AppendAttempt(_ context.Context, rec AttemptRecord) (AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = m.now()
	}
	m.attempts = append(m.attempts, rec)
	return rec, nil
}

func (m *Memory) ListAttempts(_ context.Context, userID string, limit int) ([]AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AttemptRecord
	for i := len(m.attempts) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if m.attempts[i].UserID == userID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

// checkVersion applies the optimistic-concurrency rule shared by all puts.
func checkVersion(exists bool, stored, expected int64) error {
	switch {
	case expected == 0 && exists:
		return fmt.Errorf("record already exists: %w", apperr.ErrConflict)
	case expected != 0 && !exists:
		return fmt.Errorf("expected version %d, record missing: %w", expected, apperr.ErrConflict)
	case expected != 0 && stored != expected:
		return fmt.Errorf("expected version %d, stored %d: %w", expected, stored, apperr.ErrConflict)
	}
	return nil
}
