// Package selector builds a practice queue that mixes items due for review
// with items from the learner's weakest domains.
package selector

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/catalog"
	"github.com/abhisek/examcore/internal/spacedrep"
)

// DefaultWeakRatio is the share of the queue reserved for weak domains.
const DefaultWeakRatio = 0.7

// Source records why an item was picked.
type Source string

const (
	SourceDue  Source = "due"
	SourceWeak Source = "weak"
)

// Pick is one queue entry.
type Pick struct {
	ItemID string `json:"item_id"`
	Source Source `json:"source"`
}

// Input is everything Select needs. It holds no references after Select
// returns.
type Input struct {
	Now        time.Time
	Candidates []catalog.Item

	// Reviews holds the learner's review state keyed by item ID. Items
	// without an entry have never been attempted and count as due.
	Reviews map[string]spacedrep.ReviewState

	// Ranking lists domain tags weakest first (see mastery.Rank).
	Ranking []string

	TargetSize int
	WeakRatio  float64
}

// candidate is a catalog item annotated with the values used for ordering.
type candidate struct {
	item     catalog.Item
	rank     int // weakest domain rank; len(Ranking) when unranked
	due      bool
	overdue  float64
	reviewed bool
	lastSeen time.Time
}

// Select returns the ordered queue: due picks first, then weak picks.
// The result is shorter than TargetSize only when the candidate pool is.
// Identical inputs always produce identical output.
func Select(in Input) ([]Pick, error) {
	if in.TargetSize <= 0 {
		return nil, apperr.Validation("target_size", "must be positive, got %d", in.TargetSize)
	}
	if !(in.WeakRatio > 0 && in.WeakRatio <= 1) {
		return nil, apperr.Validation("weak_ratio", "must be in (0, 1], got %v", in.WeakRatio)
	}

	pool := annotate(in)
	if len(pool) == 0 {
		return []Pick{}, nil
	}

	weakSlots := int(math.Floor(float64(in.TargetSize) * in.WeakRatio))
	dueSlots := in.TargetSize - weakSlots

	selected := make(map[string]bool, in.TargetSize)
	take := func(group []Pick, c *candidate, src Source) []Pick {
		selected[c.item.ID] = true
		return append(group, Pick{ItemID: c.item.ID, Source: src})
	}

	// Due fill: most overdue first, then weakest domain, then ID.
	dueOrder := make([]*candidate, 0, len(pool))
	for _, c := range pool {
		if c.due {
			dueOrder = append(dueOrder, c)
		}
	}
	sort.SliceStable(dueOrder, func(i, j int) bool {
		a, b := dueOrder[i], dueOrder[j]
		if a.overdue != b.overdue {
			return a.overdue > b.overdue
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.item.ID < b.item.ID
	})

	var dueGroup []Pick
	for _, c := range dueOrder {
		if len(dueGroup) >= dueSlots {
			break
		}
		dueGroup = take(dueGroup, c, SourceDue)
	}

	// Unfilled due slots overflow into the weak fill.
	weakSlots += dueSlots - len(dueGroup)

	var weakGroup []Pick
	for _, domain := range in.Ranking {
		if len(weakGroup) >= weakSlots {
			break
		}
		for _, c := range coverageOrder(pool, selected, func(c *candidate) bool { return c.item.HasDomain(domain) }) {
			if len(weakGroup) >= weakSlots {
				break
			}
			weakGroup = take(weakGroup, c, SourceWeak)
		}
	}

	// Unfilled weak slots fall back to remaining due items, then to
	// anything left in the pool.
	short := weakSlots - len(weakGroup)
	for _, c := range dueOrder {
		if short == 0 {
			break
		}
		if !selected[c.item.ID] {
			dueGroup = take(dueGroup, c, SourceDue)
			short--
		}
	}
	for _, c := range coverageOrder(pool, selected, nil) {
		if short == 0 {
			break
		}
		weakGroup = take(weakGroup, c, SourceWeak)
		short--
	}

	out := make([]Pick, 0, len(dueGroup)+len(weakGroup))
	out = append(out, dueGroup...)
	out = append(out, weakGroup...)
	return out, nil
}

// IDs returns the item IDs of picks in order.
func IDs(picks []Pick) []string {
	ids := make([]string, len(picks))
	for i, p := range picks {
		ids[i] = p.ItemID
	}
	return ids
}

// annotate de-duplicates candidates by ID and computes ordering keys.
// The result is sorted by item ID.
func annotate(in Input) []*candidate {
	rankOf := make(map[string]int, len(in.Ranking))
	for i, d := range in.Ranking {
		if _, ok := rankOf[d]; !ok {
			rankOf[d] = i
		}
	}

	seen := make(map[string]bool, len(in.Candidates))
	pool := make([]*candidate, 0, len(in.Candidates))
	for _, it := range in.Candidates {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true

		c := &candidate{item: it, rank: len(in.Ranking), due: true}
		for _, d := range it.Domains {
			if r, ok := rankOf[d]; ok && r < c.rank {
				c.rank = r
			}
		}
		if rs, ok := in.Reviews[it.ID]; ok {
			c.due = rs.IsDue(in.Now)
			c.overdue = rs.OverdueDays(in.Now)
			c.reviewed = rs.Reviewed()
			c.lastSeen = rs.LastReviewedAt
		}
		pool = append(pool, c)
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].item.ID < pool[j].item.ID })
	return pool
}

// coverageOrder returns unselected candidates matching keep, never-reviewed
// first, then least recently reviewed, then by ID. A nil keep matches all.
func coverageOrder(pool []*candidate, selected map[string]bool, keep func(*candidate) bool) []*candidate {
	var out []*candidate
	for _, c := range pool {
		if selected[c.item.ID] {
			continue
		}
		if keep != nil && !keep(c) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.reviewed != b.reviewed {
			return !a.reviewed
		}
		if !a.lastSeen.Equal(b.lastSeen) {
			return a.lastSeen.Before(b.lastSeen)
		}
		return a.item.ID < b.item.ID
	})
	return out
}
