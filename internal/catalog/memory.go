package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/examcore/internal/apperr"
)

// Memory is an in-memory Catalog. It is immutable after construction and
// safe for concurrent use.
type Memory struct {
	items map[string]Item
	ids   []string // sorted
}

var _ Catalog = (*Memory)(nil)

// NewMemory builds a catalog from items. Every item is validated; duplicate
// IDs are rejected.
func NewMemory(items ...Item) (*Memory, error) {
	m := &Memory{items: make(map[string]Item, len(items))}
	for i, it := range items {
		norm, err := normalizeItem(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := m.items[norm.ID]; dup {
			return nil, apperr.Validation("item.id", "duplicate item %q", norm.ID)
		}
		m.items[norm.ID] = norm
		m.ids = append(m.ids, norm.ID)
	}
	sort.Strings(m.ids)
	return m, nil
}

// Len returns the number of items.
func (m *Memory) Len() int { return len(m.ids) }

// GetItem implements Catalog.
func (m *Memory) GetItem(_ context.Context, id string) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", id, apperr.ErrNotFound)
	}
	return it, nil
}

// ListItemsByDomains implements Catalog.
func (m *Memory) ListItemsByDomains(_ context.Context, tags []string) ([]Item, error) {
	want := normalizeTags(tags)
	out := make([]Item, 0, len(m.ids))
	for _, id := range m.ids {
		it := m.items[id]
		if len(want) == 0 || carriesAny(it, want) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Domains returns every domain tag used by the catalog, sorted.
func (m *Memory) Domains() []string {
	var all []string
	for _, it := range m.items {
		all = append(all, it.Domains...)
	}
	return normalizeTags(all)
}

func carriesAny(it Item, tags []string) bool {
	for _, t := range tags {
		if it.HasDomain(t) {
			return true
		}
	}
	return false
}
