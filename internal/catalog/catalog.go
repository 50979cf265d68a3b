// Package catalog provides read-only access to published learning items.
package catalog

import (
	"context"
	"sort"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/grading"
)

// Item is a published learning item. Items are immutable once loaded.
type Item struct {
	ID string `json:"id"`

	// Domains is the sorted, de-duplicated set of domain tags.
	Domains    []string     `json:"domains"`
	Difficulty int          `json:"difficulty,omitempty"`
	Rule       grading.Rule `json:"rule"`
}

// HasDomain reports whether the item carries tag.
func (it Item) HasDomain(tag string) bool {
	i := sort.SearchStrings(it.Domains, tag)
	return i < len(it.Domains) && it.Domains[i] == tag
}

// Catalog is the content source consumed by the session service.
type Catalog interface {
	// GetItem returns the item with the given ID, or an error wrapping
	// apperr.ErrNotFound.
	GetItem(ctx context.Context, id string) (Item, error)

	// ListItemsByDomains returns items carrying any of tags, sorted by ID.
	// Nil or empty tags return every item.
	ListItemsByDomains(ctx context.Context, tags []string) ([]Item, error)
}

// normalizeItem validates it and returns a copy with a normalized
// domain set.
func normalizeItem(it Item) (Item, error) {
	if it.ID == "" {
		return Item{}, apperr.Validation("item.id", "must not be empty")
	}
	domains := normalizeTags(it.Domains)
	if len(domains) == 0 {
		return Item{}, apperr.Validation("item.domains", "item %q needs at least one domain", it.ID)
	}
	if err := grading.ValidateRule(it.Rule); err != nil {
		return Item{}, err
	}
	it.Domains = domains
	return it, nil
}

// normalizeTags returns the sorted set of non-empty tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
