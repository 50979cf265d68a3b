package mastery

import "sort"

// Rank orders domains from weakest to strongest. Domains whose summary is
// missing or below minAttempts are unknown and rank first, sorted by tag.
// Known domains follow by ascending accuracy, ties broken by tag.
// Duplicate and empty tags are dropped.
func Rank(domains []string, summaries map[string]Summary, minAttempts int) []string {
	type ranked struct {
		tag      string
		known    bool
		accuracy float64
	}

	seen := make(map[string]bool, len(domains))
	rs := make([]ranked, 0, len(domains))
	for _, d := range domains {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		s, ok := summaries[d]
		r := ranked{tag: d}
		if ok && s.Known(minAttempts) {
			r.known = true
			r.accuracy = s.Accuracy
		}
		rs = append(rs, r)
	}

	sort.Slice(rs, func(i, j int) bool {
		if rs[i].known != rs[j].known {
			return !rs[i].known
		}
		if rs[i].known && rs[i].accuracy != rs[j].accuracy {
			return rs[i].accuracy < rs[j].accuracy
		}
		return rs[i].tag < rs[j].tag
	})

	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.tag
	}
	return out
}
