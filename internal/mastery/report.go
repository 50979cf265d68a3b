package mastery

import "sort"

// DomainReport is one row of a mastery report.
type DomainReport struct {
	Tag      string  `json:"tag"`
	Accuracy float64 `json:"accuracy"`
	Attempts int     `json:"attempts"`

	// Known is false while Attempts is below the configured minimum.
	Known bool `json:"known"`
}

// Report builds report rows from summaries, sorted by tag. Returns an
// empty (non-nil) slice when there are no summaries.
func Report(summaries []Summary, minAttempts int) []DomainReport {
	rows := make([]DomainReport, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, DomainReport{
			Tag:      s.Domain,
			Accuracy: s.Accuracy,
			Attempts: s.Attempts,
			Known:    s.Known(minAttempts),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Tag < rows[j].Tag })
	return rows
}
