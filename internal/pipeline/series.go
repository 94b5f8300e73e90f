package pipeline

import (
	"sort"
	"time"
)

// DateLayout is the wire and export format for observation dates.
// Observations carry calendar dates only, never a time-of-day component.
const DateLayout = "2006-01-02"

// Observation is a single dated data point. A nil Value marks a missing
// observation at that date, as reported by the source.
type Observation struct {
	Date  time.Time
	Value *float64
}

// Series is a named, date-ordered sequence of nullable observations from one
// data source. Name is the display label used as the column header downstream;
// SourceID is the opaque provider key the series was fetched with. Dates
// within a series are unique. A Series may be empty but is never nil.
type Series struct {
	Name     string
	SourceID string
	Obs      []Observation
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Obs) }

// Value returns a pointer to a copy of v, for building observations inline.
func Value(v float64) *float64 { return &v }

// sortedUnique reports whether the observations are strictly ascending by
// date. The fetcher returns series in this form; transform stages assert it
// rather than re-sorting.
func (s Series) sortedUnique() bool {
	for i := 1; i < len(s.Obs); i++ {
		if !s.Obs[i-1].Date.Before(s.Obs[i].Date) {
			return false
		}
	}
	return true
}

// Sort orders the observations ascending by date in place. The fetcher calls
// this once after decoding; provider responses are normally already ordered.
func (s *Series) Sort() {
	sort.Slice(s.Obs, func(i, j int) bool {
		return s.Obs[i].Date.Before(s.Obs[j].Date)
	})
}
