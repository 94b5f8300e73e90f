package pipeline

import "fmt"

// PercentChange computes a period-over-period percent change column from a
// single series: for each observation i >= lag,
//
//	out[i] = (v[i] - v[i-lag]) / v[i-lag] * 100
//
// The output has the same date domain as the input. The first lag entries are
// always null (insufficient history), and an entry is null whenever either
// operand is null or the earlier value is zero; null propagation here is a
// per-element business rule, not a fault. The lag is a reporting-frequency
// convention supplied by the caller (4 for quarterly, 12 for monthly
// year-over-year); no frequency inference happens here.
//
// The input must already be sorted ascending with unique dates; that
// precondition is owned by the fetcher and only asserted here.
func PercentChange(s Series, lag int) (Series, error) {
	if lag < 1 {
		return Series{}, fmt.Errorf("percent change lag must be >= 1, got %d", lag)
	}
	if !s.sortedUnique() {
		return Series{}, fmt.Errorf("series %q is not sorted with unique dates", s.Name)
	}

	out := Series{
		Name:     s.Name,
		SourceID: s.SourceID,
		Obs:      make([]Observation, len(s.Obs)),
	}
	for i, obs := range s.Obs {
		out.Obs[i] = Observation{Date: obs.Date}
		if i < lag {
			continue
		}
		cur, prev := obs.Value, s.Obs[i-lag].Value
		if cur == nil || prev == nil || *prev == 0 {
			continue
		}
		out.Obs[i].Value = Value((*cur - *prev) / *prev * 100)
	}
	return out, nil
}
