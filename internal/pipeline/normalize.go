package pipeline

import "math"

// Normalize rescales every column of the table to its z-score:
// (x - mean) / stddev, with mean and stddev computed per column over that
// column's non-null values only. Null entries stay null in the output and
// never receive a synthetic value.
//
// The standard deviation is the population definition (divide by count, not
// count-1). That is a fixed contract, not an implementation detail: every
// numeric oracle downstream depends on it.
//
// A column whose non-null values are constant (stddev zero) cannot be scaled;
// it is emitted all-null and reported in the returned ZeroVarianceError slice
// so the caller knows exactly which columns are degenerate. Sibling columns
// normalize normally. Columns with no non-null values pass through untouched
// and are not reported.
func Normalize(t *Table) (*Table, []ZeroVarianceError) {
	out := &Table{
		Dates:   t.Dates,
		Columns: make([]Column, len(t.Columns)),
	}
	var degenerate []ZeroVarianceError

	for ci, col := range t.Columns {
		outCol := Column{Name: col.Name, Values: make([]*float64, len(col.Values))}

		var sum float64
		var n int
		for _, v := range col.Values {
			if v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			out.Columns[ci] = outCol
			continue
		}
		mean := sum / float64(n)

		var sumSq float64
		for _, v := range col.Values {
			if v != nil {
				d := *v - mean
				sumSq += d * d
			}
		}
		std := math.Sqrt(sumSq / float64(n))
		if std == 0 {
			degenerate = append(degenerate, ZeroVarianceError{Column: col.Name})
			out.Columns[ci] = outCol
			continue
		}

		for i, v := range col.Values {
			if v != nil {
				outCol.Values[i] = Value((*v - mean) / std)
			}
		}
		out.Columns[ci] = outCol
	}
	return out, degenerate
}
