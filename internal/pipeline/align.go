package pipeline

import (
	"fmt"
	"sort"
	"time"
)

// Column is one named value column of an aligned table, parallel to the
// table's date axis. A nil entry means the contributing series had no
// observation (or a null one) at that date.
type Column struct {
	Name   string
	Values []*float64
}

// Table is the outer-join union of several series on their date axis: one row
// per date appearing in any input, ascending, one column per input series in
// input order. Tables are built by Align and never mutated; transforms return
// a new Table.
type Table struct {
	Dates   []time.Time
	Columns []Column
}

// NumRows returns the number of date rows.
func (t *Table) NumRows() int { return len(t.Dates) }

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Tail returns a table containing only the last n rows. If n is zero,
// negative, or at least the row count, the receiver is returned unchanged.
func (t *Table) Tail(n int) *Table {
	if n <= 0 || n >= len(t.Dates) {
		return t
	}
	offset := len(t.Dates) - n
	out := &Table{
		Dates:   t.Dates[offset:],
		Columns: make([]Column, len(t.Columns)),
	}
	for i, col := range t.Columns {
		out.Columns[i] = Column{Name: col.Name, Values: col.Values[offset:]}
	}
	return out
}

// ValidateRange rejects ranges whose start falls after their end. Callers
// run this before any fetch is attempted.
func ValidateRange(start, end time.Time) error {
	if start.After(end) {
		return &InvalidRangeError{Start: start, End: end}
	}
	return nil
}

// Align outer-joins the given series into one wide table keyed by date.
//
// The output date axis is the sorted union of all dates appearing in any
// input; a date missing from a given series yields a nil value in that
// series' column, never a dropped row. Column order follows input order so
// downstream rendering is deterministic. Series names must be unique across
// the input set; a collision fails the whole align step with
// *DuplicateColumnError rather than silently overwriting.
//
// Zero or one input series are legal: Align(nil) is an empty table, and a
// single series passes through unchanged on its own dates.
func Align(series ...Series) (*Table, error) {
	seen := make(map[string]bool, len(series))
	for _, s := range series {
		if seen[s.Name] {
			return nil, &DuplicateColumnError{Name: s.Name}
		}
		seen[s.Name] = true
		if !s.sortedUnique() {
			return nil, fmt.Errorf("series %q is not sorted with unique dates", s.Name)
		}
	}

	dateSet := make(map[time.Time]bool)
	for _, s := range series {
		for _, obs := range s.Obs {
			dateSet[obs.Date] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIndex[d] = i
	}

	table := &Table{
		Dates:   dates,
		Columns: make([]Column, len(series)),
	}
	for i, s := range series {
		col := Column{Name: s.Name, Values: make([]*float64, len(dates))}
		for _, obs := range s.Obs {
			col.Values[rowIndex[obs.Date]] = obs.Value
		}
		table.Columns[i] = col
	}
	return table, nil
}
