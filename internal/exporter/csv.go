// Package exporter serializes aligned tables for download: CSV and XLSX.
// Cell content is identical across formats; only the container differs.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"macropulse/internal/pipeline"
)

// formatValue renders a cell value. Integral values keep one decimal place
// ("1.0", not "1") so exported levels and rates read as the measurements
// they are; everything else uses the shortest exact representation.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// header returns the CSV/XLSX header row: "date" followed by each column
// name in table order.
func header(t *pipeline.Table) []string {
	h := make([]string, 0, len(t.Columns)+1)
	h = append(h, "date")
	for _, col := range t.Columns {
		h = append(h, col.Name)
	}
	return h
}

// row renders one data row: ISO-8601 date, then one field per column with
// nulls as empty fields.
func row(t *pipeline.Table, i int) []string {
	r := make([]string, 0, len(t.Columns)+1)
	r = append(r, t.Dates[i].Format(pipeline.DateLayout))
	for _, col := range t.Columns {
		if v := col.Values[i]; v != nil {
			r = append(r, formatValue(*v))
		} else {
			r = append(r, "")
		}
	}
	return r
}

// WriteCSV streams the table to w as comma-separated values: header row,
// then one row per date in ascending order.
func WriteCSV(w io.Writer, t *pipeline.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(t)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range t.Dates {
		if err := cw.Write(row(t, i)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
