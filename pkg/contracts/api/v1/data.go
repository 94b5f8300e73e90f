// Package v1 holds the wire contracts of the public HTTP API. Transport
// handlers translate between these DTOs and the internal domain types; the
// pipeline core never sees them.
package v1

// SeriesInfo describes one selectable series in the catalog.
type SeriesInfo struct {
	Label     string `json:"label"`
	SourceID  string `json:"source_id"`
	Lag       int    `json:"lag"`
	Frequency string `json:"frequency"`
}

// CatalogResponse lists the configured series selection.
type CatalogResponse struct {
	Series []SeriesInfo `json:"series"`
}

// Warning reports one series that failed to fetch during a run that still
// produced a table.
type Warning struct {
	Label    string `json:"label"`
	SourceID string `json:"source_id"`
	Cause    string `json:"cause"`
}

// Row is one date row of an aligned table. Values are positional, parallel
// to DataResponse.Columns; null means the series had no observation at that
// date.
type Row struct {
	Date   string     `json:"date"`
	Values []*float64 `json:"values"`
}

// DataResponse is a complete pipeline result: the aligned (optionally
// normalized) table plus warnings for partially failed fetches and the names
// of columns skipped by normalization for zero variance. A response is always
// either complete-with-warnings or not sent at all.
type DataResponse struct {
	Columns    []string  `json:"columns"`
	Rows       []Row     `json:"rows"`
	Warnings   []Warning `json:"warnings"`
	Degenerate []string  `json:"degenerate,omitempty"`
	Normalized bool      `json:"normalized"`
}

// HealthResponse is the health probe body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
