// Package services orchestrates the fetch → derive → align → normalize
// pipeline on behalf of the transport and CLI layers. It owns label
// resolution, partial-failure surfacing, and progress publication; all the
// actual math lives in internal/pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"macropulse/internal/config"
	"macropulse/internal/fred"
	"macropulse/internal/infrastructure"
	"macropulse/internal/pipeline"
)

// Progress statuses published per series while a request runs.
const (
	StatusFetching = "fetching"
	StatusFetched  = "fetched"
	StatusFailed   = "failed"
)

// Publisher receives per-series progress events for live clients. The
// websocket hub satisfies this; a nil publisher disables publication.
type Publisher interface {
	PublishSeriesStatus(label, status, detail string)
}

// TableRequest selects what to build: which registered series, over which
// inclusive date range, with which transforms. A pure value; two identical
// requests produce identical tables (modulo upstream data changes).
type TableRequest struct {
	Labels    []string
	Start     time.Time
	End       time.Time
	PctChange bool
	Normalize bool
	Tail      int
}

// Result is a complete pipeline output: the table plus everything the caller
// needs to render it honestly — per-series fetch failures as warnings and the
// names of columns that were too degenerate to normalize. The caller is never
// handed a silently truncated table.
type Result struct {
	Table      *pipeline.Table
	Warnings   []pipeline.FetchError
	Degenerate []pipeline.ZeroVarianceError
}

// UnknownLabelError reports a requested label missing from the series
// registry; a client-side selection mistake, rejected before any fetch.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown series label %q", e.Label)
}

// AllFailedError reports a run in which every requested series failed to
// fetch, so there is no partial table to return.
type AllFailedError struct {
	Failures []pipeline.FetchError
}

func (e *AllFailedError) Error() string {
	labels := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		labels[i] = f.Label
	}
	return fmt.Sprintf("all series fetches failed: %s", strings.Join(labels, ", "))
}

// DataService runs the pipeline end to end. Stateless apart from its
// collaborators; safe for concurrent use.
type DataService struct {
	fetcher     fred.Fetcher
	registry    config.SeriesConfig
	maxParallel int
	logger      *slog.Logger
	metrics     *infrastructure.Metrics
	publisher   Publisher
}

// NewDataService wires the service. metrics and publisher may be nil.
func NewDataService(fetcher fred.Fetcher, registry config.SeriesConfig, maxParallel int,
	logger *slog.Logger, metrics *infrastructure.Metrics, publisher Publisher) *DataService {
	return &DataService{
		fetcher:     fetcher,
		registry:    registry,
		maxParallel: maxParallel,
		logger:      logger.With(slog.String("component", "data_service")),
		metrics:     metrics,
		publisher:   publisher,
	}
}

// GetTable executes one pipeline run.
//
// Structural problems — an inverted date range, an unknown or duplicate
// label — are fatal and return before any fetch. Per-series fetch failures
// are recovered locally: the failed series is skipped, recorded as a warning,
// and the table is built from whatever succeeded. Only when every fetch fails
// does the run error out, with *AllFailedError.
func (s *DataService) GetTable(ctx context.Context, req TableRequest) (*Result, error) {
	if err := pipeline.ValidateRange(req.Start, req.End); err != nil {
		s.recordRun(ctx, "invalid_range")
		return nil, err
	}
	if len(req.Labels) == 0 {
		s.recordRun(ctx, "empty_selection")
		return nil, fmt.Errorf("no series selected")
	}

	specs := make([]config.SeriesSpec, len(req.Labels))
	requests := make([]fred.Request, len(req.Labels))
	for i, label := range req.Labels {
		spec, err := s.registry.Resolve(label)
		if err != nil {
			s.recordRun(ctx, "unknown_label")
			return nil, &UnknownLabelError{Label: label}
		}
		specs[i] = spec
		requests[i] = fred.Request{Label: spec.Label, SourceID: spec.SourceID}
		s.publish(spec.Label, StatusFetching, spec.SourceID)
	}

	fetched, failures := fred.FetchAll(ctx, s.fetcher, requests, req.Start, req.End, s.maxParallel)
	for _, series := range fetched {
		s.publish(series.Name, StatusFetched, fmt.Sprintf("%d observations", series.Len()))
	}
	for _, failure := range failures {
		s.publish(failure.Label, StatusFailed, failure.Err.Error())
	}
	if len(fetched) == 0 {
		s.recordRun(ctx, "all_failed")
		return nil, &AllFailedError{Failures: failures}
	}

	columns, err := s.deriveColumns(fetched, specs, req.PctChange)
	if err != nil {
		s.recordRun(ctx, "derive_failed")
		return nil, err
	}

	table, err := pipeline.Align(columns...)
	if err != nil {
		s.recordRun(ctx, "align_failed")
		return nil, err
	}

	result := &Result{Table: table, Warnings: failures}
	if req.Normalize {
		result.Table, result.Degenerate = pipeline.Normalize(result.Table)
	}
	result.Table = result.Table.Tail(req.Tail)

	s.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("series_requested", len(req.Labels)),
		slog.Int("series_fetched", len(fetched)),
		slog.Int("fetch_failures", len(failures)),
		slog.Int("rows", result.Table.NumRows()),
		slog.Bool("normalized", req.Normalize))
	s.recordRun(ctx, "ok")
	return result, nil
}

// deriveColumns expands fetched series into the column list handed to Align:
// each level series, immediately followed by its percent-change column when
// requested. The derived column's lag comes from the series' configured
// reporting frequency.
func (s *DataService) deriveColumns(fetched []pipeline.Series, specs []config.SeriesSpec, pctChange bool) ([]pipeline.Series, error) {
	lagByLabel := make(map[string]int, len(specs))
	for _, spec := range specs {
		lagByLabel[spec.Label] = spec.Lag
	}

	var columns []pipeline.Series
	for _, series := range fetched {
		columns = append(columns, series)
		if !pctChange {
			continue
		}
		derived, err := pipeline.PercentChange(series, lagByLabel[series.Name])
		if err != nil {
			return nil, fmt.Errorf("percent change for %q: %w", series.Name, err)
		}
		derived.Name = series.Name + " YoY %"
		columns = append(columns, derived)
	}
	return columns, nil
}

// Catalog describes the configured series selection for clients.
func (s *DataService) Catalog() []config.SeriesSpec {
	return s.registry.Registry
}

func (s *DataService) publish(label, status, detail string) {
	if s.publisher != nil {
		s.publisher.PublishSeriesStatus(label, status, detail)
	}
}

func (s *DataService) recordRun(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPipelineRun(ctx, outcome)
	}
}
