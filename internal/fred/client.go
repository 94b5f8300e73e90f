package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"macropulse/internal/config"
	"macropulse/internal/infrastructure"
	"macropulse/internal/pipeline"
)

// missingValue is how FRED renders an observation with no reported value.
const missingValue = "."

// Client fetches observation series from the FRED API. All requests go
// through a shared token-bucket limiter so concurrent fetches stay inside
// the provider's request quota.
type Client struct {
	rest    *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *infrastructure.Metrics
}

// NewClient builds a FRED client from configuration. metrics may be nil.
func NewClient(cfg config.FREDConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Client {
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	perSecond := rate.Limit(float64(cfg.RatePerMin) / 60.0)
	return &Client{
		rest:    rest,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(perSecond, cfg.RatePerMin),
		logger:  logger.With(slog.String("component", "fred_client")),
		metrics: metrics,
	}
}

// observationsResponse mirrors the FRED series/observations payload. Values
// arrive as strings; "." marks a missing observation.
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// Fetch retrieves one series for the inclusive date range. The returned
// series is sorted ascending with unique dates, named by its source id;
// callers assign display labels. Failures come back as *pipeline.FetchError
// carrying the source id and the underlying cause.
func (c *Client) Fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error) {
	started := time.Now()
	series, err := c.fetch(ctx, seriesID, start, end)

	if c.metrics != nil {
		c.metrics.RecordFetch(ctx, seriesID, time.Since(started), err == nil)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "series fetch failed",
			slog.String("series_id", seriesID),
			slog.String("error", err.Error()))
		return pipeline.Series{}, &pipeline.FetchError{SourceID: seriesID, Err: err}
	}

	c.logger.InfoContext(ctx, "series fetched",
		slog.String("series_id", seriesID),
		slog.Int("observations", series.Len()),
		slog.Duration("elapsed", time.Since(started)))
	return series, nil
}

func (c *Client) fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return pipeline.Series{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_id":         seriesID,
			"api_key":           c.apiKey,
			"file_type":         "json",
			"observation_start": start.Format(pipeline.DateLayout),
			"observation_end":   end.Format(pipeline.DateLayout),
		}).
		Get("/series/observations")
	if err != nil {
		return pipeline.Series{}, fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Message != "" {
			return pipeline.Series{}, fmt.Errorf("FRED API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return pipeline.Series{}, fmt.Errorf("FRED API returned status %d", resp.StatusCode())
	}

	var payload observationsResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return pipeline.Series{}, fmt.Errorf("failed to decode response: %w", err)
	}

	series := pipeline.Series{
		Name:     seriesID,
		SourceID: seriesID,
		Obs:      make([]pipeline.Observation, 0, len(payload.Observations)),
	}
	for _, o := range payload.Observations {
		date, err := time.Parse(pipeline.DateLayout, o.Date)
		if err != nil {
			return pipeline.Series{}, fmt.Errorf("bad observation date %q: %w", o.Date, err)
		}
		obs := pipeline.Observation{Date: date}
		if o.Value != missingValue {
			v, err := strconv.ParseFloat(o.Value, 64)
			if err != nil {
				return pipeline.Series{}, fmt.Errorf("bad observation value %q at %s: %w", o.Value, o.Date, err)
			}
			obs.Value = pipeline.Value(v)
		}
		series.Obs = append(series.Obs, obs)
	}
	series.Sort()
	return series, nil
}

// Request names one series to fetch: the upstream source id plus the display
// label the result should carry.
type Request struct {
	Label    string
	SourceID string
}

// Fetcher is the fetch contract consumed by FetchAll and the service layer.
// Both Client and Cache satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error)
}

// FetchAll retrieves every requested series concurrently through f, with at
// most maxParallel fetches in flight. Each fetch is independent: a failure is
// recorded against its request and never cancels or blocks the others. The
// returned series keep request order and carry their request labels; the
// failure list is ordered by request as well.
func FetchAll(ctx context.Context, f Fetcher, requests []Request, start, end time.Time, maxParallel int) ([]pipeline.Series, []pipeline.FetchError) {
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([]*pipeline.Series, len(requests))
	failures := make([]*pipeline.FetchError, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, req := range requests {
		g.Go(func() error {
			series, err := f.Fetch(ctx, req.SourceID, start, end)
			if err != nil {
				var fe *pipeline.FetchError
				if !errors.As(err, &fe) {
					fe = &pipeline.FetchError{SourceID: req.SourceID, Err: err}
				}
				fe.Label = req.Label
				failures[i] = fe
				return nil // sibling fetches keep going
			}
			series.Name = req.Label
			results[i] = &series
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; they record failures

	var ok []pipeline.Series
	var failed []pipeline.FetchError
	for i := range requests {
		if results[i] != nil {
			ok = append(ok, *results[i])
		}
		if failures[i] != nil {
			failed = append(failed, *failures[i])
		}
	}
	return ok, failed
}
