package fred

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macropulse/internal/config"
	"macropulse/internal/pipeline"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.FREDConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		RatePerMin: 6000,
	}
	return NewClient(cfg, slog.Default(), nil), server
}

func TestClient_Fetch(t *testing.T) {
	var gotQuery map[string]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"series_id":         q.Get("series_id"),
			"api_key":           q.Get("api_key"),
			"observation_start": q.Get("observation_start"),
			"observation_end":   q.Get("observation_end"),
		}
		fmt.Fprint(w, `{"observations":[
			{"date":"2020-01-01","value":"1.55"},
			{"date":"2020-02-01","value":"."},
			{"date":"2020-03-01","value":"0.65"}
		]}`)
	}))

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	series, err := client.Fetch(context.Background(), "FEDFUNDS", start, end)
	require.NoError(t, err)

	assert.Equal(t, "FEDFUNDS", gotQuery["series_id"])
	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "2020-01-01", gotQuery["observation_start"])
	assert.Equal(t, "2020-12-31", gotQuery["observation_end"])

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "FEDFUNDS", series.SourceID)
	assert.Equal(t, 1.55, *series.Obs[0].Value)
	assert.Nil(t, series.Obs[1].Value, "FRED '.' parses to null")
	assert.Equal(t, 0.65, *series.Obs[2].Value)
}

func TestClient_FetchUnknownSeries(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_code":400,"error_message":"Bad Request. The series does not exist."}`)
	}))

	now := time.Now()
	_, err := client.Fetch(context.Background(), "NOSUCH", now.AddDate(-1, 0, 0), now)

	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "NOSUCH", fetchErr.SourceID)
	assert.Contains(t, fetchErr.Error(), "does not exist")
}

func TestClient_FetchBadPayload(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations":[{"date":"2020-01-01","value":"not-a-number"}]}`)
	}))

	now := time.Now()
	_, err := client.Fetch(context.Background(), "FEDFUNDS", now.AddDate(-1, 0, 0), now)
	var fetchErr *pipeline.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestClient_FetchSortsObservations(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"observations":[
			{"date":"2020-03-01","value":"3"},
			{"date":"2020-01-01","value":"1"}
		]}`)
	}))

	now := time.Now()
	series, err := client.Fetch(context.Background(), "GDPC1", now.AddDate(-1, 0, 0), now)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.True(t, series.Obs[0].Date.Before(series.Obs[1].Date))
}

// stubFetcher fails the configured source ids and serves a one-point series
// for the rest.
type stubFetcher struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   []string
	latency time.Duration
}

func (s *stubFetcher) Fetch(ctx context.Context, seriesID string, start, end time.Time) (pipeline.Series, error) {
	s.mu.Lock()
	s.calls = append(s.calls, seriesID)
	s.mu.Unlock()
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.fail[seriesID] {
		return pipeline.Series{}, &pipeline.FetchError{SourceID: seriesID, Err: fmt.Errorf("upstream unreachable")}
	}
	return pipeline.Series{
		Name:     seriesID,
		SourceID: seriesID,
		Obs:      []pipeline.Observation{{Date: start, Value: pipeline.Value(1)}},
	}, nil
}

func TestFetchAll_PartialFailure(t *testing.T) {
	stub := &stubFetcher{fail: map[string]bool{"UNRATE": true}}
	requests := []Request{
		{Label: "Rate", SourceID: "FEDFUNDS"},
		{Label: "Unemp", SourceID: "UNRATE"},
		{Label: "GDP", SourceID: "GDPC1"},
	}

	now := time.Now()
	ok, failed := FetchAll(context.Background(), stub, requests, now.AddDate(-1, 0, 0), now, 4)

	// One failure must not abort the siblings.
	require.Len(t, ok, 2)
	assert.Equal(t, "Rate", ok[0].Name)
	assert.Equal(t, "GDP", ok[1].Name)

	require.Len(t, failed, 1)
	assert.Equal(t, "Unemp", failed[0].Label)
	assert.Equal(t, "UNRATE", failed[0].SourceID)
	assert.Contains(t, failed[0].Error(), "unreachable")
}

func TestFetchAll_AllSucceed(t *testing.T) {
	stub := &stubFetcher{}
	requests := []Request{
		{Label: "A", SourceID: "S1"},
		{Label: "B", SourceID: "S2"},
	}

	now := time.Now()
	ok, failed := FetchAll(context.Background(), stub, requests, now, now, 2)
	require.Empty(t, failed)
	require.Len(t, ok, 2)
	// Results keep request order and carry the display labels.
	assert.Equal(t, []string{"A", "B"}, []string{ok[0].Name, ok[1].Name})
	assert.Equal(t, "S1", ok[0].SourceID)
}

func TestFetchAll_Empty(t *testing.T) {
	stub := &stubFetcher{}
	now := time.Now()
	ok, failed := FetchAll(context.Background(), stub, nil, now, now, 4)
	assert.Empty(t, ok)
	assert.Empty(t, failed)
}
