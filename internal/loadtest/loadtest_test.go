package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCountsRequests(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		seen[q]++
		mu.Unlock()
		if q == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), srv.Client(), Config{
		BaseURL:     srv.URL + "/",
		Concurrency: 3,
		Duration:    150 * time.Millisecond,
		Queries:     []string{"fox", "bad"},
	})
	require.NoError(t, err)

	assert.Positive(t, report.Total)
	assert.Equal(t, report.Total, report.Success+report.Errors)
	assert.Positive(t, report.StatusCodes[http.StatusOK])
	assert.Positive(t, report.StatusCodes[http.StatusBadRequest])
	assert.LessOrEqual(t, report.Latency.Min, report.Latency.P50)
	assert.LessOrEqual(t, report.Latency.P50, report.Latency.P99)
	assert.LessOrEqual(t, report.Latency.P99, report.Latency.Max)

	mu.Lock()
	assert.Contains(t, seen, "fox")
	mu.Unlock()

	var buf bytes.Buffer
	report.Write(&buf)
	assert.Contains(t, buf.String(), "=== Status Codes ===")
	assert.Contains(t, buf.String(), "  200: ")
}

func TestRunNeedsQueries(t *testing.T) {
	_, err := Run(context.Background(), http.DefaultClient, Config{Duration: time.Millisecond})
	assert.Error(t, err)
}

func TestRunUnreachableCountsErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	report, err := Run(context.Background(), &http.Client{Timeout: time.Second}, Config{
		BaseURL:  srv.URL,
		Duration: 50 * time.Millisecond,
		Queries:  []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, report.Total, report.Errors)
	assert.Zero(t, report.Success)
	assert.Empty(t, report.StatusCodes)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
}
