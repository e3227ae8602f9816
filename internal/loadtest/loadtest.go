// Package loadtest drives concurrent search traffic against a running
// docsearch server and summarises latency and status codes.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Limit       int
}

type Latency struct {
	Min    time.Duration
	Avg    time.Duration
	P50    time.Duration
	P90    time.Duration
	P95    time.Duration
	P99    time.Duration
	Max    time.Duration
	StdDev time.Duration
}

type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	Elapsed     time.Duration
	Latency     Latency
	StatusCodes map[int]int64
}

// workerStats is owned by one worker until Run merges it.
type workerStats struct {
	total, success, errors int64
	latencies              []time.Duration
	codes                  map[int]int64
}

// Run issues searches from cfg.Concurrency workers, cycling through
// cfg.Queries, until cfg.Duration elapses or ctx is cancelled.
func Run(ctx context.Context, client *http.Client, cfg Config) (*Report, error) {
	if len(cfg.Queries) == 0 {
		return nil, errors.New("loadtest: no queries")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := make([]*workerStats, cfg.Concurrency)
	start := time.Now()
	var g errgroup.Group
	for w := range cfg.Concurrency {
		ws := &workerStats{codes: make(map[int]int64)}
		stats[w] = ws
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", base, url.QueryEscape(q), cfg.Limit)
				ws.record(doRequest(ctx, client, target))
			}
			return nil
		})
	}
	g.Wait()

	return merge(stats, time.Since(start)), nil
}

type outcome struct {
	latency time.Duration
	status  int
	err     error
}

func doRequest(ctx context.Context, client *http.Client, target string) outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return outcome{err: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return outcome{latency: time.Since(start), err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return outcome{latency: time.Since(start), status: resp.StatusCode}
}

func (ws *workerStats) record(o outcome) {
	if o.err != nil {
		// Requests cut off by the end of the run are not counted.
		if errors.Is(o.err, context.DeadlineExceeded) || errors.Is(o.err, context.Canceled) {
			return
		}
		ws.total++
		ws.errors++
		return
	}
	ws.total++
	if o.status >= 200 && o.status < 300 {
		ws.success++
	} else {
		ws.errors++
	}
	ws.latencies = append(ws.latencies, o.latency)
	ws.codes[o.status]++
}

func merge(stats []*workerStats, elapsed time.Duration) *Report {
	r := &Report{Elapsed: elapsed, StatusCodes: make(map[int]int64)}
	var all []time.Duration
	for _, ws := range stats {
		r.Total += ws.total
		r.Success += ws.success
		r.Errors += ws.errors
		all = append(all, ws.latencies...)
		for code, n := range ws.codes {
			r.StatusCodes[code] += n
		}
	}
	r.Latency = summarize(all)
	return r
}

func summarize(latencies []time.Duration) Latency {
	if len(latencies) == 0 {
		return Latency{}
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	var sq float64
	for _, l := range latencies {
		d := float64(l - avg)
		sq += d * d
	}
	return Latency{
		Min:    latencies[0],
		Avg:    avg,
		P50:    percentile(latencies, 50),
		P90:    percentile(latencies, 90),
		P95:    percentile(latencies, 95),
		P99:    percentile(latencies, 99),
		Max:    latencies[len(latencies)-1],
		StdDev: time.Duration(math.Sqrt(sq / float64(len(latencies)))),
	}
}

// percentile is the nearest-rank percentile of sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func (r *Report) RequestsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

// ErrorRate is the failed share of requests in percent.
func (r *Report) ErrorRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Errors) / float64(r.Total) * 100
}

// Write prints the report in a human-readable layout.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	fmt.Fprintf(w, "Error Rate:      %.2f%%\n", r.ErrorRate())
	fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RequestsPerSecond())

	if r.Success+r.Errors > 0 && r.Latency.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Latency.Min)
		fmt.Fprintf(w, "Avg:    %s\n", r.Latency.Avg)
		fmt.Fprintf(w, "P50:    %s\n", r.Latency.P50)
		fmt.Fprintf(w, "P90:    %s\n", r.Latency.P90)
		fmt.Fprintf(w, "P95:    %s\n", r.Latency.P95)
		fmt.Fprintf(w, "P99:    %s\n", r.Latency.P99)
		fmt.Fprintf(w, "Max:    %s\n", r.Latency.Max)
		fmt.Fprintf(w, "StdDev: %s\n", r.Latency.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
