package analytics

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

const (
	latencyWindow = 10000
	topQueries    = 10
)

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      float64      `json:"p50_latency_ms"`
	P95LatencyMs      float64      `json:"p95_latency_ms"`
	P99LatencyMs      float64      `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	IndexRebuilds     int64        `json:"index_rebuilds"`
	FailedRebuilds    int64        `json:"failed_rebuilds"`
	LastGeneration    uint64       `json:"last_generation"`
	LastRebuildMs     float64      `json:"last_rebuild_ms"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over search and index events. Latency
// percentiles cover the most recent searches only.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	cacheHits         int64
	zeroResults       int64
	latencies         []float64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	rebuilds          int64
	failedRebuilds    int64
	lastGeneration    uint64
	lastRebuildMs     float64
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]float64, 0, latencyWindow),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the totals.
func (a *Aggregator) Record(env Envelope) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case env.Type == EventSearch && env.Search != nil:
		a.recordSearch(env.Search)
	case env.Type == EventIndexRebuild && env.Index != nil:
		a.recordIndex(env.Index)
	default:
		a.logger.Warn("ignoring malformed analytics event", "type", env.Type)
	}
}

func (a *Aggregator) recordSearch(ev *SearchEvent) {
	a.totalSearches++
	if ev.CacheHit {
		a.cacheHits++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, ev.LatencyMs)
	} else {
		a.latencies[a.next] = ev.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	a.queryCounts[ev.Query]++
	if ev.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[ev.Query]++
	}
}

func (a *Aggregator) recordIndex(ev *IndexEvent) {
	if ev.Error != "" {
		a.failedRebuilds++
		return
	}
	a.rebuilds++
	a.lastGeneration = ev.Generation
	a.lastRebuildMs = ev.DurationMs
}

// HandleMessage decodes a Kafka message and records it.
func (a *Aggregator) HandleMessage(_ context.Context, _ []byte, value []byte) error {
	env, err := kafka.DecodeJSON[Envelope](value)
	if err != nil {
		// A poison message would otherwise be redelivered forever.
		a.logger.Error("dropping undecodable analytics event", "error", err)
		return nil
	}
	if env.Type != EventSearch && env.Type != EventIndexRebuild {
		return fmt.Errorf("unknown analytics event type %q", env.Type)
	}
	a.Record(env)
	return nil
}

// Stats returns a point-in-time summary.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:     a.totalSearches,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.totalSearches - a.cacheHits,
		ZeroResultCount:   a.zeroResults,
		TopQueries:        topN(a.queryCounts, topQueries),
		ZeroResultQueries: topN(a.zeroResultQueries, topQueries),
		IndexRebuilds:     a.rebuilds,
		FailedRebuilds:    a.failedRebuilds,
		LastGeneration:    a.lastGeneration,
		LastRebuildMs:     a.lastRebuildMs,
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.totalSearches) / elapsed
	}
	return stats
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct*len(sorted)+99)/100 - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Query, y.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
