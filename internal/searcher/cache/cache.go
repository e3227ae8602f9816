// Package cache memoises search results in Redis. Keys embed the index
// generation, so a rebuild makes every older entry unreachable without an
// explicit flush; Invalidate exists to reclaim the space early.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const keyPrefix = "docsearch:search:"

// ErrMiss may be returned by a Store for an absent key. Redis nil replies
// are treated the same way.
var ErrMiss = errors.New("cache miss")

// Store is the key-value backend. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Keys    int64  `json:"keys"`
	Breaker string `json:"breaker"`
}

// New wraps store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Key is the cache key for query under the given generation and options.
func Key(generation uint64, query string, opts indexer.SearchOptions) string {
	raw := fmt.Sprintf("%s|limit=%d|window=%d|snippets=%d",
		normalizeQuery(query), opts.Limit, opts.Window, opts.MaxSnippets)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%sg%d:%s", keyPrefix, generation, hex.EncodeToString(sum[:16]))
}

// normalizeQuery folds runs of whitespace. Case is left to the tokenizer:
// a case-preserving segmenter gives Cat and cat different results. Term
// order and repeats are kept because both change the result.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func isMiss(err error) bool {
	return errors.Is(err, ErrMiss) || pkgredis.IsNilError(err)
}

// Get returns the cached result for key, if any. Store failures count as
// misses.
func (c *QueryCache) Get(ctx context.Context, key string) (*indexer.SearchResult, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var getErr error
		data, getErr = c.store.Get(ctx, key)
		if isMiss(getErr) {
			return nil
		}
		return getErr
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result indexer.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Set stores result under key. Failures are logged, never returned.
func (c *QueryCache) Set(ctx context.Context, key string, result *indexer.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for the query or computes, stores
// and returns it. Concurrent misses on one key share a single compute. The
// bool reports a cache hit.
//
// The shared compute runs on a context detached from ctx's cancellation,
// since callers that joined it must not inherit the first caller's
// disconnect. A cancelled caller stops waiting and returns ctx.Err().
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	opts indexer.SearchOptions,
	compute func(ctx context.Context) (*indexer.SearchResult, error),
) (*indexer.SearchResult, bool, error) {
	key := Key(generation, query, opts)
	if result, ok := c.Get(ctx, key); ok {
		result.Query = query
		return result, true, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		result, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.Set(detached, key, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		shared := *res.Val.(*indexer.SearchResult)
		shared.Query = query
		return &shared, false, nil
	}
}

// Invalidate deletes every cached result, across generations.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats reports hit and miss counters and the current key count. Keys is
// -1 when the store cannot be scanned.
func (c *QueryCache) Stats(ctx context.Context) Stats {
	keys, err := c.store.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		keys = -1
	}
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Keys:    keys,
		Breaker: c.breaker.State().String(),
	}
}
