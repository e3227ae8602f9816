package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			n++
		}
	}
	return n, nil
}

func result(docID string) *indexer.SearchResult {
	return &indexer.SearchResult{
		Query:     "cat",
		TotalHits: 1,
		Results:   []indexer.Result{{DocID: docID, TotalFrequency: 2, MatchedPositions: []int{0, 2}}},
	}
}

func TestKeyNormalisesQuery(t *testing.T) {
	opts := indexer.SearchOptions{Limit: 10}
	assert.Equal(t, Key(1, " cat  dog\t", opts), Key(1, "cat dog", opts))
	assert.NotEqual(t, Key(1, "Cat", opts), Key(1, "cat", opts))
	assert.NotEqual(t, Key(1, "cat dog", opts), Key(1, "dog cat", opts))
	assert.NotEqual(t, Key(1, "cat", opts), Key(2, "cat", opts))
	assert.NotEqual(t, Key(1, "cat", opts), Key(1, "cat", indexer.SearchOptions{Limit: 5}))
}

func TestGetOrComputeCachesPerGeneration(t *testing.T) {
	store := newMemStore()
	m := metrics.New()
	c := New(store, time.Minute, m)
	var computed atomic.Int32
	compute := func(context.Context) (*indexer.SearchResult, error) {
		computed.Add(1)
		return result("a.txt"), nil
	}

	res, hit, err := c.GetOrCompute(context.Background(), 1, "cat", indexer.SearchOptions{}, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "a.txt", res.Results[0].DocID)

	res, hit, err = c.GetOrCompute(context.Background(), 1, " cat ", indexer.SearchOptions{}, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, " cat ", res.Query)
	assert.Equal(t, []int{0, 2}, res.Results[0].MatchedPositions)

	_, hit, err = c.GetOrCompute(context.Background(), 2, "cat", indexer.SearchOptions{}, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), computed.Load())

	stats := c.Stats(context.Background())
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Keys)
	assert.Equal(t, "closed", stats.Breaker)
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), 1, "cat", indexer.SearchOptions{}, func(context.Context) (*indexer.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), c.Stats(context.Background()).Keys)
}

func TestGetOrComputeSurvivesCancelledLeader(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var computed atomic.Int32
	compute := func(ctx context.Context) (*indexer.SearchResult, error) {
		if computed.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return result("a.txt"), nil
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(leaderCtx, 1, "cat", indexer.SearchOptions{}, compute)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		res *indexer.SearchResult
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), 1, "cat", indexer.SearchOptions{}, compute)
		follower <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}
	close(release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "a.txt", got.res.Results[0].DocID)
	assert.Equal(t, int32(1), computed.Load())
	assert.Equal(t, int64(1), c.Stats(context.Background()).Keys)
}

func TestStoreFailuresTripBreaker(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute, nil)

	for range 10 {
		res, hit, err := c.GetOrCompute(context.Background(), 1, "cat", indexer.SearchOptions{}, func(context.Context) (*indexer.SearchResult, error) {
			return result("a.txt"), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Len(t, res.Results, 1)
	}
	assert.Equal(t, "open", c.Stats(context.Background()).Breaker)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), Key(1, "cat", indexer.SearchOptions{}), result("a.txt"))
	c.Set(context.Background(), Key(2, "dog", indexer.SearchOptions{}), result("b.txt"))
	store.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, store.data, "unrelated")
}
