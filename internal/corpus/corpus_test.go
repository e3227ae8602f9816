package corpus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestDirProviderUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("the cat sat"))
	writeFile(t, dir, "b.TXT", []byte("\xEF\xBB\xBFbom first"))
	writeFile(t, dir, "bad.txt", []byte("ok \xff here"))
	writeFile(t, dir, "notes.md", []byte("ignored"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	p, err := NewDirProvider(dir, []string{".txt"}, "utf-8")
	require.NoError(t, err)
	docs, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.TXT", "bad.txt"}, docs.IDs())
	assert.Equal(t, "the cat sat", docs["a.txt"])
	assert.Equal(t, "bom first", docs["b.TXT"])
	assert.Equal(t, "ok \uFFFD here", docs["bad.txt"])
}

func TestDirProviderGBK(t *testing.T) {
	dir := t.TempDir()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("我们喜欢全文搜索")
	require.NoError(t, err)
	writeFile(t, dir, "zh.txt", []byte(encoded))

	p, err := NewDirProvider(dir, nil, "GBK")
	require.NoError(t, err)
	docs, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "我们喜欢全文搜索", docs["zh.txt"])
}

func TestDirProviderMissingDir(t *testing.T) {
	p, err := NewDirProvider(filepath.Join(t.TempDir(), "gone"), nil, "utf-8")
	require.NoError(t, err)
	_, err = p.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirProviderSkipsUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "ok.txt", []byte("fine"))
	writeFile(t, dir, "locked.txt", []byte("secret"))
	require.NoError(t, os.Chmod(filepath.Join(dir, "locked.txt"), 0o000))

	p, err := NewDirProvider(dir, nil, "utf-8")
	require.NoError(t, err)
	var skipped []string
	p.OnSkip = func(id string, _ error) { skipped = append(skipped, id) }
	docs, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, docs.IDs())
	assert.Equal(t, []string{"locked.txt"}, skipped)
}

func TestLookupEncodingUnknown(t *testing.T) {
	_, err := LookupEncoding("ebcdic")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestMatchExtension(t *testing.T) {
	assert.True(t, MatchExtension("a.TXT", []string{"txt"}))
	assert.True(t, MatchExtension("a.md", nil))
	assert.False(t, MatchExtension("a.md", []string{".txt"}))
}

func TestDocIDFromURL(t *testing.T) {
	assert.Equal(t, "example.comdocsintro.txt", DocIDFromURL("https://example.com/docs/intro"))
	assert.Equal(t, "example.com.txt", DocIDFromURL("http://example.com/"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "a", Title("a.txt"))
	assert.Equal(t, "notes.md", Title("notes.md"))
}

func TestExtractText(t *testing.T) {
	page := `<html><head><title>Cats</title><style>p{}</style></head>
<body><h1>All   about cats</h1><script>var x = "dog";</script><p>They sleep.</p></body></html>`
	text, err := ExtractText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Cats\nAll about cats\nThey sleep.", text)
}

func TestWebProviderLoad(t *testing.T) {
	var flaky atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>hello cat</p>"))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("raw dog"))
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("<p>recovered</p>"))
	})
	var missingHits atomic.Int32
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		missingHits.Add(1)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	saveDir := filepath.Join(t.TempDir(), "saved")
	p := NewWebProvider(config.CrawlerConfig{
		URLs:        []string{srv.URL + "/page", srv.URL + "/plain", srv.URL + "/flaky", srv.URL + "/missing"},
		SaveDir:     saveDir,
		Concurrency: 2,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		UserAgent:   "docsearch-test",
	})
	p.Retry.InitialDelay = time.Millisecond
	var skipped []string
	p.OnSkip = func(id string, _ error) { skipped = append(skipped, id) }

	docs, err := p.Load(context.Background())
	require.NoError(t, err)

	pageID := DocIDFromURL(srv.URL + "/page")
	assert.Equal(t, "hello cat", docs[pageID])
	assert.Equal(t, "raw dog", docs[DocIDFromURL(srv.URL+"/plain")])
	assert.Equal(t, "recovered", docs[DocIDFromURL(srv.URL+"/flaky")])
	assert.Len(t, docs, 3)
	assert.Equal(t, []string{DocIDFromURL(srv.URL + "/missing")}, skipped)
	assert.Equal(t, int32(1), missingHits.Load())

	saved, err := os.ReadFile(filepath.Join(saveDir, pageID))
	require.NoError(t, err)
	assert.Equal(t, "hello cat", string(saved))
}

func TestWebProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewWebProvider(config.CrawlerConfig{URLs: []string{"http://127.0.0.1:1/x"}, Concurrency: 1, MaxAttempts: 1})
	p.Retry = resilience.RetryConfig{MaxAttempts: 1}
	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebProviderRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	p := NewWebProvider(config.CrawlerConfig{
		URLs:              []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"},
		Concurrency:       3,
		MaxAttempts:       1,
		RequestsPerSecond: 20,
	})
	require.NotNil(t, p.Limiter)

	start := time.Now()
	docs, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	// One token up front, then one every 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

type fakeStore struct {
	docs map[string]string
	err  error
}

func (f fakeStore) LoadDocuments(context.Context) (map[string]string, error) {
	return f.docs, f.err
}

func TestStoreProvider(t *testing.T) {
	docs, err := StoreProvider{Store: fakeStore{docs: map[string]string{"a": "x"}}}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Corpus{"a": "x"}, docs)

	_, err = StoreProvider{Store: fakeStore{err: errors.New("conn refused")}}.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCorpusUnavailable)
	assert.Contains(t, err.Error(), "conn refused")
}

func TestMultiProviderLaterWins(t *testing.T) {
	m := MultiProvider{
		Corpus{"a": "first", "b": "only"},
		Corpus{"a": "second"},
	}
	docs, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Corpus{"a": "second", "b": "only"}, docs)

	boom := ProviderFunc(func(context.Context) (Corpus, error) { return nil, errors.New("boom") })
	_, err = MultiProvider{Corpus{"a": "x"}, boom}.Load(context.Background())
	assert.Error(t, err)
}

func TestCorpusLoadReturnsCopy(t *testing.T) {
	c := Corpus{"a": "x"}
	got, err := c.Load(context.Background())
	require.NoError(t, err)
	got["a"] = "changed"
	assert.Equal(t, "x", c["a"])
}

func TestWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan struct{}, 10)
	w := NewWatcher(dir, []string{".txt"}, 50*time.Millisecond, func(context.Context) {
		calls <- struct{}{}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeFile(t, dir, "a.txt", []byte("one"))
	writeFile(t, dir, "b.txt", []byte("two"))
	writeFile(t, dir, "ignored.md", []byte("x"))

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired")
	}
	select {
	case <-calls:
		t.Fatal("burst should collapse into one callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "gone"), nil, 0, func(context.Context) {})
	assert.Error(t, w.Start(context.Background()))
}
