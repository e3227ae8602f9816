// Package indexer owns the live search index. An Engine holds an immutable
// Snapshot behind an atomic pointer: Rebuild loads a fresh corpus and
// builds a new index off to the side, then swaps it in, so a query always
// runs against one complete index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Snapshot is one generation of the corpus and its index. It is never
// modified after Rebuild publishes it.
type Snapshot struct {
	Generation    uint64
	Corpus        corpus.Corpus
	Index         *index.InvertedIndex
	BuiltAt       time.Time
	BuildDuration time.Duration
}

// SearchOptions tunes a single query. Zero values take the engine's
// configured defaults; Limit is capped at the configured maximum.
type SearchOptions struct {
	Limit       int
	Window      int
	MaxSnippets int
}

type Result struct {
	DocID            string            `json:"doc_id"`
	Title            string            `json:"title"`
	TotalFrequency   int               `json:"total_frequency"`
	MatchedPositions []int             `json:"matched_positions"`
	Snippets         []snippet.Snippet `json:"snippets"`
}

type SearchResult struct {
	Query      string         `json:"query"`
	Generation uint64         `json:"generation"`
	TotalHits  int            `json:"total_hits"`
	Results    []Result       `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	TookMs     float64        `json:"took_ms"`
}

type Stats struct {
	Generation      uint64    `json:"generation"`
	Documents       int       `json:"documents"`
	Terms           int       `json:"terms"`
	Tokens          int       `json:"tokens"`
	ApproxBytes     int64     `json:"approx_bytes"`
	Tokenizer       string    `json:"tokenizer"`
	BuiltAt         time.Time `json:"built_at"`
	BuildDurationMs float64   `json:"build_duration_ms"`
}

type Engine struct {
	tok         *tokenizer.Tokenizer
	exec        *executor.Executor
	cfg         config.SearchConfig
	metrics     *metrics.Metrics
	traceLog    bool
	loadTimeout time.Duration

	snap      atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex
	logger    *slog.Logger
}

type Option func(*Engine)

// WithMetrics records build and query metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTraceLogging logs the span tree of every search at debug level.
func WithTraceLogging(enabled bool) Option {
	return func(e *Engine) { e.traceLog = enabled }
}

// WithLoadTimeout bounds each corpus load. A load that overruns fails the
// rebuild with apperrors.ErrTimeout. Zero means no bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.loadTimeout = d }
}

func NewEngine(tok *tokenizer.Tokenizer, cfg config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		tok:    tok,
		exec:   executor.New(),
		cfg:    cfg,
		logger: slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tokenizer returns the tokenizer shared by indexing and querying.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tok
}

// Snapshot returns the live snapshot, or nil before the first Rebuild.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Ready reports whether an index has been built.
func (e *Engine) Ready() bool {
	return e.snap.Load() != nil
}

// Generation returns the live generation, 0 before the first Rebuild.
func (e *Engine) Generation() uint64 {
	if s := e.snap.Load(); s != nil {
		return s.Generation
	}
	return 0
}

// Rebuild loads the whole corpus from p and replaces the live index. On
// error the previous snapshot stays live. Concurrent rebuilds run one at
// a time.
func (e *Engine) Rebuild(ctx context.Context, p corpus.Provider) (*Snapshot, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	var docs corpus.Corpus
	err := resilience.WithTimeout(ctx, e.loadTimeout, "corpus load", func(ctx context.Context) error {
		loaded, err := p.Load(ctx)
		if err != nil {
			return err
		}
		docs = loaded
		return nil
	})
	if err != nil {
		e.observeBuild("failed", start)
		e.logger.Error("index rebuild failed", "error", err, "generation", e.Generation())
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	idx := index.Build(docs, e.tok)
	next := &Snapshot{
		Generation:    e.Generation() + 1,
		Corpus:        docs,
		Index:         idx,
		BuiltAt:       time.Now().UTC(),
		BuildDuration: time.Since(start),
	}
	e.snap.Store(next)
	e.observeBuild("success", start)
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(idx.DocCount()))
		e.metrics.IndexTerms.Set(float64(idx.TermCount()))
		e.metrics.IndexGeneration.Set(float64(next.Generation))
	}

	e.logger.Info("index rebuilt",
		"generation", next.Generation,
		"documents", idx.DocCount(),
		"terms", idx.TermCount(),
		"tokens", idx.TokenCount(),
		"tokenizer", e.tok.Name(),
		"duration", next.BuildDuration,
	)
	return next, nil
}

func (e *Engine) observeBuild(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
}

func (e *Engine) current() (*Snapshot, error) {
	s := e.snap.Load()
	if s == nil {
		return nil, apperrors.New(apperrors.ErrIndexNotReady, http.StatusServiceUnavailable, "no index has been built yet")
	}
	return s, nil
}

// Search runs query against the live snapshot. A blank query or one with
// no matching documents yields an empty Results slice, not an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	start := time.Now()
	snap, err := e.current()
	if err != nil {
		e.countQuery("error")
		return nil, err
	}
	opts = e.resolve(opts)

	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	span.SetAttr("generation", snap.Generation)
	defer func() {
		span.End()
		if e.traceLog {
			span.Log(logger.FromContext(ctx))
		}
	}()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	plan := parser.Parse(e.tok, query)
	parseSpan.SetAttr("terms", len(plan.Terms))
	parseSpan.End()

	result := &SearchResult{
		Query:      query,
		Generation: snap.Generation,
		Results:    []Result{},
		TermStats:  map[string]int{},
	}
	if plan.Empty() {
		e.countQuery("empty_query")
		result.TookMs = millis(time.Since(start))
		return result, nil
	}

	execCtx, execSpan := tracing.StartChildSpan(ctx, "execute")
	executed := e.exec.Execute(execCtx, snap.Index, plan)
	execSpan.SetAttr("candidates", len(executed.Matches))
	execSpan.End()

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	ranked := ranker.Rank(executed.Matches, opts.Limit)
	rankSpan.SetAttr("returned", len(ranked))
	rankSpan.End()

	_, snipSpan := tracing.StartChildSpan(ctx, "snippets")
	for _, r := range ranked {
		if err := ctx.Err(); err != nil {
			snipSpan.SetError(err)
			snipSpan.End()
			e.countQuery("error")
			return nil, err
		}
		hits := r.Hits
		if opts.MaxSnippets > 0 && len(hits) > opts.MaxSnippets {
			hits = hits[:opts.MaxSnippets]
		}
		result.Results = append(result.Results, Result{
			DocID:            r.DocID,
			Title:            corpus.Title(r.DocID),
			TotalFrequency:   r.TotalFrequency,
			MatchedPositions: r.MatchedPositions,
			Snippets:         snippet.ExtractHits(snap.Corpus[r.DocID], hits, opts.Window),
		})
	}
	snipSpan.End()

	result.TotalHits = len(executed.Matches)
	result.TermStats = executed.TermStats
	took := time.Since(start)
	result.TookMs = millis(took)

	if result.TotalHits == 0 {
		e.countQuery("zero_result")
	} else {
		e.countQuery("hit")
	}
	if e.metrics != nil {
		e.metrics.SearchLatency.Observe(took.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(result.TotalHits))
	}
	span.SetAttr("total_hits", result.TotalHits)
	return result, nil
}

func (e *Engine) resolve(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxResults > 0 && opts.Limit > e.cfg.MaxResults {
		opts.Limit = e.cfg.MaxResults
	}
	if opts.Window <= 0 {
		opts.Window = e.cfg.ContextWindow
	}
	if opts.Window <= 0 {
		opts.Window = snippet.DefaultWindow
	}
	if opts.MaxSnippets <= 0 {
		opts.MaxSnippets = e.cfg.MaxSnippets
	}
	return opts
}

func (e *Engine) countQuery(resultType string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

// Suggest returns up to limit indexed terms starting with prefix, in
// lexical order. limit <= 0 uses the configured suggestion limit. The
// prefix is matched as typed and lower-cased, so suggestions work whether
// or not the segmenter folds case.
func (e *Engine) Suggest(prefix string, limit int) ([]string, error) {
	snap, err := e.current()
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = e.cfg.SuggestLimit
	}
	terms := snap.Index.TermsWithPrefix(prefix, limit)
	if lower := strings.ToLower(prefix); lower != prefix {
		terms = append(terms, snap.Index.TermsWithPrefix(lower, limit)...)
		slices.Sort(terms)
		terms = slices.Compact(terms)
		if limit > 0 && len(terms) > limit {
			terms = terms[:limit]
		}
	}
	return terms, nil
}

// Stats describes the live snapshot.
func (e *Engine) Stats() (Stats, error) {
	snap, err := e.current()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Generation:      snap.Generation,
		Documents:       snap.Index.DocCount(),
		Terms:           snap.Index.TermCount(),
		Tokens:          snap.Index.TokenCount(),
		ApproxBytes:     snap.Index.Size(),
		Tokenizer:       e.tok.Name(),
		BuiltAt:         snap.BuiltAt,
		BuildDurationMs: millis(snap.BuildDuration),
	}, nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
