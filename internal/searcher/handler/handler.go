// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/validator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Searcher is the engine surface the handlers need. *indexer.Engine
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts indexer.SearchOptions) (*indexer.SearchResult, error)
	Suggest(prefix string, limit int) ([]string, error)
	Stats() (indexer.Stats, error)
	Generation() uint64
}

// RebuildFunc reloads the corpus and swaps in a new index.
type RebuildFunc func(ctx context.Context) (*indexer.Snapshot, error)

type Handler struct {
	engine    Searcher
	rebuild   RebuildFunc
	cache     *cache.QueryCache
	collector *analytics.Collector
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// New builds a Handler. queryCache, collector and rebuild may be nil.
func New(engine Searcher, rebuild RebuildFunc, queryCache *cache.QueryCache, collector *analytics.Collector, cfg config.SearchConfig) *Handler {
	return &Handler{
		engine:    engine,
		rebuild:   rebuild,
		cache:     queryCache,
		collector: collector,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every search route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := validator.ValidateSearch(r.URL.Query(), h.cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	opts := indexer.SearchOptions{Limit: req.Limit, Window: req.Window}

	var (
		result   *indexer.SearchResult
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.engine.Generation(), req.Query, opts, func(ctx context.Context) (*indexer.SearchResult, error) {
			return h.engine.Search(ctx, req.Query, opts)
		})
	} else {
		result, err = h.engine.Search(ctx, req.Query, opts)
	}
	if err != nil {
		log.Error("search failed", "query", req.Query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", req.Query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"generation", result.Generation,
		"latency", latency,
	)
	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:      req.Query,
			Terms:      matchedTerms(result.TermStats),
			TotalHits:  result.TotalHits,
			Returned:   len(result.Results),
			LatencyMs:  float64(latency.Microseconds()) / 1000,
			CacheHit:   cacheHit,
			Generation: result.Generation,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

func matchedTerms(stats map[string]int) []string {
	terms := make([]string, 0, len(stats))
	for term := range stats {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	req, err := validator.ValidateSuggest(r.URL.Query(), h.cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	terms, err := h.engine.Suggest(req.Prefix, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      req.Prefix,
		"suggestions": terms,
	})
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuild == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusNotImplemented, "rebuild is not configured"))
		return
	}
	snap, err := h.rebuild(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("rebuild failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "rebuilt",
		"generation":  snap.Generation,
		"documents":   snap.Index.DocCount(),
		"terms":       snap.Index.TermCount(),
		"duration_ms": float64(snap.BuildDuration.Microseconds()) / 1000,
	})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats(r.Context())
	var hitRate float64
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "enabled",
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"keys":     stats.Keys,
		"breaker":  stats.Breaker,
		"hit_rate": hitRate,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps err to its status. Server-side failures get a generic
// message so internals do not leak.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := errorBody{Error: err.Error()}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		body = errorBody{Error: "invalid request", Fields: verr.Fields}
	} else if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	h.writeJSON(w, status, body)
}
