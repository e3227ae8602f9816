// Package app wires the engine, its corpus providers and the optional
// Redis, Kafka and PostgreSQL backends into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

const (
	analyticsBatchSize     = 100
	analyticsFlushInterval = 2 * time.Second
)

type App struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Engine     *indexer.Engine
	Aggregator *analytics.Aggregator
	Collector  *analytics.Collector
	Cache      *cache.QueryCache
	Health     *health.Checker

	provider corpus.Provider
	redis    *pkgredis.Client
	pg       *postgres.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	watcher  *corpus.Watcher
	logger   *slog.Logger
}

// New builds the App described by cfg. Redis and Kafka are optional: when
// enabled but unreachable the service starts without them. A configured
// PostgreSQL corpus that cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:     cfg,
		Metrics:    metrics.New(),
		Aggregator: analytics.NewAggregator(),
		Health:     health.NewChecker(),
		logger:     slog.Default().With("component", "app"),
	}

	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	a.Engine = indexer.NewEngine(tok, cfg.Search,
		indexer.WithMetrics(a.Metrics),
		indexer.WithTraceLogging(cfg.Tracing.Enabled),
		indexer.WithLoadTimeout(cfg.Corpus.LoadTimeout),
	)
	a.logger.Info("tokenizer ready", "tokenizer", tok.Name())

	if err := a.setupCorpus(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.setupCache(ctx)
	a.setupAnalytics()
	a.registerHealthChecks()
	return a, nil
}

func (a *App) setupCorpus(ctx context.Context) error {
	cfg := a.Config
	var providers corpus.MultiProvider

	dir, err := corpus.NewDirProvider(cfg.Corpus.Dir, cfg.Corpus.Extensions, cfg.Corpus.Encoding)
	if err != nil {
		return fmt.Errorf("configuring corpus directory: %w", err)
	}
	dir.OnSkip = a.countSkip("dir")
	providers = append(providers, dir)

	if cfg.Corpus.Postgres {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		a.pg = pg
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		providers = append(providers, corpus.StoreProvider{Store: pg})
		a.logger.Info("postgres corpus enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if len(cfg.Crawler.URLs) > 0 {
		web := corpus.NewWebProvider(cfg.Crawler)
		web.OnSkip = a.countSkip("web")
		providers = append(providers, web)
		a.logger.Info("web corpus enabled", "urls", len(cfg.Crawler.URLs))
	}

	if len(providers) == 1 {
		a.provider = dir
	} else {
		a.provider = providers
	}

	if cfg.Corpus.Watch {
		a.watcher = corpus.NewWatcher(cfg.Corpus.Dir, cfg.Corpus.Extensions, cfg.Corpus.Debounce, func(ctx context.Context) {
			if _, err := a.Rebuild(ctx); err != nil {
				a.logger.Error("rebuild after corpus change failed", "error", err)
			}
		})
	}
	return nil
}

func (a *App) countSkip(provider string) corpus.SkipFunc {
	return func(string, error) {
		a.Metrics.CorpusSkippedTotal.WithLabelValues(provider).Inc()
	}
}

func (a *App) setupCache(ctx context.Context) {
	if !a.Config.Redis.Enabled {
		return
	}
	client, err := pkgredis.NewClient(ctx, a.Config.Redis)
	if err != nil {
		a.logger.Warn("redis unavailable, search caching disabled", "error", err)
		return
	}
	a.redis = client
	a.Cache = cache.New(client, a.Config.Redis.CacheTTL, a.Metrics)
	a.logger.Info("search cache enabled", "addr", a.Config.Redis.Addr, "ttl", a.Config.Redis.CacheTTL)
}

// setupAnalytics routes events through Kafka when it is enabled, with the
// aggregator fed by the consumer. Otherwise the aggregator records them
// directly.
func (a *App) setupAnalytics() {
	kc := a.Config.Kafka
	var (
		publisher analytics.Publisher
		local     analytics.Recorder
	)
	if kc.Enabled && len(kc.Brokers) > 0 {
		a.producer = kafka.NewProducer(kc.Brokers, kc.Topics.AnalyticsEvents)
		a.consumer = kafka.NewConsumer(kc.Brokers, kc.ConsumerGroup, kc.Topics.AnalyticsEvents, a.Aggregator.HandleMessage)
		publisher = a.producer
	} else {
		local = a.Aggregator
	}
	a.Collector = analytics.NewCollector(publisher, local, analyticsBatchSize, analyticsFlushInterval)
}

func (a *App) registerHealthChecks() {
	a.Health.Register("index", func(context.Context) health.ComponentHealth {
		snap := a.Engine.Snapshot()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not built"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents", snap.Generation, snap.Index.DocCount()),
		}
	})
	if a.Config.Redis.Enabled {
		a.Health.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if a.redis == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			return health.PingCheck(a.redis.Ping, health.StatusDegraded)(ctx)
		})
	}
	if a.pg != nil {
		a.Health.Register("postgres", health.PingCheck(a.pg.Ping, health.StatusDegraded))
	}
}

// Rebuild reloads the corpus, swaps in a fresh index and records the
// attempt for analytics.
func (a *App) Rebuild(ctx context.Context) (*indexer.Snapshot, error) {
	snap, err := a.Engine.Rebuild(ctx, a.provider)
	ev := analytics.IndexEvent{Timestamp: time.Now().UTC()}
	if err != nil {
		ev.Generation = a.Engine.Generation()
		ev.Error = err.Error()
	} else {
		ev.Generation = snap.Generation
		ev.Documents = snap.Index.DocCount()
		ev.Terms = snap.Index.TermCount()
		ev.DurationMs = float64(snap.BuildDuration.Microseconds()) / 1000
	}
	a.Collector.TrackIndex(ev)
	return snap, err
}

// Handler returns the full HTTP surface with middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	handler.New(a.Engine, a.Rebuild, a.Cache, a.Collector, a.Config.Search).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(a.Aggregator).Stats)
	mux.HandleFunc("GET /health/live", a.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", a.Health.ReadyHandler())
	mux.Handle("GET /metrics", a.Metrics.Handler())

	srv := a.Config.Server
	mws := []func(http.Handler) http.Handler{
		middleware.Metrics(a.Metrics),
		middleware.RequestID,
	}
	if len(srv.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(middleware.DefaultCORSConfig(srv.CORSOrigins)))
	}
	if srv.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewLimiter(srv.RateLimit, srv.RateWindow)))
	}
	mws = append(mws, middleware.Timeout(srv.WriteTimeout))
	return middleware.Chain(mux, mws...)
}

// Run starts the background workers, builds the first index and serves
// HTTP until ctx is cancelled. A failed first build is logged and the
// service stays unready until a later rebuild succeeds.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config

	a.Collector.Start(ctx)
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				a.logger.Error("analytics consumer error", "error", err)
			}
		}()
		a.logger.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	if _, err := a.Rebuild(ctx); err != nil {
		a.logger.Error("initial index build failed", "error", err)
	}

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.logger.Warn("corpus watcher unavailable", "error", err)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 && cfg.Metrics.Port != cfg.Server.Port {
		shutdownOps := a.startOpsServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownOps(shutdownCtx); err != nil {
				a.logger.Error("ops server shutdown error", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
		}
	}()

	a.logger.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	a.logger.Info("search service stopped")
	return nil
}

// Close flushes analytics and releases every backend connection.
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.Collector != nil {
		a.Collector.Close()
	}
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pg != nil {
		errs = append(errs, a.pg.Close())
	}
	return errors.Join(errs...)
}
