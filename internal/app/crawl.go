package app

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// CrawlOptions selects where crawled pages are stored besides being
// returned.
type CrawlOptions struct {
	SaveDir  string
	Postgres bool
}

// Crawl fetches urls with the crawler settings from cfg. Pages that fail
// are skipped; the fetched ones are written to opts.SaveDir and upserted
// into PostgreSQL when requested.
func Crawl(ctx context.Context, cfg *config.Config, urls []string, opts CrawlOptions) (corpus.Corpus, error) {
	log := slog.Default().With("component", "crawl")

	var pg *postgres.Client
	if opts.Postgres {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		defer client.Close()
		if err := client.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		pg = client
	}

	crawlerCfg := cfg.Crawler
	crawlerCfg.URLs = urls
	crawlerCfg.SaveDir = opts.SaveDir
	web := corpus.NewWebProvider(crawlerCfg)
	web.OnSkip = func(id string, err error) {
		log.Warn("page skipped", "url", id, "error", err)
	}

	pages, err := web.Load(ctx)
	if err != nil {
		return nil, err
	}
	if pg != nil && len(pages) > 0 {
		if err := pg.SaveDocuments(ctx, pages); err != nil {
			return pages, err
		}
		log.Info("pages stored in postgres", "pages", len(pages))
	}
	log.Info("crawl finished", "requested", len(urls), "fetched", len(pages))
	return pages, nil
}
