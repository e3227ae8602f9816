package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const maxPageBytes = 10 << 20

var schemePattern = regexp.MustCompile(`^https?://`)

// WebProvider fetches a fixed list of pages and turns each into a document.
// Pages that fail after retries are logged and skipped. When SaveDir is set
// each page's text is also written there under its document id, so a later
// DirProvider over the same folder sees the crawled pages.
type WebProvider struct {
	URLs        []string
	SaveDir     string
	Concurrency int
	UserAgent   string
	Retry       resilience.RetryConfig
	Client      *http.Client
	OnSkip      SkipFunc
	// Limiter, when set, paces every request attempt across all workers.
	Limiter *rate.Limiter

	logger *slog.Logger
}

func NewWebProvider(cfg config.CrawlerConfig) *WebProvider {
	return &WebProvider{
		URLs:        cfg.URLs,
		SaveDir:     cfg.SaveDir,
		Concurrency: cfg.Concurrency,
		UserAgent:   cfg.UserAgent,
		Retry:       resilience.RetryConfig{MaxAttempts: cfg.MaxAttempts},
		Client:      &http.Client{Timeout: cfg.Timeout},
		Limiter:     newCrawlLimiter(cfg.RequestsPerSecond),
		logger:      slog.Default().With("component", "corpus-web"),
	}
}

func newCrawlLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// DocIDFromURL strips an http(s) scheme, removes every slash and appends
// ".txt": "https://example.com/a/b" becomes "example.comab.txt".
func DocIDFromURL(rawURL string) string {
	return strings.ReplaceAll(schemePattern.ReplaceAllString(rawURL, ""), "/", "") + ".txt"
}

// Load crawls every URL with at most Concurrency requests in flight.
func (p *WebProvider) Load(ctx context.Context) (Corpus, error) {
	var (
		mu   sync.Mutex
		docs = make(Corpus, len(p.URLs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Concurrency, 1))

	for _, u := range p.URLs {
		g.Go(func() error {
			id, text, err := p.Fetch(gctx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("skipping page", "url", u, "error", err)
				if p.OnSkip != nil {
					p.OnSkip(DocIDFromURL(u), err)
				}
				return nil
			}
			mu.Lock()
			docs[id] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.logger.Info("crawl finished", "requested", len(p.URLs), "fetched", len(docs))
	return docs, nil
}

// Fetch downloads one page, extracts its text and saves it if SaveDir is
// set. Server errors are retried; client errors are not.
func (p *WebProvider) Fetch(ctx context.Context, rawURL string) (id string, text string, err error) {
	id = DocIDFromURL(rawURL)
	err = resilience.Retry(ctx, "fetch "+rawURL, p.Retry, func() error {
		var fetchErr error
		text, fetchErr = p.fetchOnce(ctx, rawURL)
		return fetchErr
	})
	if err != nil {
		return id, "", err
	}
	if p.SaveDir != "" {
		if err := p.save(id, text); err != nil {
			return id, "", err
		}
	}
	return id, text, nil
}

func (p *WebProvider) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return "", resilience.Permanent(err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", resilience.Permanent(statusErr)
		}
		return "", statusErr
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
	}
	return ExtractText(body)
}

func (p *WebProvider) save(id, text string) error {
	if err := os.MkdirAll(p.SaveDir, 0o755); err != nil {
		return fmt.Errorf("creating save dir: %w", err)
	}
	path := filepath.Join(p.SaveDir, id)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", id, err)
	}
	return nil
}

// skipped elements never contribute visible text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// ExtractText returns the visible text of an HTML document, one line per
// non-blank text node. The title is kept.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			if line := strings.Join(strings.Fields(n.Data), " "); line != "" {
				lines = append(lines, line)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}
