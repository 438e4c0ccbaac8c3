// Package crawler owns the URL frontier and visited-set bookkeeping and
// drives batches of concurrent fetch-extract-clean pipelines.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/ragsmith/ragsmith/internal/config"
	"github.com/ragsmith/ragsmith/internal/models"
	"github.com/ragsmith/ragsmith/pkg/cleaner"
	"github.com/ragsmith/ragsmith/pkg/extractor"
	"github.com/ragsmith/ragsmith/pkg/fetcher"
	"github.com/ragsmith/ragsmith/pkg/robots"
	"github.com/ragsmith/ragsmith/pkg/storage"
)

// Crawler crawls one website from a seed URL. A Crawler runs a single crawl;
// a fresh instance is required per run. The frontier and visited set are
// mutated only between batches, never by pipeline bodies.
type Crawler struct {
	baseURL    *url.URL
	rootDomain string
	cfg        config.CrawlerConfig
	fetcher    *fetcher.Fetcher
	extractor  *extractor.Extractor
	store      *storage.Store
	logger     *logrus.Logger

	mu       sync.Mutex
	frontier []string
	claimed  map[string]bool
	visited  map[string]bool
	records  []*models.Page
}

// New validates the seed URL and assembles the pipeline components. The
// robots policy is fetched once, here; an unreachable robots.txt degrades the
// gate to fail-open.
func New(seedURL string, cfg *config.Config, logger *logrus.Logger) (*Crawler, error) {
	u, err := config.ValidateSeed(seedURL)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage.OutputDir, u.Host, logger)
	if err != nil {
		return nil, err
	}

	f := fetcher.New(fetcher.Options{
		RateLimit:     cfg.Crawler.RateLimit,
		MaxRetries:    cfg.Crawler.MaxRetries,
		Timeout:       cfg.Crawler.Timeout,
		RetryMinDelay: cfg.Crawler.RetryMinDelay,
		RetryMaxDelay: cfg.Crawler.RetryMaxDelay,
		RetryOnStatus: cfg.Crawler.RetryOnStatus,
	}, nil, logger)

	gate, err := robots.NewGate(context.Background(), f.Client(), seedURL, cfg.Crawler.RespectRobots, logger)
	if err != nil {
		return nil, err
	}
	f.SetGate(gate)

	c := &Crawler{
		baseURL:   u,
		cfg:       cfg.Crawler,
		fetcher:   f,
		extractor: extractor.New(u.Host, logger),
		store:     store,
		logger:    logger,
		claimed:   make(map[string]bool),
		visited:   make(map[string]bool),
	}

	if cfg.Crawler.IncludeSubdomains {
		root, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
		if err != nil {
			logger.Warnf("Could not determine registrable domain for %s, scoping to exact host: %v", u.Hostname(), err)
		} else {
			c.rootDomain = root
		}
	}

	return c, nil
}

// Crawl runs the batch loop until the frontier drains, the page cap is
// reached, or ctx is cancelled, then writes the index and releases the
// shared transport.
func (c *Crawler) Crawl(ctx context.Context) error {
	defer c.fetcher.Close()

	c.claim(c.baseURL.String())

	for ctx.Err() == nil {
		batch := c.nextBatch()
		if len(batch) == 0 {
			break
		}

		results := make([]*models.Page, len(batch))
		var g errgroup.Group
		g.SetLimit(c.cfg.MaxWorkers)
		for i, pageURL := range batch {
			g.Go(func() error {
				page, err := c.scrapeOne(ctx, pageURL)
				if err != nil {
					c.logger.Errorf("Error processing %s: %v", pageURL, err)
					return nil
				}
				results[i] = page
				return nil
			})
		}
		g.Wait()

		c.fold(batch, results)
	}

	c.mu.Lock()
	records := make([]*models.Page, len(c.records))
	copy(records, c.records)
	c.mu.Unlock()

	if err := c.store.SaveIndex(c.baseURL.String(), records); err != nil {
		return fmt.Errorf("saving crawl index: %w", err)
	}
	c.logger.Infof("Crawl finished: %d pages indexed, %d URLs visited", len(records), len(c.Visited()))
	return ctx.Err()
}

// ScrapePage runs the pipeline for a single URL and persists the record.
// Used by single-page mode; the URL is still marked visited.
func (c *Crawler) ScrapePage(ctx context.Context, pageURL string) (*models.Page, error) {
	defer c.fetcher.Close()

	c.mu.Lock()
	c.claimed[pageURL] = true
	c.visited[pageURL] = true
	c.mu.Unlock()

	return c.scrapeOne(ctx, pageURL)
}

// nextBatch removes up to MaxWorkers URLs from the frontier head, bounded by
// the remaining page budget, and marks them visited at dispatch time.
func (c *Crawler) nextBatch() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := c.cfg.MaxWorkers
	if c.cfg.MaxPages > 0 {
		remaining := c.cfg.MaxPages - len(c.visited)
		if remaining <= 0 {
			return nil
		}
		if remaining < limit {
			limit = remaining
		}
	}

	var batch []string
	for len(batch) < limit && len(c.frontier) > 0 {
		pageURL := c.frontier[0]
		c.frontier = c.frontier[1:]
		if c.visited[pageURL] {
			continue
		}
		c.visited[pageURL] = true
		batch = append(batch, pageURL)
	}
	return batch
}

// fold accumulates successful records in dispatch order and appends their
// newly claimed in-scope links to the frontier tail.
func (c *Crawler) fold(batch []string, results []*models.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range batch {
		page := results[i]
		if page == nil {
			continue
		}
		c.records = append(c.records, page)
		for _, link := range page.Links {
			if !c.inScope(link) {
				continue
			}
			if c.claimed[link.URL] {
				continue
			}
			c.claimed[link.URL] = true
			c.frontier = append(c.frontier, link.URL)
		}
	}
}

// inScope reports whether a discovered link should be enqueued. Internal
// links always qualify; with subdomain crawling enabled, fragment-free links
// within the seed's registrable domain qualify as well.
func (c *Crawler) inScope(link models.Link) bool {
	if link.Type == models.LinkInternal {
		return true
	}
	if c.rootDomain == "" || strings.Contains(link.URL, "#") {
		return false
	}
	u, err := url.Parse(link.URL)
	if err != nil {
		return false
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	return err == nil && root == c.rootDomain
}

func (c *Crawler) claim(pageURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.claimed[pageURL] {
		c.claimed[pageURL] = true
		c.frontier = append(c.frontier, pageURL)
	}
}

// scrapeOne is the per-URL pipeline: gate, fetch, parse, extract, clean,
// persist. A robots rejection or parse failure is not an error; it simply
// produces no record. Persistence failures are logged and the record is
// still indexed.
func (c *Crawler) scrapeOne(ctx context.Context, pageURL string) (*models.Page, error) {
	c.logger.Infof("Scraping page: %s", pageURL)

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if errors.Is(err, fetcher.ErrDisallowed) {
			return nil, nil
		}
		return nil, err
	}

	doc, err := extractor.Parse(body)
	if err != nil {
		c.logger.Errorf("Error parsing HTML from %s: %v", pageURL, err)
		return nil, nil
	}

	page, err := c.extractor.Extract(doc, pageURL)
	if err != nil {
		return nil, err
	}
	page.RAGContent = cleaner.Clean(page.MainContent)

	if err := c.store.SavePage(page); err != nil {
		c.logger.Errorf("Error saving content for %s: %v", pageURL, err)
	}
	return page, nil
}

// Visited returns a snapshot of every URL dispatched for fetching, including
// ones that failed or were blocked.
func (c *Crawler) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	urls := make([]string, 0, len(c.visited))
	for u := range c.visited {
		urls = append(urls, u)
	}
	return urls
}

// Statistics computes crawl statistics from the visited set and the artifact
// directory. Valid after Crawl or ScrapePage completes.
func (c *Crawler) Statistics() (*models.Statistics, error) {
	return c.store.Statistics(c.Visited())
}

// OutputDir exposes the artifact directory for reporting.
func (c *Crawler) OutputDir() string {
	return c.store.OutputDir()
}
