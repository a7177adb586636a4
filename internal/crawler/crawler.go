// Package crawler indexes web pages reachable from a seed URL. Every
// admitted URL becomes one work-queue task that fetches the page, admits
// its links, and merges the page's words into the shared index.
package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/crawler/htmlparse"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/workqueue"
)

// Fetcher returns the HTML body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Crawler struct {
	index   *index.ThreadSafe
	queue   *workqueue.Queue
	fetcher Fetcher
	max     int

	mu      sync.Mutex
	visited map[string]struct{}

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a crawler that schedules at most max pages in total, seed
// included. max below 1 is treated as 1.
func New(idx *index.ThreadSafe, queue *workqueue.Queue, fetcher Fetcher, max int, m *metrics.Metrics) *Crawler {
	if max < 1 {
		max = 1
	}
	return &Crawler{
		index:   idx,
		queue:   queue,
		fetcher: fetcher,
		max:     max,
		visited: make(map[string]struct{}),
		metrics: m,
		logger:  slog.Default().With("component", "crawler"),
	}
}

// Crawl admits seed and blocks until every task it led to has finished.
func (c *Crawler) Crawl(ctx context.Context, seed string) error {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "invalid seed url %q: %v", seed, err)
	}
	u = htmlparse.Normalize(u)
	if u == nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "seed must be an absolute http or https url: %q", seed)
	}
	c.admit(ctx, u)
	c.queue.Finish()
	c.logger.Info("crawl finished", "seed", u.String(), "pages", len(c.Visited()), "max", c.max)
	return nil
}

// Visited returns the admitted URLs in ascending order.
func (c *Crawler) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	urls := make([]string, 0, len(c.visited))
	for u := range c.visited {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// admit schedules u if it is new and the cap has room. The task is
// submitted after the lock is released.
func (c *Crawler) admit(ctx context.Context, u *url.URL) bool {
	key := u.String()
	c.mu.Lock()
	_, seen := c.visited[key]
	ok := !seen && len(c.visited) < c.max
	if ok {
		c.visited[key] = struct{}{}
	}
	c.mu.Unlock()

	if ok {
		c.queue.Execute(func() { c.process(ctx, u) })
	}
	return ok
}

func (c *Crawler) process(ctx context.Context, u *url.URL) {
	location := u.String()
	body, err := c.fetcher.Fetch(ctx, location)
	if err != nil {
		c.logger.Warn("fetch failed", "url", location, "error", err)
		return
	}

	page := htmlparse.StripBlockElements(body)
	for _, link := range htmlparse.Links(u, page) {
		c.admit(ctx, link)
	}

	text := htmlparse.StripEntities(htmlparse.StripTags(page))
	local := index.New()
	n, err := tokenizer.StemReader(strings.NewReader(text), func(stem string, position int) {
		local.Add(stem, location, position)
	})
	if err != nil {
		c.logger.Warn("reading page failed", "url", location, "error", err)
		return
	}
	c.index.Merge(local)
	c.metrics.Merged()
	c.metrics.DocIndexed("url")
	c.logger.Debug("page indexed", "url", location, "tokens", n)
}
