// Package fetcher downloads HTML pages for the crawler.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/resilience"
)

var (
	ErrNotHTML          = errors.New("response is not html")
	ErrBadStatus        = errors.New("unexpected response status")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Fetcher issues GET requests with a bounded number of redirect hops. Only
// 200 text/html responses produce a body. Transport errors are retried with
// backoff, and a host that keeps failing is skipped for a cool-down period.
type Fetcher struct {
	client   *http.Client
	agent    string
	maxBody  int64
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(cfg config.CrawlerConfig, m *metrics.Metrics) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects < 0 {
		maxRedirects = 0
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		agent:   cfg.UserAgent,
		maxBody: maxBody,
		retry: resilience.RetryConfig{
			MaxAttempts:  1 + max(cfg.RetryAttempts, 0),
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			OnRetry:      func(int, error) { m.FetchRetried() },
		},
		breakers: resilience.NewBreakers(resilience.BreakerConfig{
			FailureThreshold: cfg.HostFailureThreshold,
			ResetTimeout:     cfg.HostCooldown,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "fetcher"),
	}
}

// Fetch returns the body of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	var body string
	err = resilience.Retry(ctx, "fetch "+rawURL, f.retry, func() error {
		var err error
		body, err = f.fetchOnce(ctx, u)
		return err
	})
	f.metrics.Fetched(err == nil)
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	if f.agent != "" {
		req.Header.Set("User-Agent", f.agent)
	}

	var resp *http.Response
	var doErr error
	err = f.breakers.Execute(u.Host, func() error {
		resp, doErr = f.client.Do(req)
		if errors.Is(doErr, ErrTooManyRedirects) {
			// The host answered; only the chain was too long.
			return nil
		}
		return doErr
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "", resilience.Permanent(err)
	case errors.Is(doErr, ErrTooManyRedirects):
		if resp != nil {
			resp.Body.Close()
		}
		return "", resilience.Permanent(fmt.Errorf("%w: %s", ErrTooManyRedirects, u))
	case err != nil:
		return "", fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resilience.Permanent(fmt.Errorf("%w: %s returned %d", ErrBadStatus, u, resp.StatusCode))
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return "", resilience.Permanent(fmt.Errorf("%w: %s is %q", ErrNotHTML, u, resp.Header.Get("Content-Type")))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", u, err)
	}
	return string(data), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}
