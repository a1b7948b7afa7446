// Package fetch implements the retrying page fetcher shared by every
// scraper and the store client.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/metrics"
)

// ErrTooManyRetries is returned once the retry budget for a URL is spent.
var ErrTooManyRetries = errors.New("fetch: too many retries")

// Config controls fetch behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client performs HTTP GETs with a fixed header profile and bounded,
// jittered retries. It satisfies regulator.PageFetcher.
type Client struct {
	cfg           Config
	policy        *RetryPolicy
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = chromeUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())

	return &Client{
		cfg:           cfg,
		policy:        NewRetryPolicy(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay),
		baseCollector: c,
		logger:        logger.Named("fetch"),
	}
}

// Get fetches an HTML page.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, ProfilePage)
}

// GetFeed fetches an RSS/Atom feed.
func (c *Client) GetFeed(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, ProfileFeed)
}

// Download fetches a binary document such as a PDF.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, ProfileDocument)
}

func (c *Client) get(ctx context.Context, rawURL string, profile HeaderProfile) ([]byte, error) {
	host := hostOf(rawURL)
	start := time.Now()

	var lastErr error
	for attempt := 0; ; attempt++ {
		body, err := c.visit(ctx, rawURL, profile)
		if err == nil {
			metrics.PageFetch(host, "ok", time.Since(start))
			return body, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.PageFetch(host, "canceled", time.Since(start))
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}
		if !c.policy.ShouldRetry(err, attempt) {
			break
		}
		metrics.PageFetchRetry(host)
		c.logger.Warn("fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			metrics.PageFetch(host, "canceled", time.Since(start))
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		case <-time.After(c.policy.Backoff(attempt)):
		}
	}

	metrics.PageFetch(host, "error", time.Since(start))
	return nil, fmt.Errorf("%w: %s: %v", ErrTooManyRetries, rawURL, lastErr)
}

// visit executes a single attempt through a cloned collector.
func (c *Client) visit(ctx context.Context, rawURL string, profile HeaderProfile) ([]byte, error) {
	collector := c.baseCollector.Clone()
	collector.UserAgent = c.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	// Retries revisit the same URL on purpose.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(c.cfg.Timeout)

	headers := headersFor(profile)
	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("unexpected status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, fetchErr
		}
		if err != nil {
			return nil, err
		}
		return body, nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Host
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
