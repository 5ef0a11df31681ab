// Package fetch downloads store pages over plain HTTP or a headless browser
// and classifies failures into the scrape error taxonomy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Typed fetch failures. All are entry-local: the orchestrator records them on
// the store entry instead of aborting the run.
var (
	ErrBlocked            = errors.New("fetch: blocked by anti-bot protection")
	ErrNotFound           = errors.New("fetch: page not found")
	ErrTimeout            = errors.New("fetch: request timed out")
	ErrServerError        = errors.New("fetch: server error")
	ErrBrowserUnavailable = errors.New("fetch: browser engine unavailable")
)

const (
	requestTimeout = 15 * time.Second
	maxRetries     = 2
	retryDelay     = 1500 * time.Millisecond
	maxBodySize    = 5 * 1024 * 1024

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// Page is a fetched document ready for parsing.
type Page struct {
	URL  string
	Body string
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs plain HTTP page fetches with browser-like headers and retry.
type Client struct {
	client     HTTPClient
	timeout    time.Duration
	retryDelay time.Duration
}

// New creates a Client with the given HTTP client.
func New(client HTTPClient) *Client {
	return &Client{
		client:     client,
		timeout:    requestTimeout,
		retryDelay: retryDelay,
	}
}

// Fetch downloads the page at url. Blocked responses and server errors are
// retried with backoff; 404 is terminal.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	var page *Page

	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := c.fetchOnce(ctx, url)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return retry.RetryableError(err)
		}
		page = p
		return nil
	})
	if err != nil {
		// The caller's deadline can expire during a backoff sleep, in which
		// case retry.Do hands back the bare context error.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return page, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Page{URL: url, Body: string(body)}, nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (HTTP %d)", ErrBlocked, status)
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return fmt.Errorf("%w (HTTP %d)", ErrServerError, status)
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("http get: %w", err)
}
