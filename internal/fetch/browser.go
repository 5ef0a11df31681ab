package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	browserTimeout = 30 * time.Second
	settleDelay    = 2 * time.Second
)

// Browser fetches pages through headless Chromium for stores that block plain
// HTTP or render prices client-side. Strictly slower than Client; reserved for
// entries assigned the browser strategy.
type Browser struct {
	log     *slog.Logger
	timeout time.Duration
	settle  time.Duration
}

// NewBrowser creates a Browser fetcher.
func NewBrowser(log *slog.Logger) *Browser {
	return &Browser{
		log:     log,
		timeout: browserTimeout,
		settle:  settleDelay,
	}
}

// Render navigates to url in an isolated browser context, waits for the page
// to settle past client-side bot challenges, and returns the rendered DOM.
// Every exit path releases the allocator and tab contexts.
func (b *Browser) Render(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("lang", "pl-PL"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, classifyBrowser(err)
	}

	b.log.Debug("rendered page", "url", url, "bytes", len(html))
	return &Page{URL: url, Body: html}, nil
}

func classifyBrowser(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || strings.Contains(err.Error(), "executable file not found") {
		return fmt.Errorf("%w: %s", ErrBrowserUnavailable, err)
	}
	return fmt.Errorf("browser navigate: %w", err)
}
