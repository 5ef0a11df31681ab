// Package discovery finds candidate store pages for a product by scraping
// DuckDuckGo's HTML search results.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/parser"
)

const (
	searchBaseURL  = "https://html.duckduckgo.com/html/"
	maxResults     = 15
	requestTimeout = 15 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Domains that show up in product searches but never sell anything.
var skipDomains = []string{
	"youtube.com",
	"wikipedia.org",
	"facebook.com",
}

// Result is one candidate store page.
type Result struct {
	URL     string
	Host    string
	Title   string
	Snippet string
	Parser  model.ParserKind
}

// Searcher scrapes search results for store pages selling a product.
type Searcher struct {
	baseURL string
	log     *slog.Logger
}

// NewSearcher creates a Searcher backed by DuckDuckGo.
func NewSearcher(log *slog.Logger) *Searcher {
	return &Searcher{baseURL: searchBaseURL, log: log}
}

// Search looks up stores selling the named product. Results are deduplicated
// by host and each carries the parser kind its URL would get.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := query + " kup cena sklep"

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(requestTimeout)

	var (
		results []Result
		seen    = map[string]bool{}
	)
	c.OnHTML("div.result", func(e *colly.HTMLElement) {
		if len(results) >= maxResults {
			return
		}
		link := unwrapRedirect(e.ChildAttr("a.result__a", "href"))
		host := hostOf(link)
		if host == "" || seen[host] || skipHost(host) {
			return
		}
		seen[host] = true
		results = append(results, Result{
			URL:     link,
			Host:    host,
			Title:   strings.TrimSpace(e.ChildText("a.result__a")),
			Snippet: strings.TrimSpace(e.ChildText("a.result__snippet")),
			Parser:  parser.Select(link),
		})
	})

	visitURL := s.baseURL + "?q=" + url.QueryEscape(q)
	if err := c.Visit(visitURL); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	c.Wait()

	s.log.Info("store search finished", "query", query, "results", len(results))
	return results, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=... redirect links to the
// destination URL.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		return dest
	}
	return href
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func skipHost(host string) bool {
	for _, d := range skipDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
