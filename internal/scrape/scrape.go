// Package scrape runs the per-entry pipeline: pick a strategy for the store
// URL, fetch the page in the right mode, and extract a price observation.
package scrape

import (
	"context"
	"log/slog"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/parser"
)

// PageFetcher fetches a page over plain HTTP.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Renderer fetches a page through browser automation.
type Renderer interface {
	Render(ctx context.Context, url string) (*fetch.Page, error)
}

// Pipeline checks a single store entry end to end. Every failure mode yields
// an observation with the error recorded; Check never returns an error or
// panics up to the caller.
type Pipeline struct {
	fetcher PageFetcher
	browser Renderer
	log     *slog.Logger
}

// New creates a Pipeline with the given fetch implementations.
func New(fetcher PageFetcher, browser Renderer, log *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		browser: browser,
		log:     log,
	}
}

// Check fetches and parses one store entry's page.
func (p *Pipeline) Check(ctx context.Context, entry model.StoreEntry, hints parser.Hints) model.Observation {
	kind := entry.Parser
	if kind == "" {
		kind = parser.Select(entry.URL)
	}

	page, err := p.fetchFor(ctx, kind, entry.URL)
	if err != nil {
		p.log.Warn("fetch failed", "entry_id", entry.ID, "url", entry.URL, "error", err)
		return model.Observation{Availability: model.Unknown, Err: err}
	}

	obs := parser.ForKind(kind)(page, hints)
	if obs.Err != nil {
		p.log.Warn("parse failed", "entry_id", entry.ID, "url", entry.URL, "error", obs.Err)
	} else {
		p.log.Debug("scraped entry",
			"entry_id", entry.ID, "url", entry.URL,
			"price", obs.Price, "availability", obs.Availability)
	}
	return obs
}

func (p *Pipeline) fetchFor(ctx context.Context, kind model.ParserKind, url string) (*fetch.Page, error) {
	switch kind {
	case model.ParserBrowser:
		return p.browser.Render(ctx, url)
	case model.ParserShopify:
		jsonURL, err := parser.ProductJSONURL(url)
		if err != nil {
			return nil, err
		}
		return p.fetcher.Fetch(ctx, jsonURL)
	default:
		return p.fetcher.Fetch(ctx, url)
	}
}
