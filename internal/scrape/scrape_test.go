package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/parser"
)

type stubFetcher struct {
	page    *fetch.Page
	err     error
	lastURL string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	s.lastURL = url
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

type stubRenderer struct {
	page   *fetch.Page
	err    error
	called bool
}

func (s *stubRenderer) Render(_ context.Context, _ string) (*fetch.Page, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const metaPage = `<html><head><meta property="og:price:amount" content="1399.00"></head><body>w magazynie</body></html>`

func TestCheckGeneric(t *testing.T) {
	f := &stubFetcher{page: &fetch.Page{URL: "https://shop.example/p/1", Body: metaPage}}
	p := New(f, &stubRenderer{}, discard())

	entry := model.StoreEntry{ID: 1, URL: "https://shop.example/p/1", Parser: model.ParserGeneric}
	obs := p.Check(context.Background(), entry, parser.Hints{})

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "1399" {
		t.Errorf("price = %v, want 1399", obs.Price)
	}
	if f.lastURL != "https://shop.example/p/1" {
		t.Errorf("fetched %q", f.lastURL)
	}
}

func TestCheckShopifyRewritesURL(t *testing.T) {
	f := &stubFetcher{page: &fetch.Page{Body: `{"product":{"variants":[{"option1":"176","price":"1749.99"}]}}`}}
	p := New(f, &stubRenderer{}, discard())

	entry := model.StoreEntry{URL: "https://shop.pl/products/carver", Parser: model.ParserShopify}
	obs := p.Check(context.Background(), entry, parser.Hints{Variant: "176"})

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if f.lastURL != "https://shop.pl/products/carver.json" {
		t.Errorf("fetched %q, want product.json endpoint", f.lastURL)
	}
}

func TestCheckBrowserUsesRenderer(t *testing.T) {
	r := &stubRenderer{page: &fetch.Page{Body: metaPage}}
	p := New(&stubFetcher{}, r, discard())

	entry := model.StoreEntry{URL: "https://allegro.pl/oferta/1", Parser: model.ParserBrowser}
	obs := p.Check(context.Background(), entry, parser.Hints{})

	if !r.called {
		t.Fatal("expected renderer to be used for browser strategy")
	}
	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
}

func TestCheckFetchErrorRecorded(t *testing.T) {
	f := &stubFetcher{err: fetch.ErrBlocked}
	p := New(f, &stubRenderer{}, discard())

	entry := model.StoreEntry{URL: "https://shop.example/p/1", Parser: model.ParserGeneric}
	obs := p.Check(context.Background(), entry, parser.Hints{})

	if !errors.Is(obs.Err, fetch.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", obs.Err)
	}
	if obs.Price != nil {
		t.Error("expected nil price on fetch failure")
	}
}

func TestCheckBrowserUnavailableRecorded(t *testing.T) {
	r := &stubRenderer{err: fetch.ErrBrowserUnavailable}
	p := New(&stubFetcher{}, r, discard())

	entry := model.StoreEntry{URL: "https://allegro.pl/oferta/1", Parser: model.ParserBrowser}
	obs := p.Check(context.Background(), entry, parser.Hints{})

	if !errors.Is(obs.Err, fetch.ErrBrowserUnavailable) {
		t.Fatalf("expected ErrBrowserUnavailable, got %v", obs.Err)
	}
}

func TestCheckDerivesParserWhenUnset(t *testing.T) {
	r := &stubRenderer{page: &fetch.Page{Body: metaPage}}
	p := New(&stubFetcher{}, r, discard())

	entry := model.StoreEntry{URL: "https://allegro.pl/oferta/1"}
	p.Check(context.Background(), entry, parser.Hints{})

	if !r.called {
		t.Error("expected parser derived from domain to pick the browser mode")
	}
}
