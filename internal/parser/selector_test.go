package parser

import (
	"testing"

	"github.com/sajowo/price-watch/internal/model"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		url  string
		want model.ParserKind
	}{
		{"https://www.ceneo.pl/12345", model.ParserAggregator},
		{"https://allegro.pl/oferta/narty-123", model.ParserBrowser},
		{"https://www.x-kom.pl/p/123", model.ParserBrowser},
		{"https://www.mediaexpert.pl/p/123", model.ParserBrowser},
		{"https://www.intersport.pl/narty/123", model.ParserBrowser},
		{"https://www.8a.pl/p/123", model.ParserBrowser},
		{"https://skishop.myshopify.com/products/carver", model.ParserShopify},
		{"https://www.skiracecenter.pl/produkt/narty", model.ParserGeneric},
		{"https://unknown-shop.example/p/1", model.ParserGeneric},
		{"not a url at all", model.ParserGeneric},
		// suffix match must not catch lookalike domains
		{"https://notallegro-pl.example/x", model.ParserGeneric},
	}

	for _, tt := range tests {
		if got := Select(tt.url); got != tt.want {
			t.Errorf("Select(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	const url = "https://www.ceneo.pl/12345"
	first := Select(url)
	for i := 0; i < 10; i++ {
		if got := Select(url); got != first {
			t.Fatalf("Select not deterministic: %q then %q", first, got)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.skiracecenter.pl/produkt/narty", "skiracecenter.pl"},
		{"https://allegro.pl/oferta/123", "allegro.pl"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.url); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
