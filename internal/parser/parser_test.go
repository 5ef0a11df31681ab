package parser

import (
	"errors"
	"os"
	"testing"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
)

func loadFixture(t *testing.T, name string) *fetch.Page {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return &fetch.Page{URL: "https://shop.example/p/1", Body: string(data)}
}

var skiHints = Hints{SKU: "ACV176", Variant: "176"}

func TestGenericJSONLD(t *testing.T) {
	obs := Generic(loadFixture(t, "jsonld.html"), skiHints)

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "1749.99" {
		t.Errorf("price = %v, want 1749.99", obs.Price)
	}
	if obs.Availability != model.InStock {
		t.Errorf("availability = %q, want in_stock", obs.Availability)
	}
	if !obs.VariantConfirmed {
		t.Error("expected variant confirmed from matching offer")
	}
	if !obs.SKUConfirmed {
		t.Error("expected SKU confirmed from page text")
	}
}

func TestGenericMetaTags(t *testing.T) {
	obs := Generic(loadFixture(t, "meta.html"), skiHints)

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "2120" {
		t.Errorf("price = %v, want 2120", obs.Price)
	}
	if obs.Availability != model.InStock {
		t.Errorf("availability = %q, want in_stock", obs.Availability)
	}
	if !obs.VariantConfirmed {
		t.Error("expected variant confirmed: hint appears on page")
	}
}

func TestGenericRegexNearVariant(t *testing.T) {
	obs := Generic(loadFixture(t, "regex.html"), Hints{Variant: "176"})

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "1899" {
		t.Errorf("price = %v, want 1899", obs.Price)
	}
	if !obs.VariantConfirmed {
		t.Error("expected variant confirmed from proximity match")
	}
	if obs.Availability != model.InStock {
		t.Errorf("availability = %q, want in_stock from keyword", obs.Availability)
	}
}

func TestGenericNoPrice(t *testing.T) {
	page := &fetch.Page{URL: "https://shop.example/p/1", Body: "<html><body>strona w budowie</body></html>"}
	obs := Generic(page, skiHints)

	if !errors.Is(obs.Err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", obs.Err)
	}
	if obs.Price != nil {
		t.Errorf("expected nil price, got %v", obs.Price)
	}
}

func TestShopify(t *testing.T) {
	obs := Shopify(loadFixture(t, "shopify.json"), skiHints)

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "1749.99" {
		t.Errorf("price = %v, want 1749.99", obs.Price)
	}
	if obs.Availability != model.InStock {
		t.Errorf("availability = %q, want in_stock", obs.Availability)
	}
	if !obs.VariantConfirmed || !obs.SKUConfirmed {
		t.Errorf("confirmed flags = variant:%v sku:%v, want both true", obs.VariantConfirmed, obs.SKUConfirmed)
	}
}

func TestShopifyVariantMissing(t *testing.T) {
	obs := Shopify(loadFixture(t, "shopify.json"), Hints{Variant: "182"})

	if !errors.Is(obs.Err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", obs.Err)
	}
	if obs.VariantConfirmed {
		t.Error("variant must not be confirmed when missing")
	}
}

func TestShopifyMalformedJSON(t *testing.T) {
	page := &fetch.Page{URL: "https://shop.example/products/x.json", Body: "<html>not json</html>"}
	obs := Shopify(page, skiHints)

	if !errors.Is(obs.Err, ErrBadPrice) {
		t.Fatalf("expected ErrBadPrice, got %v", obs.Err)
	}
}

func TestAggregator(t *testing.T) {
	obs := Aggregator(loadFixture(t, "aggregator.html"), skiHints)

	if obs.Err != nil {
		t.Fatalf("unexpected error: %v", obs.Err)
	}
	if obs.Price == nil || obs.Price.String() != "1999.99" {
		t.Errorf("price = %v, want 1999.99", obs.Price)
	}
	if obs.VariantConfirmed {
		t.Error("aggregators never confirm the variant")
	}
	if obs.Availability != model.Unknown {
		t.Errorf("availability = %q, want unknown", obs.Availability)
	}
}

func TestProductJSONURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://shop.pl/products/my-ski", "https://shop.pl/products/my-ski.json"},
		{"https://shop.pl/products/my-ski/", "https://shop.pl/products/my-ski.json"},
		{"https://shop.pl/products/my-ski.json", "https://shop.pl/products/my-ski.json"},
		{"https://shop.pl/products/my-ski?variant=42", "https://shop.pl/products/my-ski.json"},
	}
	for _, tt := range tests {
		got, err := ProductJSONURL(tt.in)
		if err != nil {
			t.Fatalf("ProductJSONURL(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ProductJSONURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestForKindExhaustive(t *testing.T) {
	for _, kind := range []model.ParserKind{
		model.ParserGeneric, model.ParserShopify, model.ParserAggregator, model.ParserBrowser,
	} {
		if ForKind(kind) == nil {
			t.Errorf("no strategy for kind %q", kind)
		}
	}
}
