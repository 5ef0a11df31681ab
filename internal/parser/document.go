package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/price"
)

// document wraps a parsed page together with its raw markup, which the
// regex-based fallbacks scan directly.
type document struct {
	doc *goquery.Document
	raw string
}

func newDocument(page *fetch.Page) (*document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPrice, err)
	}
	return &document{doc: doc, raw: page.Body}, nil
}

var availabilityMap = map[string]model.Availability{
	"InStock":                         model.InStock,
	"http://schema.org/InStock":       model.InStock,
	"https://schema.org/InStock":      model.InStock,
	"LimitedAvailability":             model.InStock,
	"OutOfStock":                      model.OutOfStock,
	"http://schema.org/OutOfStock":    model.OutOfStock,
	"https://schema.org/OutOfStock":   model.OutOfStock,
	"PreOrder":                        model.OutOfStock,
	"http://schema.org/PreOrder":      model.OutOfStock,
	"https://schema.org/PreOrder":     model.OutOfStock,
}

// jsonldProducts returns every schema.org Product object embedded in the
// page's ld+json scripts, including those nested under @graph.
func (d *document) jsonldProducts() []map[string]any {
	var products []map[string]any

	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		for _, node := range flattenJSONLD(data) {
			if node["@type"] == "Product" {
				products = append(products, node)
			}
		}
	})
	return products
}

func flattenJSONLD(data any) []map[string]any {
	var nodes []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, flattenJSONLD(item)...)
		}
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				nodes = append(nodes, flattenJSONLD(item)...)
			}
		}
	}
	return nodes
}

// offersOf normalizes a Product's offers field to a slice.
func offersOf(product map[string]any) []map[string]any {
	var offers []map[string]any
	switch v := product["offers"].(type) {
	case map[string]any:
		offers = append(offers, v)
	case []any:
		for _, o := range v {
			if m, ok := o.(map[string]any); ok {
				offers = append(offers, m)
			}
		}
	}
	return offers
}

// jsonldOffer searches the structured product data for an offer matching the
// variant hint. When the hint matches an offer's name or SKU the variant is
// confirmed; a lone hintless offer is taken unconfirmed.
func jsonldOffer(products []map[string]any, variantHint string) (decimal.Decimal, model.Availability, bool, bool) {
	for _, product := range products {
		offers := offersOf(product)

		if variantHint != "" {
			for _, offer := range offers {
				name := fmt.Sprint(offer["name"])
				sku := fmt.Sprint(offer["sku"])
				if strings.Contains(name, variantHint) || strings.Contains(sku, variantHint) {
					if p, err := price.Normalize(fmt.Sprint(offer["price"])); err == nil {
						return p, offerAvailability(offer), true, true
					}
				}
			}
		}

		if len(offers) == 1 {
			if p, err := price.Normalize(fmt.Sprint(offers[0]["price"])); err == nil {
				return p, offerAvailability(offers[0]), false, true
			}
		}
	}
	return decimal.Zero, model.Unknown, false, false
}

func offerAvailability(offer map[string]any) model.Availability {
	raw, _ := offer["availability"].(string)
	if a, ok := availabilityMap[raw]; ok {
		return a
	}
	return model.Unknown
}

// metaPrice reads the Open Graph / product meta price tags.
func (d *document) metaPrice() (decimal.Decimal, bool) {
	for _, prop := range []string{"product:price:amount", "og:price:amount"} {
		content, ok := d.metaContent(prop)
		if !ok {
			continue
		}
		if p, err := price.Normalize(content); err == nil {
			return p, true
		}
	}
	return decimal.Zero, false
}

func (d *document) metaAvailability() model.Availability {
	content, ok := d.metaContent("product:availability")
	if !ok {
		return model.Unknown
	}
	v := strings.ToLower(content)
	switch {
	case strings.Contains(v, "instock") || strings.Contains(v, "in stock"):
		return model.InStock
	case strings.Contains(v, "outofstock") || strings.Contains(v, "out of stock"):
		return model.OutOfStock
	default:
		return model.Unknown
	}
}

func (d *document) metaContent(prop string) (string, bool) {
	sel := d.doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).First()
	if sel.Length() == 0 {
		sel = d.doc.Find(fmt.Sprintf(`meta[name=%q]`, prop)).First()
	}
	content, exists := sel.Attr("content")
	return content, exists && content != ""
}

// itempropPrice reads a microdata price annotation, preferring the content
// attribute over the element text.
func (d *document) itempropPrice() (string, bool) {
	sel := d.doc.Find(`[itemprop="price"]`).First()
	if sel.Length() == 0 {
		return "", false
	}
	if content, ok := sel.Attr("content"); ok && content != "" {
		return content, true
	}
	text := strings.TrimSpace(sel.Text())
	return text, text != ""
}

// priceNearHint scans the raw markup around the first occurrence of the
// variant hint for a price-looking string.
func (d *document) priceNearHint(hint string) (decimal.Decimal, bool) {
	if hint == "" {
		return decimal.Zero, false
	}
	idx := strings.Index(d.raw, hint)
	if idx < 0 {
		return decimal.Zero, false
	}
	start := max(0, idx-300)
	end := min(len(d.raw), idx+600)
	return price.FromText(d.raw[start:end])
}

// keywordAvailability infers stock state from Polish and English stock phrases.
// Negative phrases are checked first: "niedostępny" contains "dostępny".
func (d *document) keywordAvailability() model.Availability {
	text := strings.ToLower(d.doc.Text())
	for _, kw := range []string{"niedostępny", "wyprzedany", "brak towaru", "out of stock", "sold out"} {
		if strings.Contains(text, kw) {
			return model.OutOfStock
		}
	}
	for _, kw := range []string{"do koszyka", "dostępny", "w magazynie", "add to cart", "in stock"} {
		if strings.Contains(text, kw) {
			return model.InStock
		}
	}
	return model.Unknown
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToUpper(haystack), strings.ToUpper(needle))
}
