package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/price"
)

// ProductJSONURL converts a Shopify product page URL into its public
// product.json endpoint: https://shop.pl/products/slug → .../slug.json.
func ProductJSONURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, ".json") {
		u.Path += ".json"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

type shopifyVariant struct {
	Title     string `json:"title"`
	Option1   string `json:"option1"`
	Option2   string `json:"option2"`
	Option3   string `json:"option3"`
	Price     any    `json:"price"`
	SKU       string `json:"sku"`
	Available *bool  `json:"available"`
}

type shopifyPayload struct {
	Product struct {
		Title    string           `json:"title"`
		Handle   string           `json:"handle"`
		Tags     any              `json:"tags"`
		Variants []shopifyVariant `json:"variants"`
	} `json:"product"`
}

// Shopify reads price and availability directly from a Shopify product.json
// response. Higher confidence than HTML heuristics: the variant is matched
// against its declared options, not page text.
func Shopify(page *fetch.Page, hints Hints) model.Observation {
	var payload shopifyPayload
	if err := json.Unmarshal([]byte(page.Body), &payload); err != nil {
		return failed(fmt.Errorf("%w: %s", ErrBadPrice, err))
	}
	product := payload.Product

	obs := model.Observation{
		Currency:     price.DefaultCurrency,
		Availability: model.Unknown,
	}

	searchable := product.Title + " " + product.Handle + " " + tagsText(product.Tags)
	obs.SKUConfirmed = containsFold(searchable, hints.SKU)

	variant, confirmed := matchVariant(product.Variants, hints.Variant)
	if variant == nil {
		obs.Err = fmt.Errorf("%w: variant %q not in product.json", ErrNoPrice, hints.Variant)
		return obs
	}
	obs.VariantConfirmed = confirmed

	raw := fmt.Sprint(variant.Price)
	p, err := price.Normalize(raw)
	if err != nil {
		obs.Err = fmt.Errorf("%w: %s", ErrBadPrice, err)
		return obs
	}
	obs.Price = &p
	obs.RawPrice = raw

	// The public endpoint does not always expose the available field;
	// absent means unknown, not out of stock.
	if variant.Available != nil {
		if *variant.Available {
			obs.Availability = model.InStock
		} else {
			obs.Availability = model.OutOfStock
		}
	}

	if containsFold(variant.SKU, hints.SKU) {
		obs.SKUConfirmed = true
	}
	return obs
}

func matchVariant(variants []shopifyVariant, hint string) (*shopifyVariant, bool) {
	if hint != "" {
		for i := range variants {
			v := &variants[i]
			if v.Option1 == hint || v.Option2 == hint || v.Option3 == hint ||
				strings.Contains(v.Title, hint) {
				return v, true
			}
		}
		return nil, false
	}
	if len(variants) == 1 {
		return &variants[0], false
	}
	return nil, false
}

func tagsText(tags any) string {
	switch v := tags.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, t := range v {
			parts = append(parts, fmt.Sprint(t))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
