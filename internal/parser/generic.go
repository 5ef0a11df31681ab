package parser

import (
	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/price"
)

// Generic extracts a price observation from arbitrary store HTML.
// The ladder runs from the most to the least trustworthy source: embedded
// JSON-LD product data, Open Graph meta tags, microdata, a regex scan near
// the variant hint, and finally a page-wide regex scan that cannot confirm
// the variant.
func Generic(page *fetch.Page, hints Hints) model.Observation {
	d, err := newDocument(page)
	if err != nil {
		return failed(err)
	}

	obs := model.Observation{
		Currency:     price.DefaultCurrency,
		Availability: model.Unknown,
		SKUConfirmed: containsFold(page.Body, hints.SKU),
	}

	if p, avail, variantOK, ok := jsonldOffer(d.jsonldProducts(), hints.Variant); ok {
		obs.Price = &p
		obs.Availability = avail
		obs.VariantConfirmed = variantOK
		return withKeywordAvailability(d, obs)
	}

	if p, ok := d.metaPrice(); ok {
		obs.Price = &p
		obs.Availability = d.metaAvailability()
		obs.VariantConfirmed = containsFold(page.Body, hints.Variant)
		return withKeywordAvailability(d, obs)
	}

	if raw, ok := d.itempropPrice(); ok {
		if p, err := price.Normalize(raw); err == nil {
			obs.Price = &p
			obs.RawPrice = raw
			obs.Currency = price.Currency(raw)
			obs.VariantConfirmed = containsFold(page.Body, hints.Variant)
			return withKeywordAvailability(d, obs)
		}
	}

	if p, ok := d.priceNearHint(hints.Variant); ok {
		obs.Price = &p
		obs.VariantConfirmed = true
		return withKeywordAvailability(d, obs)
	}

	if p, ok := price.FromText(d.raw); ok {
		obs.Price = &p
		return withKeywordAvailability(d, obs)
	}

	obs.Err = ErrNoPrice
	return obs
}

func withKeywordAvailability(d *document, obs model.Observation) model.Observation {
	if obs.Availability == model.Unknown {
		obs.Availability = d.keywordAvailability()
	}
	return obs
}
