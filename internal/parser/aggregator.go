package parser

import (
	"regexp"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/price"
)

// Aggregator listing pages describe the lowest offer as "od 1 999,99 zł" in
// their meta description.
var (
	lowestOfferRe = regexp.MustCompile(`od\s+([\d\s\x{00a0}]+[,.]\d{2})\s*z`)
	anyOfferRe    = regexp.MustCompile(`([\d\s\x{00a0}]+[,.]\d{2})\s*z`)
)

// Aggregator extracts the lowest visible offer from a price-comparison page
// as a single synthetic price point. Aggregators do not filter by variant, so
// the variant is never confirmed, and availability stays unknown unless the
// page states it explicitly.
func Aggregator(page *fetch.Page, hints Hints) model.Observation {
	d, err := newDocument(page)
	if err != nil {
		return failed(err)
	}

	obs := model.Observation{
		Currency:     price.DefaultCurrency,
		Availability: model.Unknown,
		SKUConfirmed: containsFold(page.Body, hints.SKU),
	}

	for _, prop := range []string{"og:description", "description"} {
		desc, ok := d.metaContent(prop)
		if !ok {
			continue
		}
		m := lowestOfferRe.FindStringSubmatch(desc)
		if m == nil {
			m = anyOfferRe.FindStringSubmatch(desc)
		}
		if m == nil {
			continue
		}
		if p, err := price.Normalize(m[1]); err == nil {
			obs.Price = &p
			obs.RawPrice = m[1]
			return obs
		}
	}

	if p, _, _, ok := jsonldOffer(d.jsonldProducts(), ""); ok {
		obs.Price = &p
		return obs
	}

	if p, ok := d.metaPrice(); ok {
		obs.Price = &p
		return obs
	}

	obs.Err = ErrNoPrice
	return obs
}
