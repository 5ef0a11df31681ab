// Package parser implements the extraction strategies that turn fetched store
// pages into structured price observations, and the selector that assigns a
// strategy to a store URL.
package parser

import (
	"errors"

	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/model"
)

// Typed parse failures. Entry-local: recorded on the store entry, never raised.
var (
	ErrNoPrice  = errors.New("parse: no price pattern found on page")
	ErrBadPrice = errors.New("parse: matched price text is not a valid amount")
)

// Hints carry the product-level signals a strategy uses to confirm it is
// looking at the right listing: the expected SKU and variant (e.g. a ski
// length) as free text.
type Hints struct {
	SKU     string
	Variant string
}

// Strategy is a pure extraction function over a fetched page.
type Strategy func(page *fetch.Page, hints Hints) model.Observation

// ForKind returns the strategy implementing the given parser kind.
// The browser kind shares the generic heuristics; it differs only in how the
// page was fetched.
func ForKind(kind model.ParserKind) Strategy {
	switch kind {
	case model.ParserShopify:
		return Shopify
	case model.ParserAggregator:
		return Aggregator
	case model.ParserGeneric, model.ParserBrowser:
		return Generic
	default:
		return Generic
	}
}

func failed(err error) model.Observation {
	return model.Observation{
		Availability: model.Unknown,
		Err:          err,
	}
}
