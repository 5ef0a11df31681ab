package parser

import (
	"net/url"
	"strings"

	"github.com/sajowo/price-watch/internal/model"
)

// aggregatorDomains list price-comparison sites that show the lowest offer
// across many stores rather than a single listing.
var aggregatorDomains = []string{"ceneo.pl"}

// browserDomains list stores known to block plain HTTP or render prices
// client-side, requiring the headless-browser fetch mode.
var browserDomains = []string{
	"allegro.pl",
	"x-kom.pl",
	"mediaexpert.pl",
	"neonet.pl",
	"intersport.pl",
	"8a.pl",
}

// Select maps a store URL to its parser strategy by domain suffix match.
// Deterministic and side-effect-free; unmatched domains get the generic
// strategy.
func Select(rawURL string) model.ParserKind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.ParserGeneric
	}
	host := strings.ToLower(u.Hostname())

	for _, d := range aggregatorDomains {
		if matchesDomain(host, d) {
			return model.ParserAggregator
		}
	}
	for _, d := range browserDomains {
		if matchesDomain(host, d) {
			return model.ParserBrowser
		}
	}
	if strings.Contains(host, "shopify") || matchesDomain(host, "myshopify.com") {
		return model.ParserShopify
	}
	return model.ParserGeneric
}

// DisplayName derives a readable store name from a URL host.
func DisplayName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
