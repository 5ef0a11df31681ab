// Package model defines the domain types used across the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParserKind identifies the extraction strategy assigned to a store entry.
type ParserKind string

// Supported parser strategies.
const (
	ParserGeneric    ParserKind = "generic"
	ParserShopify    ParserKind = "shopify"
	ParserAggregator ParserKind = "aggregator"
	ParserBrowser    ParserKind = "browser"
)

// Availability describes whether a store currently lists the product as purchasable.
type Availability string

// Supported availability states.
const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	Unknown    Availability = "unknown"
)

// Product is a tracked good with one or more store entries.
type Product struct {
	ID          string
	Name        string
	SKUHint     string
	VariantHint string
	CreatedAt   time.Time
	Entries     []StoreEntry
}

// StoreEntry is one (product, store URL) pairing with its current snapshot.
type StoreEntry struct {
	ID               int64
	ProductID        string
	URL              string
	Name             string
	Parser           ParserKind
	LastPrice        *decimal.Decimal
	Currency         string
	Availability     Availability
	VariantConfirmed bool
	SKUConfirmed     bool
	LastError        *string
	LastCheckedAt    *time.Time
}

// HistoryRecord is one observation appended to a store entry's price history.
// A nil price records a failed or unavailable read.
type HistoryRecord struct {
	EntryID      int64
	ObservedAt   time.Time
	Price        *decimal.Decimal
	Availability Availability
}

// Observation is the outcome of running the scrape pipeline for one entry.
type Observation struct {
	Price            *decimal.Decimal
	Currency         string
	Availability     Availability
	VariantConfirmed bool
	SKUConfirmed     bool
	RawPrice         string
	Err              error
}

// Failed reports whether the observation carries an entry-local failure.
func (o Observation) Failed() bool {
	return o.Err != nil
}

// PriceChange describes a notification-worthy change detected after a refresh
// run: a price delta, a stock transition, or both.
type PriceChange struct {
	ProductName     string
	StoreName       string
	OldPrice        decimal.Decimal
	NewPrice        decimal.Decimal
	OldAvailability Availability
	NewAvailability Availability
}

// Delta returns the absolute price difference (new minus old).
func (c PriceChange) Delta() decimal.Decimal {
	return c.NewPrice.Sub(c.OldPrice)
}

// AvailabilityChanged reports a stock transition between the two known
// states. A move from or to Unknown is not a transition.
func (c PriceChange) AvailabilityChanged() bool {
	known := func(a Availability) bool { return a == InStock || a == OutOfStock }
	return c.OldAvailability != c.NewAvailability &&
		known(c.OldAvailability) && known(c.NewAvailability)
}

// PercentChange returns the delta as a percentage of the old price.
func (c PriceChange) PercentChange() decimal.Decimal {
	if c.OldPrice.IsZero() {
		return decimal.Zero
	}
	return c.Delta().Div(c.OldPrice).Mul(decimal.NewFromInt(100))
}

// RunStatus is a snapshot of the refresh orchestrator's current run.
type RunStatus struct {
	Running   bool
	StartedAt time.Time
	Processed int
	Failed    int
}
