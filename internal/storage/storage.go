// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sajowo/price-watch/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	AddEntry(ctx context.Context, e *model.StoreEntry) error
	GetEntry(ctx context.Context, id int64) (*model.StoreEntry, error)
	UpdateEntryURL(ctx context.Context, id int64, newURL, newName string) error
	DeleteEntry(ctx context.Context, id int64) error
	ListAllEntries(ctx context.Context) ([]model.StoreEntry, error)

	ApplyObservation(ctx context.Context, entryID int64, obs model.Observation, at time.Time) error
	ListHistory(ctx context.Context, entryID int64, since time.Time) ([]model.HistoryRecord, error)
	LatestPrices(ctx context.Context, entryID int64, n int) ([]model.HistoryRecord, error)

	Close() error
}

// Windows are the history time ranges the presentation layer can query.
var Windows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"2w":  14 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
}

// WindowSince resolves a named history window to its starting time.
func WindowSince(name string, now time.Time) (time.Time, error) {
	d, ok := Windows[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown history window %q", name)
	}
	return now.Add(-d), nil
}
