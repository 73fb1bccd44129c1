package storage

import (
	"context"

	"coinafrique-scraper/models"
)

// Sink is the deduplicating store behind a crawl. Uniqueness is enforced
// on the listing link.
type Sink interface {
	// BulkInsertIgnoringDuplicates stores records whose link is new and
	// returns how many were inserted.
	BulkInsertIgnoringDuplicates(ctx context.Context, records []*models.RawListing) (int, error)
	// QueryAll returns every stored record, most recently inserted first.
	QueryAll(ctx context.Context) ([]*models.RawListing, error)
	// WriteTable replaces the named table with listings.
	WriteTable(ctx context.Context, name string, listings []*models.Listing) error
	Close() error
}

// ListingWriter exports normalized listings outside the store.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}
