package models

import "time"

// Category is a top-level grouping of listings as defined by the target site.
type Category string

func (c Category) String() string { return string(c) }

// ListingFields holds what a detail visit can recover for one listing.
// A nil pointer means the field could not be found.
type ListingFields struct {
	Title      *string
	PriceRaw   *string
	AddressRaw *string
	ImageURL   *string
}

// IsEmpty reports whether no field was resolved.
func (f ListingFields) IsEmpty() bool {
	return f.Title == nil && f.PriceRaw == nil && f.AddressRaw == nil && f.ImageURL == nil
}

// RawListing is one harvested listing as stored in the raw table.
// Link is the natural key; ID and ScrapedAt are assigned by the sink.
type RawListing struct {
	ID         int64
	Source     string
	Category   Category
	Title      *string
	PriceRaw   *string
	AddressRaw *string
	ImageURL   *string
	Link       string
	Page       int
	ScrapedAt  time.Time
}

// Fields returns the detail portion of the record.
func (r *RawListing) Fields() ListingFields {
	return ListingFields{
		Title:      r.Title,
		PriceRaw:   r.PriceRaw,
		AddressRaw: r.AddressRaw,
		ImageURL:   r.ImageURL,
	}
}

// Listing is a raw listing with the derived canonical columns attached.
// The embedded RawListing is a copy; normalization never touches the source record.
type Listing struct {
	RawListing

	PriceCFA *int64
	City     *string
	TitleLen int
}

// ListingColumns is the column order used by exports of normalized listings.
var ListingColumns = []string{
	"id", "source", "category", "title", "price_raw", "address_raw", "image_url",
	"link", "page", "scraped_at", "price_cfa", "city", "title_len",
}

// NonNullCount returns how many of ListingColumns hold a value.
func (l *Listing) NonNullCount() int {
	n := 0
	count := func(ok bool) {
		if ok {
			n++
		}
	}
	count(l.ID != 0)
	count(l.Source != "")
	count(l.Category != "")
	count(l.Title != nil)
	count(l.PriceRaw != nil)
	count(l.AddressRaw != nil)
	count(l.ImageURL != nil)
	count(l.Link != "")
	count(true) // page
	count(!l.ScrapedAt.IsZero())
	count(l.PriceCFA != nil)
	count(l.City != nil)
	count(true) // title_len
	return n
}

// InsightReport holds the computed analytics over a normalized batch.
type InsightReport struct {
	TotalListings      int
	WithPrice          int
	WithImage          int
	AveragePrice       float64
	MinPrice           int64
	MaxPrice           int64
	MostExpensive      *Listing
	ListingsByCategory map[Category]int
	ListingsByCity     map[string]int
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
