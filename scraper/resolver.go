package scraper

import (
	"context"

	"coinafrique-scraper/fetch"
	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// Resolver visits one listing detail page and extracts its fields. Each
// field goes through structured locator, then page metadata (image only),
// then a free-text scan (price only); a later step runs only when the
// earlier ones found nothing.
type Resolver struct {
	site      *Site
	fetcher   fetch.Fetcher
	extractor *FieldExtractor
	logger    *utils.Logger
}

// NewResolver creates a Resolver.
func NewResolver(site *Site, fetcher fetch.Fetcher, logger *utils.Logger) *Resolver {
	return &Resolver{
		site:      site,
		fetcher:   fetcher,
		extractor: NewFieldExtractor(site),
		logger:    logger,
	}
}

// Resolve returns whatever fields could be found for the listing at
// listingURL. A failed fetch yields an all-nil field set and no error; the
// only error is ErrUnknownCategory.
func (r *Resolver) Resolve(ctx context.Context, listingURL string, cat models.Category) (models.ListingFields, error) {
	cc, err := r.site.Category(cat)
	if err != nil {
		return models.ListingFields{}, err
	}

	doc, err := r.fetcher.Fetch(ctx, listingURL, r.site.DetailReady)
	if err != nil {
		r.logger.Warn("[resolver] Detail page failed for %s: %v", listingURL, err)
		return models.ListingFields{}, nil
	}

	loc := cc.Locators
	fields := models.ListingFields{
		Title:      r.extractor.Text(doc, loc.Title),
		PriceRaw:   r.extractor.Text(doc, loc.Price),
		AddressRaw: r.extractor.Text(doc, loc.Address),
		ImageURL:   r.extractor.Image(doc, loc.Image),
	}

	if fields.ImageURL == nil {
		fields.ImageURL = r.extractor.MetaContent(doc, r.site.PrimaryImageMeta)
	}

	// NOTE: the first number anywhere on the page may be a phone number or a
	// date when the layout has no structured price.
	if fields.PriceRaw == nil {
		if run, ok := utils.FirstNumericRun(visibleText(doc)); ok {
			fields.PriceRaw = &run
		}
	}

	if fields.IsEmpty() {
		r.logger.Debug("[resolver] No fields found on %s", listingURL)
	}
	return fields, nil
}
