package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"coinafrique-scraper/fetch"
	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// Paginator discovers the listing links of one catalog page.
type Paginator struct {
	site    *Site
	fetcher fetch.Fetcher
	logger  *utils.Logger
}

// NewPaginator creates a Paginator.
func NewPaginator(site *Site, fetcher fetch.Fetcher, logger *utils.Logger) *Paginator {
	return &Paginator{site: site, fetcher: fetcher, logger: logger}
}

// ListPage returns the absolute listing links on page n of cat, in document
// order with duplicates kept. The page URL patterns are tried in order and
// the first one that fetches is used. When none does the result is empty
// and the error is nil; the only error is ErrUnknownCategory.
func (p *Paginator) ListPage(ctx context.Context, cat models.Category, n int) ([]string, error) {
	urls, err := p.site.PageURLs(cat, n)
	if err != nil {
		return nil, err
	}

	var doc *goquery.Document
	for _, u := range urls {
		d, err := p.fetcher.Fetch(ctx, u, p.site.ListingAnchor)
		if err != nil {
			p.logger.Debug("[paginator] %s failed: %v", u, err)
			continue
		}
		p.logger.Debug("[paginator] %s page %d loaded from %s", cat, n, u)
		doc = d
		break
	}
	if doc == nil {
		p.logger.Warn("[paginator] %s page %d: no URL pattern could be fetched", cat, n)
		return []string{}, nil
	}

	return p.listingLinks(doc), nil
}

func (p *Paginator) listingLinks(doc *goquery.Document) []string {
	links := []string{}
	doc.Find(p.site.ListingAnchor).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := p.site.Absolute(href)
		if abs != "" && strings.Contains(abs, p.site.ListingMarker) {
			links = append(links, abs)
		}
	})
	return links
}
