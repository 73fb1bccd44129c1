package scraper

import (
	"context"
	"math/rand"
	"time"

	"coinafrique-scraper/fetch"
	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// Sink receives each page's records. Inserting a link that is already
// stored must be a no-op.
type Sink interface {
	BulkInsertIgnoringDuplicates(ctx context.Context, records []*models.RawListing) (int, error)
}

// RunOptions controls one crawl run.
type RunOptions struct {
	VisitDetail bool
	DelayMin    time.Duration
	DelayMax    time.Duration
	// MaxConcurrency > 1 visits detail pages in parallel; the delay still
	// separates consecutive fetch starts.
	MaxConcurrency int
}

// Crawler drives catalog pages of a category through the paginator and
// the resolver and hands each page's batch to the sink.
type Crawler struct {
	site      *Site
	paginator *Paginator
	resolver  *Resolver
	sink      Sink
	logger    *utils.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// NewCrawler creates a Crawler for site that fetches through fetcher.
func NewCrawler(site *Site, fetcher fetch.Fetcher, sink Sink, logger *utils.Logger) *Crawler {
	return &Crawler{
		site:      site,
		paginator: NewPaginator(site, fetcher, logger),
		resolver:  NewResolver(site, fetcher, logger),
		sink:      sink,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Run crawls pages startPage..endPage of cat in order and returns the number
// of records submitted to the sink. Duplicates skipped by the sink are still
// counted. Failed pages and listings only reduce the data collected; the
// returned error is ErrUnknownCategory or the context's error.
func (c *Crawler) Run(ctx context.Context, cat models.Category, startPage, endPage int, opts RunOptions) (int, error) {
	if _, err := c.site.Category(cat); err != nil {
		return 0, err
	}

	c.logger.Info("[crawler] Starting %s — pages %d..%d | detail: %v | concurrency: %d",
		cat, startPage, endPage, opts.VisitDetail, max(opts.MaxConcurrency, 1))

	var pool *utils.WorkerPool
	if opts.VisitDetail && opts.MaxConcurrency > 1 {
		pool = utils.NewWorkerPool(opts.MaxConcurrency, func() time.Duration { return sampleDelay(opts) })
	}

	total := 0
	for page := startPage; page <= endPage; page++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		links, err := c.paginator.ListPage(ctx, cat, page)
		if err != nil {
			return total, err
		}
		if len(links) == 0 {
			c.logger.Warn("[crawler] %s page %d: no listings", cat, page)
			continue
		}

		records := c.collectPage(ctx, cat, page, links, opts, pool)

		inserted, err := c.sink.BulkInsertIgnoringDuplicates(ctx, records)
		if err != nil {
			c.logger.Error("[crawler] %s page %d: sink write failed: %v", cat, page, err)
		}
		total += len(records)

		c.logger.Info("[crawler] %s page %d done — %d links, %d new | %d submitted so far",
			cat, page, len(records), inserted, total)
	}

	c.logger.Info("[crawler] %s complete — %d records submitted", cat, total)
	return total, nil
}

// collectPage builds one record per link, in link order. With a pool the
// detail visits run in parallel and the batch is complete once Wait returns.
func (c *Crawler) collectPage(ctx context.Context, cat models.Category, page int, links []string, opts RunOptions, pool *utils.WorkerPool) []*models.RawListing {
	records := make([]*models.RawListing, len(links))
	build := func(i int, f models.ListingFields) {
		records[i] = &models.RawListing{
			Source:     c.site.Source,
			Category:   cat,
			Title:      f.Title,
			PriceRaw:   f.PriceRaw,
			AddressRaw: f.AddressRaw,
			ImageURL:   f.ImageURL,
			Link:       links[i],
			Page:       page,
		}
	}

	switch {
	case !opts.VisitDetail:
		for i := range links {
			build(i, models.ListingFields{})
		}

	case pool != nil:
		for i, link := range links {
			pool.Submit(func() {
				build(i, c.resolve(ctx, link, cat))
			})
		}
		pool.Wait()

	default:
		for i, link := range links {
			build(i, c.resolve(ctx, link, cat))
			c.sleep(ctx, sampleDelay(opts))
		}
	}
	return records
}

func (c *Crawler) resolve(ctx context.Context, link string, cat models.Category) models.ListingFields {
	fields, err := c.resolver.Resolve(ctx, link, cat)
	if err != nil {
		c.logger.Error("[crawler] resolve %s: %v", link, err)
	}
	return fields
}

// sampleDelay draws uniformly from [DelayMin, DelayMax].
func sampleDelay(opts RunOptions) time.Duration {
	if opts.DelayMax <= opts.DelayMin {
		return opts.DelayMin
	}
	return opts.DelayMin + time.Duration(rand.Int63n(int64(opts.DelayMax-opts.DelayMin)+1))
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
