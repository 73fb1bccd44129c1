package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"coinafrique-scraper/utils"
)

// StaticOptions configures a StaticFetcher.
type StaticOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int // total attempts per fetch, at least 1
	RetryDelay time.Duration
	// RequestsPerSecond caps the request rate; 0 disables the limiter.
	RequestsPerSecond float64
}

// StaticFetcher downloads pages over plain HTTP without running scripts.
type StaticFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewStaticFetcher creates a StaticFetcher.
func NewStaticFetcher(opts StaticOptions, logger *utils.Logger) *StaticFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &StaticFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		limiter:   limiter,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Fetch performs a GET request and parses the body. waitFor is ignored.
func (f *StaticFetcher) Fetch(ctx context.Context, pageURL, _ string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := f.retry.Do(ctx, "fetch "+pageURL, func() error {
		d, err := f.get(ctx, pageURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *StaticFetcher) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch: rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, Code: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse %s: %w", pageURL, err)
	}
	f.logger.Debug("[fetch] GET %s — %d", pageURL, res.StatusCode)
	return doc, nil
}
