package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"coinafrique-scraper/utils"
)

// BrowserOptions configures a BrowserFetcher.
type BrowserOptions struct {
	ChromeBin string // empty = search PATH and well-known locations
	Headless  bool
	UserAgent string
	// PageTimeout bounds navigation; WaitTimeout bounds the waitFor selector.
	PageTimeout time.Duration
	WaitTimeout time.Duration
}

// BrowserFetcher renders pages in a headless Chrome instance that lives as
// long as the fetcher. Each Fetch opens and closes its own tab.
type BrowserFetcher struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
	logger        *utils.Logger
}

// NewBrowserFetcher locates Chrome and starts it. Any failure is reported
// as ErrBrowserUnavailable so callers can stop before crawling.
func NewBrowserFetcher(opts BrowserOptions, logger *utils.Logger) (*BrowserFetcher, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	if chromeBin == "" {
		return nil, fmt.Errorf("%w: no Chrome/Chromium binary found (set CHROME_BIN)", ErrBrowserUnavailable)
	}
	logger.Info("[fetch] Using browser binary: %s", chromeBin)

	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 25 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 12 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1600, 1200),
		chromedp.ExecPath(chromeBin),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Running with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: start %s: %v", ErrBrowserUnavailable, chromeBin, err)
	}

	return &BrowserFetcher{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       opts.PageTimeout + opts.WaitTimeout,
		logger:        logger,
	}, nil
}

// Fetch navigates a fresh tab to pageURL, waits for waitFor (when set) and
// parses the rendered DOM.
func (b *BrowserFetcher) Fetch(ctx context.Context, pageURL, waitFor string) (*goquery.Document, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	actions := []chromedp.Action{chromedp.Navigate(pageURL)}
	if waitFor != "" {
		actions = append(actions, chromedp.WaitReady(waitFor, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("fetch: render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse rendered %s: %w", pageURL, err)
	}
	b.logger.Debug("[fetch] rendered %s (%d bytes)", pageURL, len(html))
	return doc, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

// FindChromeBinary locates a Chrome/Chromium binary, or returns "".
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
