// Package fetch turns a URL into a parsed HTML document. Two backends share
// the Fetcher interface: a plain HTTP client and a headless Chrome driver.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrBrowserUnavailable is returned at construction time when the browser
// backend cannot find or start Chrome.
var ErrBrowserUnavailable = errors.New("fetch: browser automation driver unavailable")

// Fetcher retrieves and parses one page.
//
// waitFor is a CSS selector the rendered page must contain before it is
// captured. Backends that do not render JavaScript ignore it.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL, waitFor string) (*goquery.Document, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s returned status %d", e.URL, e.Code)
}
