package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"coinafrique-scraper/models"
)

const testCategory models.Category = "Chiens"

func testSite() *Site {
	return &Site{
		Source:           "test-source",
		BaseURL:          "https://ads.example.test",
		PagePatterns:     []string{"{base}{path}?page={n}", "{base}{path}/{n}"},
		ListingAnchor:    ".card a[href]",
		ListingMarker:    "/annonce/",
		DetailReady:      ".detail",
		PrimaryImageMeta: `meta[property="og:image"]`,
		ImageAttrs:       []string{"data-src", "data-lazy", "data-original", "src", "srcset"},
		MultiValueAttr:   "srcset",
		PlaceholderTokens: []string{
			"/static/flags/",
			"/svg",
			"data:image",
		},
		Categories: map[models.Category]CategoryConfig{
			testCategory: {
				Path: "/categorie/chiens",
				Locators: LocatorSet{
					Title:   ".detail h1",
					Price:   ".detail p.price",
					Address: ".detail [data-address] span",
					Image:   "img.main",
				},
			},
		},
	}
}

// fakeFetcher serves fixed HTML by URL; unknown URLs fail.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL, _ string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageURL)
	body, ok := f.pages[pageURL]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("fake: %s unreachable", pageURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeSink keeps each submitted batch and dedups on link like the real one.
type fakeSink struct {
	batches [][]*models.RawListing
	links   map[string]bool
	err     error
}

func newFakeSink() *fakeSink {
	return &fakeSink{links: map[string]bool{}}
}

func (s *fakeSink) BulkInsertIgnoringDuplicates(_ context.Context, records []*models.RawListing) (int, error) {
	s.batches = append(s.batches, records)
	if s.err != nil {
		return 0, s.err
	}
	inserted := 0
	for _, r := range records {
		if !s.links[r.Link] {
			s.links[r.Link] = true
			inserted++
		}
	}
	return inserted, nil
}

func docFrom(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}

func catalogPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><nav><a href="/categorie/chiens?page=2">Suivant</a></nav>`)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<div class="card"><p class="ad__card-description"><a href="%s">annonce</a></p></div>`, h)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

const detailPage = `<html>
<head>
  <title>Annonce 42</title>
  <meta property="og:image" content="https://cdn.example.test/og.jpg">
  <script>var ref = 987654;</script>
</head>
<body>
  <div class="detail">
    <h1>  Chiot Berger Allemand  </h1>
    <p class="price">150 000 CFA</p>
    <div data-address><span>Dakar • Médina</span></div>
  </div>
  <img class="main" data-src="/media/ads/42.jpg" src="/static/placeholder.png">
</body>
</html>`
