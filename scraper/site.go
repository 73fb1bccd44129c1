package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"coinafrique-scraper/models"
)

// ErrUnknownCategory means a category has no catalog path or locator set.
// It is a configuration mistake, never a runtime condition.
var ErrUnknownCategory = errors.New("scraper: unknown category")

// LocatorSet holds the CSS locators probed on a listing detail page.
type LocatorSet struct {
	Title   string
	Price   string
	Address string
	Image   string
}

// CategoryConfig binds a category to its catalog path and detail locators.
type CategoryConfig struct {
	Path     string
	Locators LocatorSet
}

// Site describes one classified-ads catalog. A Site is built once and not
// modified afterwards.
type Site struct {
	Source  string // tag stored on every record
	BaseURL string // origin used to absolutize relative links

	// PagePatterns are tried in order for a catalog page; {base}, {path}
	// and {n} are substituted.
	PagePatterns []string

	ListingAnchor string // anchors inside listing cards on a catalog page
	ListingMarker string // path fragment only real listing links contain
	DetailReady   string // element a rendered detail page must contain

	PrimaryImageMeta  string   // page-level image metadata tag
	ImageAttrs        []string // probed in order on the image element
	MultiValueAttr    string   // attribute whose first entry is taken
	PlaceholderTokens []string // image URLs containing any of these are rejected

	Categories map[models.Category]CategoryConfig
}

// Category returns the configuration for cat.
func (s *Site) Category(cat models.Category) (CategoryConfig, error) {
	cc, ok := s.Categories[cat]
	if !ok {
		return CategoryConfig{}, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return cc, nil
}

// ParseCategory maps a category name to a defined category. Matching
// ignores case and surrounding spaces.
func (s *Site) ParseCategory(name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	for cat := range s.Categories {
		if strings.EqualFold(string(cat), name) {
			return cat, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// CategoryList returns all defined categories in name order.
func (s *Site) CategoryList() []models.Category {
	cats := make([]models.Category, 0, len(s.Categories))
	for cat := range s.Categories {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// PageURLs expands every page pattern for page n of cat, in pattern order.
func (s *Site) PageURLs(cat models.Category, n int) ([]string, error) {
	cc, err := s.Category(cat)
	if err != nil {
		return nil, err
	}
	r := strings.NewReplacer("{base}", s.BaseURL, "{path}", cc.Path, "{n}", strconv.Itoa(n))

	urls := make([]string, 0, len(s.PagePatterns))
	for _, pattern := range s.PagePatterns {
		urls = append(urls, r.Replace(pattern))
	}
	return urls, nil
}

// Absolute resolves href against the site origin. Absolute URLs come back
// unchanged; an empty or unparsable href yields "".
func (s *Site) Absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
