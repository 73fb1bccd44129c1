package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FieldExtractor pulls single fields out of a parsed document. Every method
// returns nil when nothing usable is found; none of them fail.
type FieldExtractor struct {
	site *Site
}

// NewFieldExtractor creates a FieldExtractor using site's image rules.
func NewFieldExtractor(site *Site) *FieldExtractor {
	return &FieldExtractor{site: site}
}

// Text returns the trimmed text of the first element matching locator. A
// blank first match is absent; later matches are not consulted.
func (e *FieldExtractor) Text(doc *goquery.Document, locator string) *string {
	if doc == nil || locator == "" {
		return nil
	}
	sel := doc.Find(locator).First()
	if sel.Length() == 0 {
		return nil
	}
	t := strings.TrimSpace(sel.Text())
	if t == "" {
		return nil
	}
	return &t
}

// Image resolves the image URL of the first element matching locator.
// Lazy-load attributes win over src; for the multi-value attribute only the
// first candidate is used. Placeholder images are rejected outright.
func (e *FieldExtractor) Image(doc *goquery.Document, locator string) *string {
	if doc == nil || locator == "" {
		return nil
	}
	sel := doc.Find(locator).First()
	if sel.Length() == 0 {
		return nil
	}

	for _, attr := range e.site.ImageAttrs {
		v, ok := sel.Attr(attr)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		if attr == e.site.MultiValueAttr {
			v = firstCandidate(v)
		}
		if e.isPlaceholder(v) {
			return nil
		}
		abs := e.site.Absolute(v)
		if abs == "" {
			return nil
		}
		return &abs
	}
	return nil
}

// MetaContent returns the trimmed content attribute of the first element
// matching locator.
func (e *FieldExtractor) MetaContent(doc *goquery.Document, locator string) *string {
	if doc == nil || locator == "" {
		return nil
	}
	v, ok := doc.Find(locator).First().Attr("content")
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (e *FieldExtractor) isPlaceholder(v string) bool {
	for _, tok := range e.site.PlaceholderTokens {
		if strings.Contains(v, tok) {
			return true
		}
	}
	return false
}

// firstCandidate takes the URL of the first entry of a srcset-style value.
func firstCandidate(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 && !strings.HasPrefix(v, "data:") {
		v = v[:i]
	}
	if fields := strings.Fields(v); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// visibleText joins the trimmed text nodes of the document, skipping
// script, style and head content, separated by single spaces.
func visibleText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
