package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// citySeparators are scanned together; the leftmost hit wins whatever its kind.
const citySeparators = "•-|,/"

// NormalizeOptions enables the optional post-filters.
type NormalizeOptions struct {
	DropDuplicates bool
	// DropNAThreshold in (0, 1] drops rows with fewer than
	// ceil(len(ListingColumns) * threshold) non-null columns. 0 disables it.
	DropNAThreshold float64
}

// Normalizer derives canonical columns from raw listings.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize maps every raw record to one Listing, then applies the filters
// requested in opts. Input records are copied, never modified.
func (n *Normalizer) Normalize(raw []*models.RawListing, opts NormalizeOptions) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		result = append(result, Derive(r))
	}
	derived := len(result)

	if opts.DropDuplicates {
		result = dropDuplicates(result)
	}
	if opts.DropNAThreshold > 0 {
		result = dropSparse(result, opts.DropNAThreshold)
	}

	n.logger.Info("[normalizer] Normalized %d → %d listings (dropped %d)",
		derived, len(result), derived-len(result))
	return result
}

// Derive attaches the canonical columns to a copy of r.
func Derive(r *models.RawListing) *models.Listing {
	return &models.Listing{
		RawListing: *r,
		PriceCFA:   PriceCFA(r.PriceRaw),
		City:       City(r.AddressRaw),
		TitleLen:   TitleLen(r.Title),
	}
}

// PriceCFA reads the first numeric run of raw and joins its digits, so
// "150 000 FCFA" and "1.500.000" both parse. Nil when raw is absent, holds
// no digits or overflows int64.
func PriceCFA(raw *string) *int64 {
	if raw == nil {
		return nil
	}
	run, ok := utils.FirstNumericRun(*raw)
	if !ok {
		return nil
	}
	v, err := strconv.ParseInt(utils.DigitsOnly(run), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// City returns the trimmed part of address before the first separator, or
// the whole trimmed address when none occurs. Only an absent address gives nil;
// a leading separator or a blank address gives "".
func City(address *string) *string {
	if address == nil {
		return nil
	}
	s := *address
	if i := strings.IndexAny(s, citySeparators); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	return &s
}

// TitleLen counts the characters of title; 0 when absent.
func TitleLen(title *string) int {
	if title == nil {
		return 0
	}
	return utf8.RuneCountInString(*title)
}

func dropDuplicates(listings []*models.Listing) []*models.Listing {
	seen := utils.NewURLSet()
	out := listings[:0:0]
	for _, l := range listings {
		if seen.Add(fingerprint(l)) {
			out = append(out, l)
		}
	}
	return out
}

func dropSparse(listings []*models.Listing, threshold float64) []*models.Listing {
	minCount := int(math.Ceil(float64(len(models.ListingColumns)) * threshold))
	out := listings[:0:0]
	for _, l := range listings {
		if l.NonNullCount() >= minCount {
			out = append(out, l)
		}
	}
	return out
}

// fingerprint encodes every column of l; nil and "" encode differently.
func fingerprint(l *models.Listing) string {
	opt := func(s *string) string {
		if s == nil {
			return "\x00"
		}
		return strconv.Quote(*s)
	}
	price := "\x00"
	if l.PriceCFA != nil {
		price = strconv.FormatInt(*l.PriceCFA, 10)
	}
	return fmt.Sprintf("%d|%q|%q|%s|%s|%s|%s|%q|%d|%s|%s|%s|%d",
		l.ID, l.Source, l.Category, opt(l.Title), opt(l.PriceRaw), opt(l.AddressRaw),
		opt(l.ImageURL), l.Link, l.Page, l.ScrapedAt.UTC().Format(time.RFC3339Nano),
		price, opt(l.City), l.TitleLen)
}
