package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByCategory: make(map[models.Category]int),
		ListingsByCity:     make(map[string]int),
	}

	var total int64
	for _, l := range listings {
		if l == nil {
			continue
		}
		report.TotalListings++
		report.ListingsByCategory[l.Category]++
		if l.City != nil {
			report.ListingsByCity[*l.City]++
		}
		if l.ImageURL != nil {
			report.WithImage++
		}

		if l.PriceCFA == nil {
			continue
		}
		p := *l.PriceCFA
		if report.WithPrice == 0 || p < report.MinPrice {
			report.MinPrice = p
		}
		if report.WithPrice == 0 || p > report.MaxPrice {
			report.MaxPrice = p
			report.MostExpensive = l
		}
		report.WithPrice++
		total += p
	}

	if report.WithPrice > 0 {
		report.AveragePrice = round2(float64(total) / float64(report.WithPrice))
	}

	s.logger.Debug("[insights] %d listings, %d priced, %d with image",
		report.TotalListings, report.WithPrice, report.WithImage)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 COINAFRIQUE SCRAPE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With price       : \033[1m%d\033[0m\n", r.WithPrice)
	fmt.Fprintf(w, "  With image       : \033[1m%d\033[0m (%.1f%%)\n", r.WithImage, percent(r.WithImage, r.TotalListings))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics (CFA)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.WithPrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", formatCFA(int64(r.AveragePrice+0.5)))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", formatCFA(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", formatCFA(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(models.Deref(r.MostExpensive.Title), 50))
		fmt.Fprintf(w, "  Category : %s\n", r.MostExpensive.Category)
		fmt.Fprintf(w, "  City     : %s\n", models.Deref(r.MostExpensive.City))
		fmt.Fprintf(w, "  Price    : \033[1;31m%s\033[0m\n", formatCFA(*r.MostExpensive.PriceCFA))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	cats := make(map[string]int, len(r.ListingsByCategory))
	for c, n := range r.ListingsByCategory {
		cats[string(c)] = n
	}
	printBars(w, cats, "No category data")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by City\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	printBars(w, r.ListingsByCity, "No city data")

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// printBars lists counts descending, ties by name.
func printBars(w io.Writer, counts map[string]int, empty string) {
	if len(counts) == 0 {
		fmt.Fprintf(w, "  %s\n", empty)
		return
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, entry{name, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	for _, e := range entries {
		bar := strings.Repeat("█", min(e.count, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(e.name, 28), bar, e.count)
	}
}

// formatCFA groups thousands with spaces: 1500000 → "1 500 000 CFA".
func formatCFA(v int64) string {
	digits := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String() + " CFA"
	}
	return b.String() + " CFA"
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
