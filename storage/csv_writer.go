package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"coinafrique-scraper/models"
)

// CSVWriter writes normalized listings to a CSV file, one column per
// models.ListingColumns entry. Absent values are written as empty cells.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var _ ListingWriter = (*CSVWriter)(nil)

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.ListingColumns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends listings in order.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(csvRow(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func csvRow(l *models.Listing) []string {
	scrapedAt := ""
	if !l.ScrapedAt.IsZero() {
		scrapedAt = l.ScrapedAt.UTC().Format(time.RFC3339)
	}
	priceCFA := ""
	if l.PriceCFA != nil {
		priceCFA = strconv.FormatInt(*l.PriceCFA, 10)
	}
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.Source,
		string(l.Category),
		models.Deref(l.Title),
		models.Deref(l.PriceRaw),
		models.Deref(l.AddressRaw),
		models.Deref(l.ImageURL),
		l.Link,
		strconv.Itoa(l.Page),
		scrapedAt,
		priceCFA,
		models.Deref(l.City),
		strconv.Itoa(l.TitleLen),
	}
}
