package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"coinafrique-scraper/config"
	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// RawTable holds harvested listings, one row per link.
const RawTable = "raw_listings"

const batchSize = 50

// ErrInvalidTableName is returned by WriteTable for names that are not plain
// identifiers or that would overwrite the raw table.
var ErrInvalidTableName = errors.New("storage: invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var rawColumns = []string{"source", "category", "title", "price_raw", "address_raw", "image_url", "link", "page"}

// dialect captures the few statements that differ between backends.
type dialect struct {
	name       string
	driver     string
	idColumn   string
	timeColumn string
	bigint     string
	bind       func(n int) string
}

var (
	sqliteDialect = dialect{
		name:       config.DriverSQLite,
		driver:     "sqlite",
		idColumn:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		timeColumn: "TIMESTAMP",
		bigint:     "INTEGER",
		bind:       func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:       config.DriverPostgres,
		driver:     "postgres",
		idColumn:   "BIGSERIAL PRIMARY KEY",
		timeColumn: "TIMESTAMPTZ",
		bigint:     "BIGINT",
		bind:       func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// SQLSink stores listings in SQLite or PostgreSQL through database/sql.
type SQLSink struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger
}

var _ Sink = (*SQLSink)(nil)

// Open connects to the backend selected by cfg.DBDriver, waits for it to
// answer and creates the raw table if missing.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*SQLSink, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN(), logger)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.DBDriver)
	}
}

// OpenSQLite opens the database file at path, creating its directory.
func OpenSQLite(ctx context.Context, path string, logger *utils.Logger) (*SQLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create db dir: %w", err)
	}
	db, err := sql.Open(sqliteDialect.driver, "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one writer at a time; concurrent inserts queue instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)
	return newSQLSink(ctx, db, sqliteDialect, logger)
}

// OpenPostgres connects with dsn, retrying the first ping while the server starts.
func OpenPostgres(ctx context.Context, dsn string, logger *utils.Logger) (*SQLSink, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return newSQLSink(ctx, db, postgresDialect, logger)
}

func newSQLSink(ctx context.Context, db *sql.DB, d dialect, logger *utils.Logger) (*SQLSink, error) {
	retry := utils.RetryConfig{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, d.name+" ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLSink{db: db, dialect: d, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	logger.Info("[storage] %s ready (table %s)", d.name, RawTable)
	return s, nil
}

func (s *SQLSink) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          %s,
			source      TEXT    NOT NULL,
			category    TEXT    NOT NULL,
			title       TEXT,
			price_raw   TEXT,
			address_raw TEXT,
			image_url   TEXT,
			link        TEXT    NOT NULL UNIQUE,
			page        INTEGER NOT NULL,
			scraped_at  %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, RawTable, s.dialect.idColumn, s.dialect.timeColumn)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s(category)", RawTable))
	return err
}

// BulkInsertIgnoringDuplicates inserts records in batches inside one
// transaction. Records whose link is already stored, or repeated within
// records, are skipped without error.
func (s *SQLSink) BulkInsertIgnoringDuplicates(ctx context.Context, records []*models.RawListing) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for start := 0; start < len(records); start += batchSize {
		batch := records[start:min(start+batchSize, len(records))]
		args := make([]any, 0, len(batch)*len(rawColumns))
		for _, r := range batch {
			args = append(args, r.Source, string(r.Category), nullable(r.Title), nullable(r.PriceRaw),
				nullable(r.AddressRaw), nullable(r.ImageURL), r.Link, r.Page)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (link) DO NOTHING",
			RawTable, strings.Join(rawColumns, ", "), s.placeholders(len(batch), len(rawColumns)))

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("%s: insert: %w", s.dialect.name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	s.logger.Debug("[storage] %d/%d records inserted", inserted, len(records))
	return inserted, nil
}

// QueryAll returns all raw records ordered by id descending.
func (s *SQLSink) QueryAll(ctx context.Context) ([]*models.RawListing, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source, category, title, price_raw, address_raw, image_url, link, page, scraped_at
		FROM %s
		ORDER BY id DESC`, RawTable))
	if err != nil {
		return nil, fmt.Errorf("%s: query all: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var listings []*models.RawListing
	for rows.Next() {
		var (
			r                            models.RawListing
			category                     string
			title, price, address, image sql.NullString
			scrapedAt                    any
		)
		if err := rows.Scan(&r.ID, &r.Source, &category, &title, &price, &address, &image,
			&r.Link, &r.Page, &scrapedAt); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		r.Category = models.Category(category)
		r.Title, r.PriceRaw, r.AddressRaw, r.ImageURL = fromNull(title), fromNull(price), fromNull(address), fromNull(image)
		if r.ScrapedAt, err = parseTimestamp(scrapedAt); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", s.dialect.name, r.ID, err)
		}
		listings = append(listings, &r)
	}
	return listings, rows.Err()
}

// WriteTable drops and recreates table name, then fills it with listings,
// all in one transaction.
func (s *SQLSink) WriteTable(ctx context.Context, name string, listings []*models.Listing) error {
	if !identifier.MatchString(name) || strings.EqualFold(name, RawTable) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	table := `"` + name + `"`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("%s: drop %s: %w", s.dialect.name, name, err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE %s (
			id          %[2]s,
			source      TEXT,
			category    TEXT,
			title       TEXT,
			price_raw   TEXT,
			address_raw TEXT,
			image_url   TEXT,
			link        TEXT,
			page        INTEGER,
			scraped_at  %[3]s,
			price_cfa   %[2]s,
			city        TEXT,
			title_len   INTEGER
		)`, table, s.dialect.bigint, s.dialect.timeColumn)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%s: create %s: %w", s.dialect.name, name, err)
	}

	cols := len(models.ListingColumns)
	for start := 0; start < len(listings); start += batchSize {
		batch := listings[start:min(start+batchSize, len(listings))]
		args := make([]any, 0, len(batch)*cols)
		for _, l := range batch {
			var priceCFA, scrapedAt any
			if l.PriceCFA != nil {
				priceCFA = *l.PriceCFA
			}
			if !l.ScrapedAt.IsZero() {
				scrapedAt = l.ScrapedAt.UTC()
			}
			args = append(args, l.ID, l.Source, string(l.Category), nullable(l.Title), nullable(l.PriceRaw),
				nullable(l.AddressRaw), nullable(l.ImageURL), l.Link, l.Page, scrapedAt,
				priceCFA, nullable(l.City), l.TitleLen)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(models.ListingColumns, ", "), s.placeholders(len(batch), cols))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: insert into %s: %w", s.dialect.name, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	s.logger.Info("[storage] Wrote %d listings to table %s", len(listings), name)
	return nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}

// placeholders renders rows groups of cols bind parameters, numbered from 1.
func (s *SQLSink) placeholders(rows, cols int) string {
	groups := make([]string, rows)
	marks := make([]string, cols)
	for i := range groups {
		for j := range marks {
			marks[j] = s.dialect.bind(i*cols + j + 1)
		}
		groups[i] = "(" + strings.Join(marks, ",") + ")"
	}
	return strings.Join(groups, ",")
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts what the drivers hand back for a timestamp column:
// a time.Time, or SQLite's text forms.
func parseTimestamp(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected scraped_at type %T", v)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable scraped_at %q", s)
}
