package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinafrique-scraper/config"
	"coinafrique-scraper/fetch"
	"coinafrique-scraper/models"
	"coinafrique-scraper/scraper"
	"coinafrique-scraper/scraper/coinafrique"
	"coinafrique-scraper/services"
	"coinafrique-scraper/storage"
	"coinafrique-scraper/utils"
)

func main() {
	cfg := config.Load()

	logCfg := utils.DefaultLogConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	logger, err := utils.NewLoggerWithConfig(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	site := coinafrique.Site()
	categories, err := selectCategories(site, cfg.Categories)
	if err != nil {
		return err
	}

	logger.Info("=== CoinAfrique Scraping System starting ===")
	logger.Info("Config — backend: %s | db: %s | pages: %d..%d | detail: %v | concurrency: %d",
		cfg.FetchBackend, cfg.DBDriver, cfg.StartPage, cfg.EndPage, cfg.VisitDetail, cfg.MaxConcurrency)

	var sink storage.Sink
	sink, err = storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer sink.Close()

	fetcher, closeFetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	delayMin, delayMax := cfg.DelayRange()
	opts := scraper.RunOptions{
		VisitDetail:    cfg.VisitDetail,
		DelayMin:       delayMin,
		DelayMax:       delayMax,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	crawler := scraper.NewCrawler(site, fetcher, sink, logger)
	submitted := 0
	for _, cat := range categories {
		n, err := crawler.Run(ctx, cat, cfg.StartPage, cfg.EndPage, opts)
		submitted += n
		if errors.Is(err, context.Canceled) {
			logger.Warn("Interrupted during %s — skipping remaining categories", cat)
			break
		}
		if err != nil {
			return fmt.Errorf("crawl %s: %w", cat, err)
		}
	}
	logger.Info("Crawl finished — %d records submitted", submitted)

	// stored data is still normalized after an interrupt
	return report(context.WithoutCancel(ctx), cfg, sink, logger)
}

func report(ctx context.Context, cfg *config.Config, sink storage.Sink, logger *utils.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	raw, err := sink.QueryAll(ctx)
	if err != nil {
		return fmt.Errorf("load raw listings: %w", err)
	}
	if len(raw) == 0 {
		logger.Warn("No listings stored yet — nothing to normalize")
		return nil
	}

	normalizer := services.NewNormalizer(logger)
	listings := normalizer.Normalize(raw, services.NormalizeOptions{
		DropDuplicates:  cfg.DropDuplicates,
		DropNAThreshold: cfg.DropNAThresh,
	})

	if err := sink.WriteTable(ctx, cfg.NormalizedTable, listings); err != nil {
		logger.Error("Normalized table write failed: %v", err)
	}

	if err := exportCSV(cfg.CSVOutputPath, listings); err != nil {
		logger.Error("CSV export failed: %v", err)
	} else {
		logger.Info("Normalized listings saved to %s", cfg.CSVOutputPath)
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(listings))

	fmt.Printf("  Done. Raw → %s | Normalized → %s table + %s\n\n",
		storage.RawTable, cfg.NormalizedTable, cfg.CSVOutputPath)
	return nil
}

func selectCategories(site *scraper.Site, names []string) ([]models.Category, error) {
	if len(names) == 0 {
		return site.CategoryList(), nil
	}
	categories := make([]models.Category, 0, len(names))
	for _, name := range names {
		cat, err := site.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

// newFetcher builds the configured backend. The browser backend fails here,
// before any page is crawled, when Chrome cannot be started.
func newFetcher(cfg *config.Config, logger *utils.Logger) (fetch.Fetcher, func(), error) {
	switch cfg.FetchBackend {
	case config.BackendBrowser:
		b, err := fetch.NewBrowserFetcher(fetch.BrowserOptions{
			ChromeBin:   cfg.ChromeBin,
			Headless:    cfg.Headless,
			UserAgent:   cfg.UserAgent,
			PageTimeout: cfg.RequestTimeout,
			WaitTimeout: cfg.BrowserWait,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	default:
		s := fetch.NewStaticFetcher(fetch.StaticOptions{
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.RequestTimeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestRPS,
		}, logger)
		return s, func() {}, nil
	}
}

func exportCSV(path string, listings []*models.Listing) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
