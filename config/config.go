package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendStatic  = "static"
	BackendBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver   string
	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	FetchBackend   string
	ChromeBin      string
	Headless       bool
	UserAgent      string
	RequestTimeout time.Duration
	BrowserWait    time.Duration
	MaxRetries     int
	RequestRPS     float64

	Categories     []string
	StartPage      int
	EndPage        int
	VisitDetail    bool
	DelayMinMs     int
	DelayMaxMs     int
	MaxConcurrency int

	NormalizedTable string
	CSVOutputPath   string
	DropDuplicates  bool
	DropNAThresh    float64

	LogLevel string
	LogFile  string
}

// DefaultUserAgent is the client identity declared on every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120 Safari/537.36"

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		SQLitePath: getEnv("SQLITE_PATH", "./db/app.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "coinafrique"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		FetchBackend:   strings.ToLower(getEnv("FETCH_BACKEND", BackendStatic)),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Headless:       getEnvBool("HEADLESS", true),
		UserAgent:      getEnv("USER_AGENT", DefaultUserAgent),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 25)) * time.Second,
		BrowserWait:    time.Duration(getEnvInt("BROWSER_WAIT_SEC", 12)) * time.Second,
		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		RequestRPS:     getEnvFloat("REQUEST_RPS", 0),

		Categories:     getEnvList("CATEGORIES", nil),
		StartPage:      getEnvInt("START_PAGE", 1),
		EndPage:        getEnvInt("END_PAGE", 1),
		VisitDetail:    getEnvBool("VISIT_DETAIL", true),
		DelayMinMs:     getEnvInt("DELAY_MIN_MS", 800),
		DelayMaxMs:     getEnvInt("DELAY_MAX_MS", 1600),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),

		NormalizedTable: getEnv("NORMALIZED_TABLE", "clean_listings"),
		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", "./output/clean_listings.csv"),
		DropDuplicates:  getEnvBool("DROP_DUPLICATES", false),
		DropNAThresh:    getEnvFloat("DROPNA_THRESH", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// Validate reports configuration mistakes that must stop the program.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.FetchBackend {
	case BackendStatic, BackendBrowser:
	default:
		return fmt.Errorf("config: unknown FETCH_BACKEND %q", c.FetchBackend)
	}
	if c.StartPage < 1 {
		return fmt.Errorf("config: START_PAGE must be >= 1, got %d", c.StartPage)
	}
	if c.EndPage < c.StartPage {
		return fmt.Errorf("config: END_PAGE (%d) is before START_PAGE (%d)", c.EndPage, c.StartPage)
	}
	if c.DelayMinMs < 0 || c.DelayMaxMs < c.DelayMinMs {
		return fmt.Errorf("config: invalid delay range %d..%dms", c.DelayMinMs, c.DelayMaxMs)
	}
	if c.DropNAThresh < 0 || c.DropNAThresh > 1 {
		return fmt.Errorf("config: DROPNA_THRESH must be within [0,1], got %g", c.DropNAThresh)
	}
	return nil
}

// DelayRange returns the bounds of the politeness delay between detail visits.
func (c *Config) DelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.DelayMinMs) * time.Millisecond, time.Duration(c.DelayMaxMs) * time.Millisecond
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
