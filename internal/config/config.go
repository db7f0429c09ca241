package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	DocDir    string
	MailDir   string
	OutputDir string

	LayoutTolerance float64
	RowBucketSize   float64

	PriceMarkup float64
	VATRate     float64

	ScrapeEnabled      bool
	ScrapeRateLimitRPS int
	ScrapeTimeoutMs    int
	ScrapeUserAgent    string

	EnrichBatchSize int
	EnrichDelayMs   int

	ExportDelimiter string

	MailFetchWindowDays int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ListenerProvider     string
	ListenerLabel        string
	ListenerIntervalSec  int
	ListenerFetchMax     int
	ListenerProcessBatch int
	ListenerAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		DocDir:    getEnv("DOC_DIR", filepath.Join(cwd, "data", "docs")),
		MailDir:   getEnv("MAIL_DIR", filepath.Join(cwd, "data", "mail")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LayoutTolerance: getEnvFloat("PDF_LAYOUT_TOLERANCE", 15),
		RowBucketSize:   getEnvFloat("PDF_ROW_BUCKET", 5),

		PriceMarkup: getEnvFloat("PRICE_MARKUP", 2.0),
		VATRate:     getEnvFloat("VAT_RATE", 0.19),

		ScrapeEnabled:      getEnvBool("SCRAPE_ENABLED", true),
		ScrapeRateLimitRPS: getEnvInt("SCRAPE_RATE_LIMIT_RPS", 2),
		ScrapeTimeoutMs:    getEnvInt("SCRAPE_TIMEOUT_MS", 20000),
		ScrapeUserAgent:    getEnv("SCRAPE_USER_AGENT", "foxfeed/1.0 (+catalog import)"),

		EnrichBatchSize: getEnvInt("ENRICH_BATCH_SIZE", 5),
		EnrichDelayMs:   getEnvInt("ENRICH_DELAY_MS", 1000),

		ExportDelimiter: getEnv("EXPORT_DELIMITER", ","),

		MailFetchWindowDays: getEnvInt("MAIL_FETCH_WINDOW_DAYS", 30),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ListenerProvider:     getEnv("LISTENER_PROVIDER", "imap"),
		ListenerLabel:        getEnv("LISTENER_LABEL", "INBOX"),
		ListenerIntervalSec:  getEnvInt("LISTENER_INTERVAL_SEC", 60),
		ListenerFetchMax:     getEnvInt("LISTENER_FETCH_MAX", 20),
		ListenerProcessBatch: getEnvInt("LISTENER_PROCESS_BATCH", 20),
		ListenerAutoExport:   getEnvBool("LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
