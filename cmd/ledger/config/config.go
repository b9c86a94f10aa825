package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exchange-ledger/internal/remote"
	"exchange-ledger/internal/reporter"
	"exchange-ledger/internal/server"
	"exchange-ledger/internal/storage"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"golang.org/x/text/language"
)

// AppName names the per-user data directory.
const AppName = "exchange-ledger"

// FetcherConfig describes where the remote dataset comes from.
type FetcherConfig struct {
	URL             string
	RecordsPath     string
	Timeout         time.Duration
	OfflineCacheTTL time.Duration
}

// CreateFetcherConfig creates a fetcher configuration. An empty URL means
// there is no remote dataset.
func CreateFetcherConfig(dataURL, recordsPath string, timeout, offlineTTL time.Duration) *FetcherConfig {
	config := &FetcherConfig{
		URL:             strings.TrimSpace(dataURL),
		RecordsPath:     strings.TrimSpace(recordsPath),
		Timeout:         timeout,
		OfflineCacheTTL: offlineTTL,
	}
	if config.RecordsPath == "" {
		config.RecordsPath = remote.DefaultRecordsPath
	}
	return config
}

// Validate validates the fetcher configuration
func (c *FetcherConfig) Validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "data-url", c.URL, err)
		}
		switch u.Scheme {
		case "http", "https", "file":
		default:
			return errors.ConfigurationError(errors.CodeInvalidConfig, "data-url", c.URL, nil).
				WithSuggestion("use an http://, https:// or file:// URL")
		}
	}

	if !strings.HasPrefix(c.RecordsPath, "$") {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "records-path", c.RecordsPath, nil).
			WithSuggestion("records-path is a JSONPath expression such as $.transactions")
	}
	if c.Timeout <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "fetch-timeout", c.Timeout, nil)
	}
	if c.OfflineCacheTTL < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "offline-cache-ttl", c.OfflineCacheTTL, nil)
	}
	return nil
}

// NewFetcher builds the remote fetcher. It returns nil when no URL is set.
func (c *FetcherConfig) NewFetcher() (remote.Fetcher, error) {
	if c.URL == "" {
		return nil, nil
	}

	fetcher, err := remote.NewHTTPFetcher(&remote.Config{
		URL:             c.URL,
		RecordsPath:     c.RecordsPath,
		Timeout:         c.Timeout,
		OfflineCacheTTL: c.OfflineCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return fetcher, nil
}

// StoreConfig describes the durable slot backing the local partition.
type StoreConfig struct {
	Kind storage.Kind
	Path string
	Key  string
}

// CreateStoreConfig creates a store configuration. An empty path resolves
// to the per-user data directory.
func CreateStoreConfig(kind, path, key string) *StoreConfig {
	config := &StoreConfig{
		Kind: storage.Kind(strings.ToLower(strings.TrimSpace(kind))),
		Path: strings.TrimSpace(path),
		Key:  strings.TrimSpace(key),
	}
	if config.Kind == "" {
		config.Kind = storage.KindFile
	}
	if config.Key == "" {
		config.Key = storage.DefaultKey
	}
	if config.Path == "" {
		config.Path = DefaultStorePath(config.Kind)
	}
	return config
}

// DefaultStorePath returns where the slot lives when no store-path is given.
func DefaultStorePath(kind storage.Kind) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, AppName)
	if kind == storage.KindSQLite {
		return filepath.Join(dir, "ledger.db")
	}
	return dir
}

// Validate validates the store configuration
func (c *StoreConfig) Validate() error {
	if !c.Kind.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "store", c.Kind, nil).
			WithSuggestion("valid stores: file, sqlite")
	}
	if c.Path == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "store-path", nil, nil)
	}
	if strings.ContainsAny(c.Key, `/\`) {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "storage-key", c.Key, nil).
			WithSuggestion("the storage key must not contain path separators")
	}
	return nil
}

// Open opens the configured slot.
func (c *StoreConfig) Open() (storage.Slot, error) {
	if c.Kind == storage.KindSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
			return nil, errors.DataSourceError(errors.CodeStorageWrite, c.Path, err)
		}
	}
	return storage.Open(c.Kind, c.Path, c.Key)
}

// ParseLocale parses a BCP 47 locale tag such as "en" or "de-DE".
func ParseLocale(locale string) (language.Tag, error) {
	if strings.TrimSpace(locale) == "" {
		return language.English, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, errors.ConfigurationError(errors.CodeInvalidConfig, "locale", locale, err).
			WithSuggestion("use a BCP 47 tag such as en, en-US or de-DE")
	}
	return tag, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format, locale string, pretty bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	if format != "" {
		config.Format = reporter.OutputFormat(strings.ToLower(format))
	}
	if _, err := ParseLocale(locale); err != nil {
		return nil, err
	}
	if locale != "" {
		config.Locale = locale
	}

	switch config.Format {
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	case reporter.FormatMarkdown:
		config.Pretty = pretty
		if pretty {
			config.PrettyStyle = "dark"
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format, err).
			WithSuggestion("valid formats: console, json, csv, markdown")
	}
	return config, nil
}

// CreateServerConfig creates the HTTP API configuration.
func CreateServerConfig(addr string, rateLimit float64, burst int, locale string) (*server.Config, error) {
	config := server.DefaultConfig()

	if addr != "" {
		config.Addr = addr
	}
	if rateLimit < 0 {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "rate-limit", rateLimit, nil).
			WithSuggestion("use 0 to disable rate limiting")
	}
	config.RateLimit = rateLimit
	if burst > 0 {
		config.RateBurst = burst
	}

	tag, err := ParseLocale(locale)
	if err != nil {
		return nil, err
	}
	config.Locale = tag

	return config, nil
}

// CreateLoggerConfig creates the process logger configuration. verbose
// raises the level to debug.
func CreateLoggerConfig(level, format string, verbose bool) (*logger.Config, error) {
	config := logger.DefaultConfig()

	if level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if verbose {
		config.Level = logger.DebugLevel
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log-level", fmt.Sprintf("%s/%s", config.Level, config.Format), err)
	}
	return config, nil
}

// ValidateConfig validates that all required configurations are valid
func ValidateConfig(fetcherConfig *FetcherConfig, storeConfig *StoreConfig) error {
	if err := fetcherConfig.Validate(); err != nil {
		return err
	}
	if err := storeConfig.Validate(); err != nil {
		return err
	}
	return nil
}
