// Package remote loads the remote transaction dataset.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultRecordsPath locates the transaction array inside an envelope object.
const DefaultRecordsPath = "$.transactions"

// Fetcher loads raw records from the remote dataset.
//
//go:generate mockgen -destination=mocks/mock_fetcher.go -source=fetcher.go Fetcher
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// Config holds the settings for an HTTPFetcher.
type Config struct {
	URL         string
	RecordsPath string
	Timeout     time.Duration
	// OfflineCacheTTL enables the offline caching transport when positive.
	OfflineCacheTTL time.Duration
}

// DefaultConfig returns a configuration with sensible defaults and no URL.
func DefaultConfig() *Config {
	return &Config{
		RecordsPath: DefaultRecordsPath,
		Timeout:     15 * time.Second,
	}
}

// HTTPFetcher fetches the dataset with an HTTP GET. file:// URLs are served
// from the local filesystem.
type HTTPFetcher struct {
	client      *http.Client
	url         string
	recordsPath string
	logger      logger.Logger
}

// NewHTTPFetcher creates a fetcher from config.
func NewHTTPFetcher(config *Config) (*HTTPFetcher, error) {
	if config == nil || config.URL == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "data-url", nil, nil)
	}

	recordsPath := config.RecordsPath
	if recordsPath == "" {
		recordsPath = DefaultRecordsPath
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	var transport http.RoundTripper = base
	if config.OfflineCacheTTL > 0 {
		transport = NewOfflineTransport(base, config.OfflineCacheTTL)
	}

	return &HTTPFetcher{
		client:      &http.Client{Transport: transport, Timeout: config.Timeout},
		url:         config.URL,
		recordsPath: recordsPath,
		logger:      logger.GetGlobalLogger().WithComponent("remote"),
	}, nil
}

// URL returns the dataset location.
func (f *HTTPFetcher) URL() string {
	return f.url
}

// Fetch downloads and decodes the dataset.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeFetchFailed, f.url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeFetchFailed, f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.DataSourceError(errors.CodeFetchFailed, f.url,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeFetchFailed, f.url, err)
	}

	records, err := DecodeDataset(body, f.recordsPath)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeBadPayload, f.url, err)
	}

	f.logger.WithFields(logger.Fields{
		"url":      f.url,
		"records":  len(records),
		"duration": time.Since(start).String(),
	}).Debug("Fetched remote dataset")

	return records, nil
}

// DecodeDataset accepts either a JSON array of records or an object whose
// records sit at recordsPath. Entries that are not objects are skipped.
// Numbers are kept as json.Number.
func DecodeDataset(body []byte, recordsPath string) ([]models.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var items []interface{}
	switch v := doc.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if recordsPath == "" {
			recordsPath = DefaultRecordsPath
		}
		found, err := jsonpath.Get(recordsPath, v)
		if err != nil {
			return nil, fmt.Errorf("no records at %s: %w", recordsPath, err)
		}
		list, ok := found.([]interface{})
		if !ok {
			return nil, fmt.Errorf("value at %s is %T, not an array", recordsPath, found)
		}
		items = list
	default:
		return nil, fmt.Errorf("dataset is %T, expected an array or an object", doc)
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, models.RawRecord(obj))
		}
	}
	return records, nil
}
