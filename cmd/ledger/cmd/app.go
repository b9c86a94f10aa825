package cmd

import (
	"context"
	"fmt"
	"io"

	"exchange-ledger/cmd/ledger/config"
	"exchange-ledger/internal/ledger"
	"exchange-ledger/internal/storage"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// ledgerApp holds the components a command works with.
type ledgerApp struct {
	store  *ledger.Store
	slot   storage.Slot
	locale language.Tag
	logger logger.Logger
}

// newLedgerApp builds the store from the data-source and storage settings.
func newLedgerApp() (*ledgerApp, error) {
	fetcherConfig := config.CreateFetcherConfig(
		viper.GetString("data-url"),
		viper.GetString("records-path"),
		viper.GetDuration("fetch-timeout"),
		viper.GetDuration("offline-cache-ttl"),
	)
	storeConfig := config.CreateStoreConfig(
		viper.GetString("store"),
		viper.GetString("store-path"),
		viper.GetString("storage-key"),
	)

	if err := config.ValidateConfig(fetcherConfig, storeConfig); err != nil {
		return nil, err
	}

	locale, err := config.ParseLocale(viper.GetString("locale"))
	if err != nil {
		return nil, err
	}

	fetcher, err := fetcherConfig.NewFetcher()
	if err != nil {
		return nil, err
	}

	slot, err := storeConfig.Open()
	if err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger().WithComponent("cli")
	log.WithFields(logger.Fields{
		"data_url": fetcherConfig.URL,
		"store":    storeConfig.Kind,
		"path":     storeConfig.Path,
		"key":      storeConfig.Key,
	}).Debug("Ledger configured")

	return &ledgerApp{
		store:  ledger.NewStore(fetcher, slot, nil),
		slot:   slot,
		locale: locale,
		logger: log,
	}, nil
}

// load refreshes both partitions. Load problems are printed to w and
// returned as diagnostics; they never stop the command.
func (a *ledgerApp) load(ctx context.Context, w io.Writer) []string {
	err := a.store.Refresh(ctx)
	diagnostics := diagnosticMessages(err)
	printDiagnostics(w, diagnostics)
	return diagnostics
}

// Close releases the slot when it holds a resource.
func (a *ledgerApp) Close() {
	if closer, ok := a.slot.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close local store")
		}
	}
}

func diagnosticMessages(err error) []string {
	if err == nil {
		return nil
	}
	if summary, ok := errors.AsErrorSummary(err); ok {
		return summary.Messages()
	}
	return []string{err.Error()}
}

func printDiagnostics(w io.Writer, diagnostics []string) {
	for _, msg := range diagnostics {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}
}
