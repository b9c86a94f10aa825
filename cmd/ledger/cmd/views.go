package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"exchange-ledger/cmd/ledger/config"
	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/reporter"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dashboardCmd = newViewCommand(reporter.ViewDashboard,
	"dashboard",
	"Show totals, per-source counts and per-currency volume",
	`Dashboard loads the remote dataset and the local partition, then prints the
number of deals and transactions, how many came from each source, the summed
volume per base currency, every deal and the merged transaction list.

Load problems are printed as warnings; the dashboard is still rendered from
whatever could be loaded.

Examples:
  ledger dashboard --data-url file:///srv/data/transactions.json
  ledger dashboard --output-format json --output-file dashboard.json
  ledger dashboard --output-format markdown --pretty`)

var dealsCmd = newViewCommand(reporter.ViewDeals,
	"deals",
	"List deals with their totals",
	`Deals groups every transaction by deal id and lists each deal with its
customer, base currency, summed amount and transaction count, sorted by deal id.

Examples:
  ledger deals
  ledger deals --locale de-DE --output-format csv`)

var transactionsCmd = newViewCommand(reporter.ViewTransactions,
	"transactions",
	"List the merged transaction ledger",
	`Transactions prints the remote and local transactions merged and sorted by
date, then deal id.

Examples:
  ledger transactions --max-transactions 20
  ledger transactions --output-format json`)

func init() {
	rootCmd.AddCommand(dashboardCmd, dealsCmd, transactionsCmd)
}

func newViewCommand(view reporter.View, use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Args:    cobra.NoArgs,
		PreRunE: validateViewFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, view)
		},
	}

	// Output flags
	cmd.Flags().StringP("output-format", "f", "console", "output format: console, json, csv, markdown")
	cmd.Flags().StringP("output-file", "o", "", "output file path (default: stdout)")
	cmd.Flags().Bool("pretty", false, "render markdown output for the terminal")
	cmd.Flags().Int("max-transactions", 0, "limit the transaction list (0 means no limit)")

	return cmd
}

func validateViewFlags(cmd *cobra.Command, args []string) error {
	if err := bindLocalFlags(cmd); err != nil {
		return err
	}

	if _, err := config.CreateReportConfig(viper.GetString("output-format"), viper.GetString("locale"), viper.GetBool("pretty")); err != nil {
		return err
	}

	if viper.GetInt("max-transactions") < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max-transactions", viper.GetInt("max-transactions"), nil)
	}

	// Validate output file directory exists if specified
	if outputFile := viper.GetString("output-file"); outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return errors.ConfigurationError(errors.CodeInvalidConfig, "output-file", outputFile, err).
					WithSuggestion(fmt.Sprintf("create the directory %s first", dir))
			}
		}
	}

	return nil
}

func runView(cmd *cobra.Command, view reporter.View) error {
	reportConfig, err := config.CreateReportConfig(viper.GetString("output-format"), viper.GetString("locale"), viper.GetBool("pretty"))
	if err != nil {
		return err
	}
	reportConfig.MaxTransactions = viper.GetInt("max-transactions")

	app, err := newLedgerApp()
	if err != nil {
		return err
	}
	defer app.Close()

	diagnostics := app.load(cmd.Context(), cmd.ErrOrStderr())

	summary := aggregator.Summarize(app.store.Merged(), reportConfig.Tag())
	summary.Diagnostics = diagnostics

	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cmd, viper.GetString("output-file"))
	if err != nil {
		return err
	}
	defer closeOutput()

	return generator.GenerateSafely(view, summary, output)
}

// openOutput returns the command's stdout, or the named file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.DataSourceError(errors.CodeStorageWrite, path, err)
	}
	return file, func() { file.Close() }, nil
}
