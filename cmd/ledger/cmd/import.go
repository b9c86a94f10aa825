package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"exchange-ledger/internal/importer"
	"exchange-ledger/internal/intake"
	"exchange-ledger/pkg/errors"

	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import transactions from a CSV file into the local partition",
	Long: `Import reads a CSV file whose header row names the transaction fields and
records every valid row in the local partition. Canonical names and their
aliases are both accepted, e.g. date or tx_date, type or tx_type, currency or
base_currency, amt or amount.

Rows that fail validation are listed with their line number and skipped; the
rest are saved.

Examples:
  ledger import desk-2025-12.csv
  ledger import export.csv --delimiter ';' --dry-run
  ledger import export.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("delimiter", ",", "CSV field delimiter")
	importCmd.Flags().Bool("dry-run", false, "validate every row without saving")
	importCmd.Flags().Bool("json", false, "print the import result as JSON")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	delimiter, _ := cmd.Flags().GetString("delimiter")
	if utf8.RuneCountInString(delimiter) != 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "delimiter", delimiter, nil).
			WithSuggestion("use a single character such as ',' or ';'")
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	file, err := os.Open(path)
	if err != nil {
		return errors.DataSourceError(errors.CodeStorageRead, path, err)
	}
	defer file.Close()

	readerConfig := importer.DefaultReaderConfig()
	readerConfig.Delimiter, _ = utf8.DecodeRuneInString(delimiter)

	reader, err := importer.NewReader(file, readerConfig)
	if err != nil {
		return err
	}

	app, err := newLedgerApp()
	if err != nil {
		return err
	}
	defer app.Close()

	app.load(cmd.Context(), cmd.ErrOrStderr())

	im := importer.New(intake.NewService(app.store, nil, nil))
	im.DryRun = dryRun

	result, err := im.Import(cmd.Context(), reader)
	if result != nil {
		if printErr := printImportResult(cmd, result, asJSON); printErr != nil && err == nil {
			err = printErr
		}
	}
	return err
}

func printImportResult(cmd *cobra.Command, result *importer.Result, asJSON bool) error {
	w := cmd.OutOrStdout()

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	for _, rejection := range result.Rejected {
		for _, msg := range rejection.Messages {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s\n", rejection.Line, msg)
		}
	}
	fmt.Fprintln(w, result.String())
	return nil
}
