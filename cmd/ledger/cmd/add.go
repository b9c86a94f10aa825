package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"exchange-ledger/internal/intake"
	"exchange-ledger/internal/models"
	"exchange-ledger/internal/normalizer"
	"exchange-ledger/internal/reporter"

	"github.com/spf13/cobra"
)

// addFields maps add flags onto canonical record fields.
var addFields = []struct {
	flag  string
	field string
	usage string
}{
	{"deal-id", normalizer.FieldDealID, "deal id (generated when omitted)"},
	{"date", normalizer.FieldTxDate, "transaction date, YYYY-MM-DD (required)"},
	{"customer", normalizer.FieldCustomer, "customer name (required)"},
	{"type", normalizer.FieldTxType, "transaction type: inflow, outflow, conversion (required)"},
	{"base", normalizer.FieldBaseCurrency, "base currency code (required)"},
	{"target", normalizer.FieldTargetCurrency, "target currency code (conversions)"},
	{"amount", normalizer.FieldAmount, "amount in the base currency (required)"},
	{"rate", normalizer.FieldTraderRate, "trader rate (conversions)"},
	{"payable", normalizer.FieldPayable, "payable in the target currency; derived from the rate when omitted"},
}

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new transaction in the local partition",
	Long: `Add validates a new transaction and appends it to the local partition.

A deal id is generated from the customer and date when none is given. For
conversions the payable is derived from the trader rate when the currency pair
is supported; otherwise it must be entered with --payable.

Examples:
  ledger add --date 2025-12-05 --customer "Acme Corp" --type inflow --base USD --amount 100
  ledger add --date 2025-12-05 --customer "Acme Corp" --type conversion \
    --base RMB --target USD --amount 50 --rate 7
  ledger add --date 2025-12-05 --customer "Acme Corp" --type conversion \
    --base USD --target EUR --amount 10 --rate 0.9 --payable 9 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	for _, f := range addFields {
		addCmd.Flags().String(f.flag, "", f.usage)
	}
	addCmd.Flags().Bool("dry-run", false, "validate and print the transaction without saving it")
	addCmd.Flags().Bool("json", false, "print the saved transaction as JSON")
}

// recordFromFlags builds a raw record from the flags that were set.
func recordFromFlags(cmd *cobra.Command) (models.RawRecord, error) {
	raw := models.RawRecord{}
	for _, f := range addFields {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(f.flag)
		if err != nil {
			return nil, err
		}
		raw[f.field] = value
	}
	return raw, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	raw, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	app, err := newLedgerApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// Deal-id counters need the current ledger.
	app.load(cmd.Context(), cmd.ErrOrStderr())

	svc := intake.NewService(app.store, nil, nil)

	var tx models.Transaction
	if dryRun {
		tx, err = svc.Prepare(raw)
	} else {
		tx, err = svc.Submit(cmd.Context(), raw)
	}
	if err != nil {
		return err
	}

	return printTransaction(cmd.OutOrStdout(), tx, app, dryRun, asJSON)
}

func printTransaction(w io.Writer, tx models.Transaction, app *ledgerApp, dryRun, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tx)
	}

	verb := "Saved"
	if dryRun {
		verb = "Validated"
	}

	builder := reporter.NewReportBuilder(reporter.NewNumberFormatter(app.locale))
	fmt.Fprintf(w, "%s %s · %s · %s\n", verb, tx.DealID, tx.TxDate, tx.Customer)
	fmt.Fprintf(w, "  %s\n", builder.Line(tx))
	return nil
}
