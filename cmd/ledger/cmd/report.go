package cmd

import (
	"fmt"
	"strings"

	"exchange-ledger/internal/reporter"
	"exchange-ledger/pkg/errors"

	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <deal-id>",
	Short: "Print the narrative report of one deal",
	Long: `Report prints every transaction of a deal in ledger order, one line per
transaction, followed by the customer, the transaction count and the deal total.

Inflows read "+ amount CUR – Inflow", outflows "– amount CUR – Outflow" and
conversions "– amount CUR × rate → payable TARGET".

Examples:
  ledger report ACME-051225-001
  ledger report ACME-051225-001 --locale de-DE`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	dealID := strings.TrimSpace(args[0])
	if dealID == "" {
		return errors.ValidationError(errors.CodeMissingField, "deal_id", nil, nil)
	}

	app, err := newLedgerApp()
	if err != nil {
		return err
	}
	defer app.Close()

	app.load(cmd.Context(), cmd.ErrOrStderr())

	builder := reporter.NewReportBuilder(reporter.NewNumberFormatter(app.locale))
	report := builder.Build(dealID, app.store.Merged())

	fmt.Fprint(cmd.OutOrStdout(), report)
	if !strings.HasSuffix(report, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
