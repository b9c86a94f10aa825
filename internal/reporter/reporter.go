// Package reporter renders ledger views and per-deal reports.
//
// Views are produced from an aggregator.Summary snapshot:
//   - Dashboard: totals, per-source counts, per-currency volume, diagnostics
//   - Deals: every deal sorted by id with its total and count
//   - Transactions: the merged ledger in order
//
// Supported output formats:
//   - Console: plain text for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: for spreadsheet applications
//   - Markdown: tables, optionally rendered for the terminal with glamour
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatMarkdown})
//	err = generator.Generate(reporter.ViewDeals, summary, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/models"

	"golang.org/x/text/language"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatMarkdown:
		return true
	default:
		return false
	}
}

// View selects which projection of the ledger is rendered.
type View string

const (
	ViewDashboard    View = "dashboard"
	ViewDeals        View = "deals"
	ViewTransactions View = "transactions"
)

// IsValid checks if the view is known
func (v View) IsValid() bool {
	switch v {
	case ViewDashboard, ViewDeals, ViewTransactions:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Locale drives digit grouping in console and markdown output.
	Locale string `json:"locale"`

	// MaxTransactions limits the transaction list; 0 means no limit.
	MaxTransactions int `json:"max_transactions"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// Markdown options
	Pretty      bool   `json:"pretty"`
	PrettyStyle string `json:"pretty_style"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatConsole,
		Locale:       "en",
		CSVDelimiter: ',',
		CSVHeaders:   true,
		PrettyStyle:  "notty",
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxTransactions < 0 {
		return fmt.Errorf("max transactions cannot be negative, got %d", c.MaxTransactions)
	}

	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
		}
	}

	return nil
}

// Tag returns the configured locale, defaulting to English.
func (c *ReportConfig) Tag() language.Tag {
	if c.Locale == "" {
		return language.English
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// ReportGenerator renders ledger views in the configured format
type ReportGenerator struct {
	config  *ReportConfig
	numbers *NumberFormatter
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}

	return &ReportGenerator{
		config:  config,
		numbers: NewNumberFormatter(config.Tag()),
	}, nil
}

// Generate renders view from summary and writes it to writer.
func (rg *ReportGenerator) Generate(view View, summary *aggregator.Summary, writer io.Writer) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	if !view.IsValid() {
		return fmt.Errorf("unknown view: %s", view)
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsole(view, summary, writer)
	case FormatJSON:
		return rg.generateJSON(view, summary, writer)
	case FormatCSV:
		return rg.generateCSV(view, summary, writer)
	case FormatMarkdown:
		return rg.generateMarkdown(view, summary, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// Report renders the per-deal narrative using the configured locale.
func (rg *ReportGenerator) Report(dealID string, txs []models.Transaction) string {
	return NewReportBuilder(rg.numbers).Build(dealID, txs)
}

func (rg *ReportGenerator) transactions(summary *aggregator.Summary) []models.Transaction {
	txs := summary.Transactions
	if rg.config.MaxTransactions > 0 && len(txs) > rg.config.MaxTransactions {
		txs = txs[:rg.config.MaxTransactions]
	}
	return txs
}

func (rg *ReportGenerator) generateConsole(view View, summary *aggregator.Summary, writer io.Writer) error {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	switch view {
	case ViewDashboard:
		fmt.Fprintf(tw, "DASHBOARD\n")
		fmt.Fprintf(tw, "Total Deals:\t%d\n", summary.TotalDeals)
		fmt.Fprintf(tw, "Total Transactions:\t%d\n\n", summary.TotalTransactions)

		fmt.Fprintf(tw, "=== SOURCES ===\n")
		for _, source := range []models.Source{models.SourceRemote, models.SourceLocal} {
			fmt.Fprintf(tw, "  %s:\t%d\n", source, summary.BySource[source])
		}
		fmt.Fprintf(tw, "\n")

		fmt.Fprintf(tw, "=== VOLUME BY BASE CURRENCY ===\n")
		if len(summary.Volumes) == 0 {
			fmt.Fprintf(tw, "  (none)\n")
		}
		for _, v := range summary.Volumes {
			fmt.Fprintf(tw, "  %s\t%s\t(%d tx)\n", currencyLabel(v.Currency), rg.numbers.FormatDecimal(v.Amount), v.Transactions)
		}

		if len(summary.Diagnostics) > 0 {
			fmt.Fprintf(tw, "\n=== DIAGNOSTICS ===\n")
			for _, d := range summary.Diagnostics {
				fmt.Fprintf(tw, "  ! %s\n", d)
			}
		}

	case ViewDeals:
		fmt.Fprintf(tw, "DEALS (%d)\n", len(summary.Deals))
		fmt.Fprintf(tw, "DEAL ID\tCUSTOMER\tBASE\tTOTAL\tCOUNT\n")
		for _, d := range summary.Deals {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
				d.DealID, d.Customer, d.BaseCurrency, rg.numbers.FormatDecimal(d.TotalAmount), d.Count)
		}

	case ViewTransactions:
		txs := rg.transactions(summary)
		fmt.Fprintf(tw, "TRANSACTIONS (%d)\n", summary.TotalTransactions)
		for _, tx := range txs {
			fmt.Fprintf(tw, "%s\t%s\t%s – %s %s\t%s\n",
				tx.DealID, tx.TxDate, tx.TypeLabel, rg.numbers.Format(tx.Amount), tx.BaseCurrency, tx.Source)
		}
		if len(txs) < len(summary.Transactions) {
			fmt.Fprintf(tw, "... %d more\n", len(summary.Transactions)-len(txs))
		}
	}

	return tw.Flush()
}

func (rg *ReportGenerator) generateJSON(view View, summary *aggregator.Summary, writer io.Writer) error {
	var payload interface{}
	switch view {
	case ViewDashboard:
		payload = summary
	case ViewDeals:
		payload = summary.Deals
	case ViewTransactions:
		payload = rg.transactions(summary)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func (rg *ReportGenerator) generateCSV(view View, summary *aggregator.Summary, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	var headers []string
	var rows [][]string

	switch view {
	case ViewDashboard:
		headers = []string{"Metric", "Key", "Value"}
		rows = append(rows,
			[]string{"total_deals", "", strconv.Itoa(summary.TotalDeals)},
			[]string{"total_transactions", "", strconv.Itoa(summary.TotalTransactions)},
		)
		for _, source := range sortedSources(summary.BySource) {
			rows = append(rows, []string{"transactions_by_source", string(source), strconv.Itoa(summary.BySource[source])})
		}
		for _, v := range summary.Volumes {
			rows = append(rows, []string{"volume", v.Currency, v.Amount.String()})
		}

	case ViewDeals:
		headers = []string{"Deal_ID", "Customer", "Base_Currency", "Total_Amount", "Count"}
		for _, d := range summary.Deals {
			rows = append(rows, []string{d.DealID, d.Customer, d.BaseCurrency, d.TotalAmount.String(), strconv.Itoa(d.Count)})
		}

	case ViewTransactions:
		headers = []string{"Deal_ID", "Date", "Type", "Customer", "Base_Currency", "Target_Currency",
			"Amount", "Trader_Rate", "Payable", "Source", "Record_ID"}
		for _, tx := range rg.transactions(summary) {
			rows = append(rows, []string{
				tx.DealID,
				tx.TxDate,
				tx.TypeLabel,
				tx.Customer,
				tx.BaseCurrency,
				tx.TargetCurrency,
				models.NullString(tx.Amount),
				models.NullString(tx.TraderRate),
				models.NullString(tx.Payable),
				string(tx.Source),
				tx.RecordID,
			})
		}
	}

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// UpdateConfiguration replaces the generator's configuration.
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	rg.config = config
	rg.numbers = NewNumberFormatter(config.Tag())
	return nil
}

// GetConfiguration returns the current configuration.
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func sortedSources(counts map[models.Source]int) []models.Source {
	sources := make([]models.Source, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] > sources[j] })
	return sources
}

func currencyLabel(code string) string {
	if code == "" {
		return "(none)"
	}
	return code
}
