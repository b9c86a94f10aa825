package reporter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/models"

	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"
)

// tableOptions keeps headers as written and rows on one line.
var tableOptions = md.TableOptions{AutoWrapText: false, AutoFormatHeaders: false}

// MarkdownView renders view as a markdown document.
func (rg *ReportGenerator) MarkdownView(view View, summary *aggregator.Summary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	switch view {
	case ViewDashboard:
		doc.H1("Dashboard")
		doc.PlainText(fmt.Sprintf("Total Deals: %d", summary.TotalDeals))
		doc.PlainText(fmt.Sprintf("Total Transactions: %d", summary.TotalTransactions))

		doc.H2("Sources")
		doc.CustomTable(md.TableSet{
			Header: []string{"Source", "Transactions"},
			Rows: [][]string{
				{string(models.SourceRemote), strconv.Itoa(summary.BySource[models.SourceRemote])},
				{string(models.SourceLocal), strconv.Itoa(summary.BySource[models.SourceLocal])},
			},
		}, tableOptions)

		if len(summary.Volumes) > 0 {
			doc.H2("Volume by Base Currency")
			rows := make([][]string, 0, len(summary.Volumes))
			for _, v := range summary.Volumes {
				rows = append(rows, []string{currencyLabel(v.Currency), rg.numbers.FormatDecimal(v.Amount), strconv.Itoa(v.Transactions)})
			}
			doc.CustomTable(md.TableSet{
				Header: []string{"Currency", "Amount", "Transactions"},
				Rows:   rows,
			}, tableOptions)
		}

		if len(summary.Diagnostics) > 0 {
			doc.H2("Diagnostics")
			doc.BulletList(summary.Diagnostics...)
		}

	case ViewDeals:
		doc.H1(fmt.Sprintf("Deals (%d)", len(summary.Deals)))
		rows := make([][]string, 0, len(summary.Deals))
		for _, d := range summary.Deals {
			rows = append(rows, []string{d.DealID, d.Customer, d.BaseCurrency, rg.numbers.FormatDecimal(d.TotalAmount), strconv.Itoa(d.Count)})
		}
		doc.CustomTable(md.TableSet{
			Header: []string{"Deal", "Customer", "Base", "Total", "Count"},
			Rows:   rows,
		}, tableOptions)

	case ViewTransactions:
		doc.H1(fmt.Sprintf("Transactions (%d)", summary.TotalTransactions))
		txs := rg.transactions(summary)
		rows := make([][]string, 0, len(txs))
		for _, tx := range txs {
			rows = append(rows, []string{tx.DealID, tx.TxDate, tx.TypeLabel, rg.numbers.Format(tx.Amount), tx.BaseCurrency, string(tx.Source)})
		}
		doc.CustomTable(md.TableSet{
			Header: []string{"Deal", "Date", "Type", "Amount", "Currency", "Source"},
			Rows:   rows,
		}, tableOptions)
	}

	return doc.String()
}

func (rg *ReportGenerator) generateMarkdown(view View, summary *aggregator.Summary, writer io.Writer) error {
	out := rg.MarkdownView(view, summary)

	if rg.config.Pretty {
		style := rg.config.PrettyStyle
		if style == "" {
			style = "notty"
		}
		rendered, err := glamour.Render(out, style)
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		out = rendered
	}

	_, err := io.WriteString(writer, out)
	return err
}
