package reporter

import (
	"fmt"
	"strings"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/internal/models"
)

// NoTransactionsMessage is the whole report for a deal with no transactions.
const NoTransactionsMessage = "No transactions found for this deal."

// BuildReport renders the narrative for one deal. Transactions are filtered
// by deal id and kept in the order given. The closing line names the
// customer of the first matching transaction.
func BuildReport(dealID string, txs []models.Transaction) string {
	return NewReportBuilder(nil).Build(dealID, txs)
}

// ReportBuilder renders deal reports with a configurable number formatter.
type ReportBuilder struct {
	numbers *NumberFormatter
}

// NewReportBuilder creates a builder. A nil formatter uses English grouping.
func NewReportBuilder(numbers *NumberFormatter) *ReportBuilder {
	if numbers == nil {
		numbers = defaultFormatter
	}
	return &ReportBuilder{numbers: numbers}
}

// Build renders the report for dealID.
func (rb *ReportBuilder) Build(dealID string, txs []models.Transaction) string {
	filtered := make([]models.Transaction, 0)
	for _, tx := range txs {
		if tx.DealID == dealID {
			filtered = append(filtered, tx)
		}
	}

	if len(filtered) == 0 {
		return NoTransactionsMessage
	}

	deal, _ := aggregator.Aggregate(filtered).Get(dealID)

	var b strings.Builder
	fmt.Fprintf(&b, "Deal Report: %s\n", dealID)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 40))

	for _, tx := range filtered {
		b.WriteString("\n")
		b.WriteString(heading(tx))
		b.WriteString("\n")
		b.WriteString(rb.Line(tx))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Customer: %s · %d transaction(s) · Total %s %s\n",
		filtered[0].Customer, deal.Count, rb.numbers.FormatDecimal(deal.TotalAmount), deal.BaseCurrency)

	return b.String()
}

// Line renders the detail line for one transaction.
func (rb *ReportBuilder) Line(tx models.Transaction) string {
	amount := rb.numbers.Format(tx.Amount)

	switch tx.Type {
	case models.TransactionTypeInflow:
		return fmt.Sprintf("+ %s %s – Inflow", amount, tx.BaseCurrency)
	case models.TransactionTypeOutflow:
		return fmt.Sprintf("– %s %s – Outflow", amount, tx.BaseCurrency)
	case models.TransactionTypeConversion:
		return fmt.Sprintf("– %s %s × %s → %s %s",
			amount, tx.BaseCurrency,
			rb.numbers.Format(tx.TraderRate),
			rb.numbers.Format(tx.Payable), tx.TargetCurrency)
	default:
		return fmt.Sprintf("%s %s – %s", amount, tx.BaseCurrency, tx.TypeLabel)
	}
}

// heading names the transaction's category, after its date when it has one.
func heading(tx models.Transaction) string {
	if tx.TxDate == "" {
		return categoryLabel(tx)
	}
	return tx.TxDate + " · " + categoryLabel(tx)
}

func categoryLabel(tx models.Transaction) string {
	switch tx.Type {
	case models.TransactionTypeInflow:
		return "Inflow"
	case models.TransactionTypeOutflow:
		return "Outflow"
	case models.TransactionTypeConversion:
		return "Conversion"
	default:
		if tx.TypeLabel == "" {
			return "Other"
		}
		return tx.TypeLabel
	}
}
