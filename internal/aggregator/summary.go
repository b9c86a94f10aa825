package aggregator

import (
	"sort"

	"exchange-ledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// CurrencyVolume is the summed amount of every transaction in one base currency.
type CurrencyVolume struct {
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	Transactions int             `json:"transactions"`
}

// Summary is the dashboard projection of a ledger snapshot.
type Summary struct {
	TotalDeals        int                   `json:"total_deals"`
	TotalTransactions int                   `json:"total_transactions"`
	BySource          map[models.Source]int `json:"by_source"`
	ByType            map[string]int        `json:"by_type"`
	Volumes           []CurrencyVolume      `json:"volumes"`
	Deals             []models.Deal         `json:"deals"`
	Transactions      []models.Transaction  `json:"transactions"`
	Diagnostics       []string              `json:"diagnostics,omitempty"`
}

// Summarize aggregates txs and derives the dashboard figures. Deals are
// sorted by id; transactions keep the order they were given in.
func Summarize(txs []models.Transaction, tag language.Tag) *Summary {
	deals := Aggregate(txs)

	summary := &Summary{
		TotalDeals:        deals.Len(),
		TotalTransactions: len(txs),
		BySource:          make(map[models.Source]int),
		ByType:            make(map[string]int),
		Volumes:           []CurrencyVolume{},
		Deals:             deals.Sorted(tag),
		Transactions:      txs,
	}

	volumes := make(map[string]*CurrencyVolume)
	for _, tx := range txs {
		summary.BySource[tx.Source]++
		summary.ByType[tx.Type.String()]++

		v, ok := volumes[tx.BaseCurrency]
		if !ok {
			v = &CurrencyVolume{Currency: tx.BaseCurrency, Amount: decimal.Zero}
			volumes[tx.BaseCurrency] = v
		}
		v.Amount = v.Amount.Add(tx.AmountOrZero())
		v.Transactions++
	}

	for _, v := range volumes {
		summary.Volumes = append(summary.Volumes, *v)
	}
	sort.Slice(summary.Volumes, func(i, j int) bool {
		return summary.Volumes[i].Currency < summary.Volumes[j].Currency
	})

	return summary
}
