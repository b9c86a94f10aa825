// Package aggregator groups canonical transactions into deals.
//
// Every call recomputes from scratch; nothing is carried between calls.
package aggregator

import (
	"sort"

	"exchange-ledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DealSet holds aggregated deals keyed by deal id, remembering the order in
// which each id was first seen.
type DealSet struct {
	order []string
	deals map[string]*models.Deal
}

// Aggregate groups transactions by deal id in a single pass. A deal's
// customer and base currency come from its first transaction; later
// transactions that disagree are counted without complaint.
func Aggregate(txs []models.Transaction) *DealSet {
	ds := &DealSet{
		order: make([]string, 0),
		deals: make(map[string]*models.Deal),
	}

	for _, tx := range txs {
		deal, ok := ds.deals[tx.DealID]
		if !ok {
			deal = &models.Deal{
				DealID:       tx.DealID,
				Customer:     tx.Customer,
				BaseCurrency: tx.BaseCurrency,
				TotalAmount:  decimal.Zero,
			}
			ds.deals[tx.DealID] = deal
			ds.order = append(ds.order, tx.DealID)
		}
		deal.TotalAmount = deal.TotalAmount.Add(tx.AmountOrZero())
		deal.Count++
	}

	return ds
}

// Len returns the number of distinct deals.
func (ds *DealSet) Len() int {
	return len(ds.order)
}

// Get returns a copy of the deal with the given id.
func (ds *DealSet) Get(dealID string) (models.Deal, bool) {
	deal, ok := ds.deals[dealID]
	if !ok {
		return models.Deal{}, false
	}
	return *deal, true
}

// Deals returns the deals in first-seen order.
func (ds *DealSet) Deals() []models.Deal {
	out := make([]models.Deal, 0, len(ds.order))
	for _, id := range ds.order {
		out = append(out, *ds.deals[id])
	}
	return out
}

// Sorted returns the deals ordered by deal id using the collation rules of tag.
func (ds *DealSet) Sorted(tag language.Tag) []models.Deal {
	out := ds.Deals()
	SortDeals(out, tag)
	return out
}

// TotalAmount sums every deal's total.
func (ds *DealSet) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, deal := range ds.deals {
		total = total.Add(deal.TotalAmount)
	}
	return total
}

// TotalCount sums every deal's transaction count.
func (ds *DealSet) TotalCount() int {
	count := 0
	for _, deal := range ds.deals {
		count += deal.Count
	}
	return count
}

// SortDeals orders deals by deal id with locale-aware comparison. Equal ids
// under the collator keep their relative order.
func SortDeals(deals []models.Deal, tag language.Tag) {
	col := collate.New(tag)
	sort.SliceStable(deals, func(i, j int) bool {
		return col.CompareString(deals[i].DealID, deals[j].DealID) < 0
	})
}
