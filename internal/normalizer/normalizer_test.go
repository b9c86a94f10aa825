package normalizer

import (
	"encoding/json"
	"testing"

	"exchange-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CanonicalRecord(t *testing.T) {
	n := New(nil)

	tx := n.Normalize(models.RawRecord{
		"deal_id":         "ACME-051225-001",
		"tx_date":         "2025-12-05T09:15:00Z",
		"tx_type":         "conversion",
		"customer":        " Acme Corp ",
		"base_currency":   "rmb",
		"target_currency": "usd",
		"amount":          "1,234.5",
		"trader_rate":     json.Number("7"),
		"payable":         176.5,
	}, models.SourceRemote)

	assert.Equal(t, "ACME-051225-001", tx.DealID)
	assert.Equal(t, "2025-12-05T09:15:00Z", tx.TxDate, "full date value is preserved")
	assert.Equal(t, "2025-12-05", tx.DateKey())
	assert.Equal(t, models.TransactionTypeConversion, tx.Type)
	assert.Equal(t, "conversion", tx.TypeLabel)
	assert.Equal(t, "Acme Corp", tx.Customer)
	assert.Equal(t, "RMB", tx.BaseCurrency)
	assert.Equal(t, "USD", tx.TargetCurrency)
	require.True(t, tx.Amount.Valid)
	assert.True(t, tx.Amount.Decimal.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, tx.TraderRate.Decimal.Equal(decimal.NewFromInt(7)))
	assert.True(t, tx.Payable.Decimal.Equal(decimal.RequireFromString("176.5")))
	assert.Equal(t, models.SourceRemote, tx.Source)
}

func TestNormalize_FieldAliases(t *testing.T) {
	n := New(nil)

	tx := n.Normalize(models.RawRecord{
		"dealID": "D-7",
		"date":   "2025-01-02",
		"type":   "Inflow (partial)",
		"base":   "USD",
		"amt":    100,
		"rate":   "3.67",
	}, models.SourceLocal)

	assert.Equal(t, "D-7", tx.DealID)
	assert.Equal(t, "2025-01-02", tx.TxDate)
	assert.Equal(t, models.TransactionTypeInflow, tx.Type)
	assert.Equal(t, "Inflow (partial)", tx.TypeLabel)
	assert.Equal(t, "USD", tx.BaseCurrency)
	assert.True(t, tx.Amount.Decimal.Equal(decimal.NewFromInt(100)))
	assert.True(t, tx.TraderRate.Decimal.Equal(decimal.RequireFromString("3.67")))
	assert.Equal(t, models.SourceLocal, tx.Source)
}

func TestNormalize_CanonicalNameWinsOverAlias(t *testing.T) {
	n := New(nil)

	tx := n.Normalize(models.RawRecord{"deal_id": "A", "dealID": "B"}, models.SourceRemote)
	assert.Equal(t, "A", tx.DealID)

	tx = n.Normalize(models.RawRecord{"deal_id": "", "dealID": "B"}, models.SourceRemote)
	assert.Equal(t, "B", tx.DealID, "an empty canonical value falls through to the alias")
}

func TestNormalize_Defaults(t *testing.T) {
	n := New(nil)

	tx := n.Normalize(models.RawRecord{}, models.SourceRemote)

	assert.Equal(t, models.NoDealID, tx.DealID)
	assert.Equal(t, "", tx.TxDate)
	assert.Equal(t, models.TransactionTypeOther, tx.Type)
	assert.Equal(t, "", tx.Customer)
	assert.False(t, tx.Amount.Valid)
	assert.False(t, tx.Payable.Valid)
	assert.False(t, tx.TraderRate.Valid)
}

func TestNormalize_CustomerFallback(t *testing.T) {
	n := New(nil)

	tests := []struct {
		name     string
		raw      models.RawRecord
		expected string
	}{
		{"customer present", models.RawRecord{"customer": "Acme", "account_to": "Other"}, "Acme"},
		{"account_to", models.RawRecord{"account_to": "Beta", "account_from": "Gamma"}, "Beta"},
		{"account_from", models.RawRecord{"account_to": "", "account_from": "Gamma"}, "Gamma"},
		{"none", models.RawRecord{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.raw, models.SourceRemote).Customer)
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		valid    bool
		expected string
	}{
		{"thousands separator", "1,234.5", true, "1234.5"},
		{"garbage string", "abc", false, ""},
		{"empty string", "", false, ""},
		{"json number", json.Number("42.25"), true, "42.25"},
		{"float", 3.5, true, "3.5"},
		{"int", 7, true, "7"},
		{"bool", true, false, ""},
		{"nil", nil, false, ""},
		{"object", map[string]interface{}{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.input)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.expected)), "got %s", got.Decimal)
			}
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "abc", Text("  abc "))
	assert.Equal(t, "12.5", Text(12.5))
	assert.Equal(t, "12", Text(json.Number("12")))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "", Text([]interface{}{"x"}))
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	n := New(nil)

	txs := n.NormalizeAll([]models.RawRecord{
		{"deal_id": "B"},
		{"deal_id": "A"},
		{"deal_id": "C"},
	}, models.SourceLocal)

	require.Len(t, txs, 3)
	assert.Equal(t, "B", txs[0].DealID)
	assert.Equal(t, "A", txs[1].DealID)
	assert.Equal(t, "C", txs[2].DealID)
}

func TestNormalize_CustomAliases(t *testing.T) {
	n := New(FieldAliases{FieldAmount: {"montant"}})

	tx := n.Normalize(models.RawRecord{"montant": "10", "amt": "99"}, models.SourceRemote)

	assert.True(t, tx.Amount.Decimal.Equal(decimal.NewFromInt(10)))
}
