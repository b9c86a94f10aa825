package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is the category a transaction's type string falls into.
type TransactionType string

const (
	TransactionTypeInflow     TransactionType = "inflow"
	TransactionTypeOutflow    TransactionType = "outflow"
	TransactionTypeConversion TransactionType = "conversion"
	TransactionTypeOther      TransactionType = "other"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is one of the known categories
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeInflow, TransactionTypeOutflow, TransactionTypeConversion, TransactionTypeOther:
		return true
	default:
		return false
	}
}

// ClassifyTransactionType maps a free-form type string onto a category by
// case-insensitive substring match, so "Inflow (partial)" is an inflow.
func ClassifyTransactionType(s string) TransactionType {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "inflow"):
		return TransactionTypeInflow
	case strings.Contains(lower, "outflow"):
		return TransactionTypeOutflow
	case strings.Contains(lower, "conv"):
		return TransactionTypeConversion
	default:
		return TransactionTypeOther
	}
}

// Source identifies the ledger partition a transaction came from.
type Source string

const (
	SourceRemote Source = "REMOTE"
	SourceLocal  Source = "LOCAL"
)

// NoDealID is assigned to records that carry no deal identifier.
const NoDealID = "NO-ID"

// RawRecord is an input record before normalization: arbitrary keys, arbitrary values.
type RawRecord map[string]interface{}

// Transaction is the canonical shape every record is normalized into.
type Transaction struct {
	RecordID       string              `json:"record_id,omitempty"`
	DealID         string              `json:"deal_id"`
	TxDate         string              `json:"tx_date"`
	Type           TransactionType     `json:"tx_type"`
	TypeLabel      string              `json:"tx_type_label"`
	Customer       string              `json:"customer"`
	BaseCurrency   string              `json:"base_currency"`
	TargetCurrency string              `json:"target_currency,omitempty"`
	Amount         decimal.NullDecimal `json:"amount"`
	Payable        decimal.NullDecimal `json:"payable"`
	TraderRate     decimal.NullDecimal `json:"trader_rate"`
	Source         Source              `json:"source"`
}

// DateKey returns the calendar-date part of TxDate (its first 10 characters).
func (t Transaction) DateKey() string {
	return DateKey(t.TxDate)
}

// DateKey truncates a date or timestamp string to YYYY-MM-DD length.
func DateKey(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// AmountOrZero returns the amount, treating an unparsable amount as zero.
func (t Transaction) AmountOrZero() decimal.Decimal {
	return OrZero(t.Amount)
}

// IsConversion reports whether the transaction converts between currencies.
func (t Transaction) IsConversion() bool {
	return t.Type == TransactionTypeConversion
}

// String returns a string representation of the Transaction
func (t Transaction) String() string {
	return fmt.Sprintf("Transaction{Deal: %s, Date: %s, Type: %s, Amount: %s %s, Source: %s}",
		t.DealID, t.TxDate, t.TypeLabel, NullString(t.Amount), t.BaseCurrency, t.Source)
}

// MarshalJSON renders decimals as JSON numbers and unparsable values as null.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount     interface{} `json:"amount"`
		Payable    interface{} `json:"payable"`
		TraderRate interface{} `json:"trader_rate"`
		Alias
	}{
		Amount:     NullNumber(t.Amount),
		Payable:    NullNumber(t.Payable),
		TraderRate: NullNumber(t.TraderRate),
		Alias:      Alias(t),
	})
}

// ToRawRecord renders the transaction with canonical field names, the shape
// the local partition persists.
func (t Transaction) ToRawRecord() RawRecord {
	raw := RawRecord{
		"deal_id":       t.DealID,
		"tx_date":       t.TxDate,
		"tx_type":       t.TypeLabel,
		"customer":      t.Customer,
		"base_currency": t.BaseCurrency,
		"amount":        NullNumber(t.Amount),
		"payable":       NullNumber(t.Payable),
		"trader_rate":   NullNumber(t.TraderRate),
	}
	if t.RecordID != "" {
		raw["record_id"] = t.RecordID
	}
	if t.TargetCurrency != "" {
		raw["target_currency"] = t.TargetCurrency
	}
	return raw
}

// Deal is a projection of every transaction sharing a deal id.
type Deal struct {
	DealID       string          `json:"deal_id"`
	Customer     string          `json:"customer"`
	BaseCurrency string          `json:"base_currency"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Count        int             `json:"count"`
}

// MarshalJSON renders TotalAmount as a JSON number.
func (d Deal) MarshalJSON() ([]byte, error) {
	type Alias Deal
	return json.Marshal(&struct {
		TotalAmount json.Number `json:"total_amount"`
		Alias
	}{
		TotalAmount: json.Number(d.TotalAmount.String()),
		Alias:       Alias(d),
	})
}

// Utility functions for nullable decimals

// OrZero returns the decimal value, or zero when it is null.
func OrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// Null returns an invalid (null) decimal.
func Null() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Valid wraps a decimal as a non-null value.
func Valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NullNumber returns a json.Number for valid decimals and nil otherwise.
func NullNumber(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return json.Number(d.Decimal.String())
}

// NullString returns the decimal's string form, or "" when it is null.
func NullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// ParseDecimalFromString parses a decimal after stripping thousands separators.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}
