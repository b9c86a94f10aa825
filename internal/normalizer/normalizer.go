// Package normalizer coerces loosely shaped input records into canonical
// transactions.
//
// Normalization never fails. Field-name variants are resolved through an
// alias table, numeric strings are parsed after stripping thousands
// separators, and anything unusable degrades to a safe default: "NO-ID" for
// a missing deal id, null for amounts that do not parse, "" for text.
package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/shopspring/decimal"
)

// Canonical field names.
const (
	FieldRecordID       = "record_id"
	FieldDealID         = "deal_id"
	FieldTxDate         = "tx_date"
	FieldTxType         = "tx_type"
	FieldCustomer       = "customer"
	FieldBaseCurrency   = "base_currency"
	FieldTargetCurrency = "target_currency"
	FieldAmount         = "amount"
	FieldPayable        = "payable"
	FieldTraderRate     = "trader_rate"
)

// FieldAliases lists, per canonical field, the input keys that may carry it
// in priority order. The canonical name itself is always tried first.
type FieldAliases map[string][]string

// DefaultFieldAliases returns the aliases seen across historical dataset shapes.
func DefaultFieldAliases() FieldAliases {
	return FieldAliases{
		FieldRecordID:       {"id", "recordID"},
		FieldDealID:         {"dealID", "dealId", "deal"},
		FieldTxDate:         {"date", "txDate", "transaction_date"},
		FieldTxType:         {"type", "txType", "transaction_type"},
		FieldCustomer:       {"customer_name", "client"},
		FieldBaseCurrency:   {"base", "currency", "baseCurrency"},
		FieldTargetCurrency: {"target", "targetCurrency", "quote_currency"},
		FieldAmount:         {"amt", "value"},
		FieldPayable:        {"payable_amount", "payableAmount"},
		FieldTraderRate:     {"rate", "traderRate", "exchange_rate"},
	}
}

// customerFallbacks are consulted in order when no customer field is present.
var customerFallbacks = []string{"account_to", "account_from"}

// Normalizer converts raw records into canonical transactions.
type Normalizer struct {
	aliases FieldAliases
	logger  logger.Logger
}

// New creates a Normalizer. A nil alias table uses DefaultFieldAliases.
func New(aliases FieldAliases) *Normalizer {
	if aliases == nil {
		aliases = DefaultFieldAliases()
	}
	return &Normalizer{
		aliases: aliases,
		logger:  logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// Normalize produces the canonical transaction for one raw record.
func (n *Normalizer) Normalize(raw models.RawRecord, source models.Source) models.Transaction {
	typeLabel := n.text(raw, FieldTxType)

	tx := models.Transaction{
		RecordID:       n.text(raw, FieldRecordID),
		DealID:         n.text(raw, FieldDealID),
		TxDate:         n.text(raw, FieldTxDate),
		Type:           models.ClassifyTransactionType(typeLabel),
		TypeLabel:      typeLabel,
		Customer:       n.text(raw, FieldCustomer),
		BaseCurrency:   strings.ToUpper(n.text(raw, FieldBaseCurrency)),
		TargetCurrency: strings.ToUpper(n.text(raw, FieldTargetCurrency)),
		Amount:         n.number(raw, FieldAmount),
		Payable:        n.number(raw, FieldPayable),
		TraderRate:     n.number(raw, FieldTraderRate),
		Source:         source,
	}

	if tx.DealID == "" {
		tx.DealID = models.NoDealID
	}

	if tx.Customer == "" {
		for _, key := range customerFallbacks {
			if v := Text(raw[key]); v != "" {
				tx.Customer = v
				break
			}
		}
	}

	return tx
}

// NormalizeAll normalizes a batch, preserving order.
func (n *Normalizer) NormalizeAll(raws []models.RawRecord, source models.Source) []models.Transaction {
	txs := make([]models.Transaction, 0, len(raws))
	for _, raw := range raws {
		txs = append(txs, n.Normalize(raw, source))
	}
	return txs
}

// Lookup returns the first non-empty value for a canonical field, trying the
// canonical key and then its aliases.
func (n *Normalizer) Lookup(raw models.RawRecord, field string) (interface{}, bool) {
	keys := append([]string{field}, n.aliases[field]...)
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (n *Normalizer) text(raw models.RawRecord, field string) string {
	v, ok := n.Lookup(raw, field)
	if !ok {
		return ""
	}
	return Text(v)
}

func (n *Normalizer) number(raw models.RawRecord, field string) decimal.NullDecimal {
	v, ok := n.Lookup(raw, field)
	if !ok {
		return models.Null()
	}

	d, valid := Number(v)
	if !valid {
		n.logger.WithField("error", errors.InputError(errors.CodeUnparsableNumber, field, v, nil).Message).
			Debug("Defaulted unparsable number to null")
	}
	return d
}

// Text coerces any scalar into a trimmed string. Non-scalars become "".
func Text(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.String()
	default:
		return ""
	}
}

// Number coerces a value into a nullable decimal. Strings may carry
// thousands separators. Anything unparsable is null, never zero.
func Number(v interface{}) (decimal.NullDecimal, bool) {
	switch val := v.(type) {
	case nil:
		return models.Null(), false
	case decimal.Decimal:
		return models.Valid(val), true
	case float64:
		return models.Valid(decimal.NewFromFloat(val)), true
	case float32:
		return models.Valid(decimal.NewFromFloat32(val)), true
	case int:
		return models.Valid(decimal.NewFromInt(int64(val))), true
	case int64:
		return models.Valid(decimal.NewFromInt(val)), true
	case json.Number:
		return parseNumber(val.String())
	case string:
		return parseNumber(val)
	default:
		return models.Null(), false
	}
}

func parseNumber(s string) (decimal.NullDecimal, bool) {
	d, err := models.ParseDecimalFromString(s)
	if err != nil {
		return models.Null(), false
	}
	return models.Valid(d), true
}
