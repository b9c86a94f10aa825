// Package intake validates and records new locally entered transactions.
package intake

import (
	"context"

	"exchange-ledger/internal/dealid"
	"exchange-ledger/internal/ledger"
	"exchange-ledger/internal/models"
	"exchange-ledger/internal/normalizer"
	"exchange-ledger/internal/rates"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/google/uuid"
)

// RequiredFields must be present on every submitted record.
var RequiredFields = []string{
	normalizer.FieldTxDate,
	normalizer.FieldCustomer,
	normalizer.FieldTxType,
	normalizer.FieldBaseCurrency,
	normalizer.FieldAmount,
}

// Service turns submitted records into persisted local transactions.
type Service struct {
	store      *ledger.Store
	dealIDs    *dealid.Generator
	rates      *rates.Calculator
	normalizer *normalizer.Normalizer
	logger     logger.Logger

	// NewRecordID assigns the record id of each saved row.
	NewRecordID func() string
}

// NewService creates an intake service. Nil collaborators get defaults.
func NewService(store *ledger.Store, gen *dealid.Generator, calc *rates.Calculator) *Service {
	if gen == nil {
		gen = dealid.NewGenerator()
	}
	if calc == nil {
		calc = rates.NewCalculator(nil)
	}
	return &Service{
		store:       store,
		dealIDs:     gen,
		rates:       calc,
		normalizer:  normalizer.New(nil),
		logger:      logger.GetGlobalLogger().WithComponent("intake"),
		NewRecordID: uuid.NewString,
	}
}

// Prepare validates raw and returns the canonical transaction it would
// save, with deal id and payable filled in. Nothing is persisted. A failed
// validation returns an *errors.ErrorSummary listing every problem.
func (s *Service) Prepare(raw models.RawRecord) (models.Transaction, error) {
	var errs []*errors.LedgerError

	for _, field := range RequiredFields {
		if _, ok := s.normalizer.Lookup(raw, field); !ok {
			errs = append(errs, errors.ValidationError(errors.CodeMissingField, field, nil, nil))
		}
	}

	tx := s.normalizer.Normalize(raw, models.SourceLocal)

	if v, ok := s.normalizer.Lookup(raw, normalizer.FieldAmount); ok && !tx.Amount.Valid {
		errs = append(errs, errors.ValidationError(errors.CodeInvalidAmount, normalizer.FieldAmount, v, nil))
	}

	if tx.IsConversion() {
		errs = append(errs, s.preparePayable(raw, &tx)...)
	}

	if len(errs) > 0 {
		return models.Transaction{}, errors.NewErrorSummary(errs)
	}

	if _, ok := s.normalizer.Lookup(raw, normalizer.FieldDealID); !ok {
		var existing []models.Transaction
		if s.store != nil {
			existing = s.store.Merged()
		}
		tx.DealID = s.dealIDs.Generate(tx.Customer, tx.TxDate, existing)
	}

	return tx, nil
}

// Submit validates raw, fills in derived fields, assigns a record id, and
// appends it to the local partition. Invalid records are never saved.
// Validation and deal id assignment run under the store's write lock, so
// concurrent submissions in one process never share a generated deal id.
func (s *Service) Submit(ctx context.Context, raw models.RawRecord) (models.Transaction, error) {
	if s.store == nil {
		if _, err := s.Prepare(raw); err != nil {
			return models.Transaction{}, err
		}
		return models.Transaction{}, errors.ConfigurationError(errors.CodeMissingConfig, "store", nil, nil)
	}

	saved, err := s.store.Append(ctx, func() (models.RawRecord, error) {
		tx, err := s.Prepare(raw)
		if err != nil {
			return nil, err
		}
		tx.RecordID = s.NewRecordID()
		return tx.ToRawRecord(), nil
	})
	if err != nil {
		if _, ok := errors.AsErrorSummary(err); ok {
			s.logger.WithError(err).Info("Rejected new transaction")
		}
		return models.Transaction{}, err
	}

	s.logger.WithFields(logger.Fields{
		"deal_id": saved.DealID,
		"type":    saved.Type,
	}).Info("Recorded new transaction")

	return saved, nil
}

// preparePayable requires a target currency and derives a blank payable
// from the trader rate.
func (s *Service) preparePayable(raw models.RawRecord, tx *models.Transaction) []*errors.LedgerError {
	var errs []*errors.LedgerError

	if tx.TargetCurrency == "" {
		errs = append(errs, errors.ValidationError(errors.CodeMissingField, normalizer.FieldTargetCurrency, nil, nil))
	}

	if v, ok := s.normalizer.Lookup(raw, normalizer.FieldPayable); ok {
		if !tx.Payable.Valid {
			errs = append(errs, errors.ValidationError(errors.CodeInvalidAmount, normalizer.FieldPayable, v, nil))
		}
		return errs
	}

	rate, hasRate := s.normalizer.Lookup(raw, normalizer.FieldTraderRate)
	switch {
	case !hasRate:
		errs = append(errs, errors.ValidationError(errors.CodeMissingField, normalizer.FieldTraderRate, nil, nil).
			WithSuggestion("provide a trader rate or enter the payable amount manually"))
	case !tx.TraderRate.Valid:
		errs = append(errs, errors.ValidationError(errors.CodeInvalidAmount, normalizer.FieldTraderRate, rate, nil))
	}

	if len(errs) > 0 || !tx.Amount.Valid {
		return errs
	}

	tx.Payable = s.rates.ComputePayable(tx.BaseCurrency, tx.TargetCurrency, tx.Amount, tx.TraderRate)
	if !tx.Payable.Valid {
		pair := rates.NewPair(tx.BaseCurrency, tx.TargetCurrency)
		errs = append(errs, errors.ValidationError(errors.CodeUnsupportedPair, normalizer.FieldPayable, pair.String(), nil))
	}

	return errs
}
