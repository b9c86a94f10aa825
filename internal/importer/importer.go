package importer

import (
	"context"
	"fmt"
	"io"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"
)

// progressEvery is how often a progress line is logged, in rows.
const progressEvery = 500

// Submitter validates and saves one raw record. *intake.Service implements it.
type Submitter interface {
	Prepare(raw models.RawRecord) (models.Transaction, error)
	Submit(ctx context.Context, raw models.RawRecord) (models.Transaction, error)
}

// Rejection is a row that was not imported.
type Rejection struct {
	Line     int      `json:"line"`
	Messages []string `json:"messages"`
}

// Result holds the outcome of an import.
type Result struct {
	Rows     int                  `json:"rows"`
	Imported []models.Transaction `json:"imported"`
	Rejected []Rejection          `json:"rejected"`
}

// String returns a human-readable summary of the import
func (r *Result) String() string {
	return fmt.Sprintf("Read %d rows, %d imported, %d rejected", r.Rows, len(r.Imported), len(r.Rejected))
}

// HasRejections returns true if any row was rejected
func (r *Result) HasRejections() bool {
	return len(r.Rejected) > 0
}

// Importer feeds CSV rows through intake.
type Importer struct {
	submitter Submitter
	logger    logger.Logger

	// DryRun validates every row without saving any.
	DryRun bool
}

// New creates an Importer.
func New(submitter Submitter) *Importer {
	return &Importer{
		submitter: submitter,
		logger:    logger.GetGlobalLogger().WithComponent("importer"),
	}
}

// Import reads every row from reader. Rows that fail validation are
// collected as rejections and the import continues; a storage failure
// stops it and is returned with the rows imported so far.
func (im *Importer) Import(ctx context.Context, reader *Reader) (*Result, error) {
	result := &Result{
		Imported: []models.Transaction{},
		Rejected: []Rejection{},
	}
	op := logger.NewOperationLogger("csv_import", im.logger).WithField("dry_run", im.DryRun)

	for {
		row, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.IsCategory(err, errors.CategoryInput) && row.Line > 0 {
				result.Rows++
				result.Rejected = append(result.Rejected, Rejection{Line: row.Line, Messages: messages(err)})
				continue
			}
			op.Failure(err, "CSV import stopped", false)
			return result, err
		}
		result.Rows++
		if result.Rows%progressEvery == 0 {
			op.Progress("Importing CSV rows", int64(result.Rows), 0)
		}

		tx, err := im.submit(ctx, row.Record)
		if err != nil {
			if errors.IsCategory(err, errors.CategoryValidation) {
				im.logger.WithField("line_number", row.Line).WithError(err).Debug("Rejected CSV row")
				result.Rejected = append(result.Rejected, Rejection{Line: row.Line, Messages: messages(err)})
				continue
			}
			op.Failure(err, "CSV import stopped", false)
			return result, err
		}
		result.Imported = append(result.Imported, tx)
	}

	op.WithField("rows", result.Rows).
		WithField("imported", len(result.Imported)).
		WithField("rejected", len(result.Rejected)).
		Success("CSV import finished")

	return result, nil
}

func (im *Importer) submit(ctx context.Context, raw models.RawRecord) (models.Transaction, error) {
	if im.DryRun {
		return im.submitter.Prepare(raw)
	}
	return im.submitter.Submit(ctx, raw)
}

func messages(err error) []string {
	if summary, ok := errors.AsErrorSummary(err); ok {
		return summary.Messages()
	}
	if ledgerErr, ok := errors.AsLedgerError(err); ok {
		return []string{ledgerErr.Message}
	}
	return []string{err.Error()}
}
