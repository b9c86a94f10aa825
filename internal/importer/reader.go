// Package importer bulk-loads transactions from CSV files into the local
// partition.
//
// The header row names the fields. Any header the normalizer knows,
// canonical or alias, is accepted, so a file with columns
// "date,customer,type,currency,amt" imports the same as one using the
// canonical names. Every row goes through the same intake validation as a
// single new transaction; rejected rows are reported with their line number
// and never saved.
//
// Example usage:
//
//	reader, err := importer.NewReader(file, nil)
//	result, err := importer.New(intakeService).Import(ctx, reader)
package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"exchange-ledger/internal/models"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"
)

// encodingCheckLines is how many lines are checked for valid UTF-8.
const encodingCheckLines = 100

// ReaderConfig holds configuration for CSV reading
type ReaderConfig struct {
	Delimiter        rune
	Comment          rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultReaderConfig returns a configuration with sensible defaults
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// Row is one data row keyed by header, with its 1-based line number.
type Row struct {
	Line   int
	Record models.RawRecord
}

// Reader turns CSV rows into raw records.
type Reader struct {
	config  *ReaderConfig
	csv     *csv.Reader
	headers []string
	line    int
	logger  logger.Logger
}

// NewReader creates a Reader over r. The whole input is buffered when
// encoding validation is enabled.
func NewReader(r io.Reader, config *ReaderConfig) (*Reader, error) {
	if config == nil {
		config = DefaultReaderConfig()
	}

	source := r
	if config.ValidateEncoding {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.DataSourceError(errors.CodeStorageRead, "csv", err)
		}
		if err := validateEncoding(data); err != nil {
			return nil, err
		}
		source = bytes.NewReader(data)
	}

	reader := csv.NewReader(source)
	reader.Comma = config.Delimiter
	reader.Comment = config.Comment
	reader.TrimLeadingSpace = config.TrimLeadingSpace
	reader.FieldsPerRecord = -1 // Variable number of fields

	return &Reader{
		config: config,
		csv:    reader,
		logger: logger.GetGlobalLogger().WithComponent("importer"),
	}, nil
}

// validateEncoding checks that the first lines are valid UTF-8 text
func validateEncoding(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for line := 1; scanner.Scan() && line <= encodingCheckLines; line++ {
		if !utf8.Valid(scanner.Bytes()) {
			return errors.InputError(errors.CodeMalformedRecord, "encoding", fmt.Sprintf("line %d", line), nil).
				WithSuggestion("save the file in UTF-8 encoding and try again")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.DataSourceError(errors.CodeStorageRead, "csv", err)
	}
	return nil
}

// Headers returns the cleaned header row once it has been read.
func (r *Reader) Headers() []string {
	return append([]string(nil), r.headers...)
}

// ReadHeaders reads the header row.
func (r *Reader) ReadHeaders() error {
	headers, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ValidationError(errors.CodeMissingField, "header", "empty", nil).
				WithSuggestion("the file needs a header row naming the transaction fields")
		}
		return errors.InputError(errors.CodeMalformedRecord, "header", 1, err)
	}
	r.line, _ = r.csv.FieldPos(0)

	r.headers = make([]string, len(headers))
	for i, h := range headers {
		r.headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	r.logger.WithField("headers", r.headers).Debug("Read CSV headers")
	return nil
}

// Next returns the next non-empty row, or io.EOF.
func (r *Reader) Next(ctx context.Context) (Row, error) {
	if r.headers == nil {
		if err := r.ReadHeaders(); err != nil {
			return Row{}, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return Row{}, err
		}

		fields, err := r.csv.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			r.line++
			r.logger.WithError(err).WithField("line_number", r.line).Warn("Failed to read CSV record")
			return Row{Line: r.line}, errors.InputError(errors.CodeMalformedRecord, "line", r.line, err)
		}

		r.line, _ = r.csv.FieldPos(0)

		if r.config.SkipEmptyRows && isEmptyRecord(fields) {
			continue
		}

		return Row{Line: r.line, Record: r.toRecord(fields)}, nil
	}
}

// toRecord keys the fields by header. Blank cells are left out so the
// record reads as if the field were absent.
func (r *Reader) toRecord(fields []string) models.RawRecord {
	record := make(models.RawRecord, len(r.headers))
	for i, header := range r.headers {
		if header == "" || i >= len(fields) {
			continue
		}
		value := strings.TrimSpace(fields[i])
		if value == "" {
			continue
		}
		record[header] = value
	}
	return record
}

// isEmptyRecord checks if all fields in a record are empty or whitespace
func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
