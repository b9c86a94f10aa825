// Package errors defines the ledger's error taxonomy.
//
// Errors fall into a small set of categories:
//   - input: a malformed individual field; resolved locally by defaulting
//   - validation: an intake record that cannot be accepted
//   - datasource: remote fetch or local storage failures; degrade to an empty partition
//   - configuration: invalid CLI/config settings
//   - internal: everything else
//
// No category is fatal to the process. Callers that request a load or a save
// receive these errors exactly one level up and turn them into user-facing
// messages.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryInput         ErrorCategory = "input"
	CategoryValidation    ErrorCategory = "validation"
	CategoryDataSource    ErrorCategory = "datasource"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Input errors
	CodeUnparsableNumber ErrorCode = "unparsable_number"
	CodeUnparsableDate   ErrorCode = "unparsable_date"
	CodeMalformedRecord  ErrorCode = "malformed_record"

	// Validation errors
	CodeMissingField    ErrorCode = "missing_field"
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeInvalidDate     ErrorCode = "invalid_date"
	CodeUnsupportedPair ErrorCode = "unsupported_pair"

	// Data source errors
	CodeFetchFailed      ErrorCode = "fetch_failed"
	CodeBadPayload       ErrorCode = "bad_payload"
	CodeStorageRead      ErrorCode = "storage_read"
	CodeStorageWrite     ErrorCode = "storage_write"
	CodeCorruptPartition ErrorCode = "corrupt_partition"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// LedgerError is the base error type for all application errors
type LedgerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *LedgerError) GetExitCode() int {
	switch e.Category {
	case CategoryDataSource:
		return 2
	case CategoryInput, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *LedgerError) WithContext(key string, value interface{}) *LedgerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *LedgerError) WithSuggestion(suggestion string) *LedgerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LedgerError
func New(category ErrorCategory, code ErrorCode, message string) *LedgerError {
	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with LedgerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	return &LedgerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message string, err error) *LedgerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// InputError reports a field that could not be coerced and was defaulted.
func InputError(code ErrorCode, field string, value interface{}, err error) *LedgerError {
	var message string
	switch code {
	case CodeUnparsableNumber:
		message = fmt.Sprintf("field '%s' is not a number: %v", field, value)
	case CodeUnparsableDate:
		message = fmt.Sprintf("field '%s' is not a date: %v", field, value)
	case CodeMalformedRecord:
		message = fmt.Sprintf("record is not an object: %v", value)
	default:
		message = fmt.Sprintf("unusable value in field '%s': %v", field, value)
	}

	return build(CategoryInput, code, message, err).
		WithContext("field", field).
		WithContext("value", value)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "use a decimal number, thousands separators are allowed (e.g. '1,234.50')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use date format YYYY-MM-DD"
	case CodeUnsupportedPair:
		message = fmt.Sprintf("no rate policy for currency pair %v", value)
		suggestion = "enter the payable amount manually"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return build(CategoryValidation, code, message, err).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// DataSourceError creates an error for a failed remote fetch or local storage access.
func DataSourceError(code ErrorCode, source string, err error) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeFetchFailed:
		message = fmt.Sprintf("failed to load remote dataset from %s", source)
		suggestion = "check network connectivity and the dataset URL"
	case CodeBadPayload:
		message = fmt.Sprintf("remote dataset from %s is not a transaction list", source)
		suggestion = "the body must be a JSON array or an object with a 'transactions' array"
	case CodeStorageRead:
		message = fmt.Sprintf("failed to read local partition %s", source)
		suggestion = "check the store path and permissions"
	case CodeStorageWrite:
		message = fmt.Sprintf("failed to save local partition %s", source)
		suggestion = "check free space and permissions on the store path"
	case CodeCorruptPartition:
		message = fmt.Sprintf("local partition %s is not a JSON array", source)
		suggestion = "the slot will be treated as empty; use a new storage key to start fresh"
	default:
		message = fmt.Sprintf("data source error: %s", source)
		suggestion = "try again"
	}

	return build(CategoryDataSource, code, message, err).
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *LedgerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, in the config file or as LEDGER_ environment variable"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *LedgerError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	return build(CategoryInternal, code, message, err).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*LedgerError        `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*LedgerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*LedgerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	msgs := make([]string, 0, len(es.Errors))
	for _, err := range es.Errors {
		msgs = append(msgs, err.Message)
	}
	return fmt.Sprintf("%d errors occurred: %s", es.Total, strings.Join(msgs, "; "))
}

// Messages returns the user-facing message of every error, in order.
func (es *ErrorSummary) Messages() []string {
	msgs := make([]string, 0, len(es.Errors))
	for _, err := range es.Errors {
		msgs = append(msgs, err.Message)
	}
	return msgs
}

// Fields returns the distinct fields named by the summarized errors, sorted.
func (es *ErrorSummary) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range es.Errors {
		field, ok := err.Context["field"].(string)
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsLedgerError extracts a LedgerError from an error chain
func AsLedgerError(err error) (*LedgerError, bool) {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr, true
	}
	return nil, false
}

// AsErrorSummary extracts an ErrorSummary from an error chain
func AsErrorSummary(err error) (*ErrorSummary, bool) {
	var summary *ErrorSummary
	if errors.As(err, &summary) {
		return summary, true
	}
	return nil, false
}

// IsCategory reports whether err carries a LedgerError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	if summary, ok := AsErrorSummary(err); ok {
		return summary.HasCategory(category)
	}
	ledgerErr, ok := AsLedgerError(err)
	return ok && ledgerErr.Category == category
}

// WrapIfNeeded wraps an error if it's not already a LedgerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *LedgerError {
	if err == nil {
		return nil
	}

	if ledgerErr, ok := AsLedgerError(err); ok {
		return ledgerErr
	}

	return Wrap(err, category, code, message)
}
