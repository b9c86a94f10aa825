package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestLedgerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "datasource error",
			category:   CategoryDataSource,
			code:       CodeFetchFailed,
			message:    "fetch failed",
			cause:      errors.New("connection refused"),
			expectCode: 2,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeMissingField,
			message:    "missing field",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("bad value"),
			expectCode: 4,
		},
		{
			name:       "internal error",
			category:   CategoryInternal,
			code:       CodeUnexpectedError,
			message:    "boom",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *LedgerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}
}

func TestLedgerErrorWithContext(t *testing.T) {
	err := New(CategoryDataSource, CodeStorageRead, "test error").
		WithContext("source", "ledger.local.v1").
		WithSuggestion("check store path")

	if err.Context["source"] != "ledger.local.v1" {
		t.Errorf("expected source context, got %v", err.Context["source"])
	}

	expected := "test error (suggestion: check store path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected WrapIfNeeded(nil) to return nil")
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("DataSourceError", func(t *testing.T) {
		cause := errors.New("dial tcp: timeout")
		err := DataSourceError(CodeFetchFailed, "https://example.test/data.json", cause)

		if err.Category != CategoryDataSource {
			t.Errorf("expected datasource category, got %s", err.Category)
		}
		if err.Context["source"] != "https://example.test/data.json" {
			t.Errorf("expected source context, got %v", err.Context["source"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvalidAmount, "amount", "abc", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "amount" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
		if err.Context["value"] != "abc" {
			t.Errorf("expected value context, got %v", err.Context["value"])
		}
	})

	t.Run("InputError", func(t *testing.T) {
		err := InputError(CodeUnparsableNumber, "trader_rate", "n/a", nil)

		if err.Category != CategoryInput {
			t.Errorf("expected input category, got %s", err.Category)
		}
		if err.Suggestion != "" {
			t.Errorf("input errors carry no suggestion, got %q", err.Suggestion)
		}
	})
}

func TestErrorSummary(t *testing.T) {
	errs := []*LedgerError{
		ValidationError(CodeMissingField, "customer", "", nil),
		ValidationError(CodeMissingField, "tx_date", "", nil),
		ValidationError(CodeInvalidAmount, "amount", "abc", nil),
		DataSourceError(CodeStorageWrite, "slot", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 4 {
		t.Errorf("expected total 4, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryValidation] != 3 {
		t.Errorf("expected 3 validation errors, got %d", summary.ByCategory[CategoryValidation])
	}
	if summary.ByCode[CodeMissingField] != 2 {
		t.Errorf("expected 2 missing field errors, got %d", summary.ByCode[CodeMissingField])
	}
	if !summary.HasCode(CodeInvalidAmount) {
		t.Error("expected invalid amount code")
	}
	if summary.HasCategory(CategoryConfiguration) {
		t.Error("did not expect configuration category")
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", summary.GetExitCode())
	}

	fields := summary.Fields()
	want := []string{"amount", "customer", "tx_date"}
	if fmt.Sprint(fields) != fmt.Sprint(want) {
		t.Errorf("expected fields %v, got %v", want, fields)
	}
	if len(summary.Messages()) != 4 {
		t.Errorf("expected 4 messages, got %d", len(summary.Messages()))
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got %q", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestAsLedgerErrorThroughWrapping(t *testing.T) {
	base := ValidationError(CodeMissingField, "customer", "", nil)
	wrapped := fmt.Errorf("intake: %w", base)

	got, ok := AsLedgerError(wrapped)
	if !ok || got != base {
		t.Fatalf("expected to extract the ledger error, got %v", got)
	}
	if !IsCategory(wrapped, CategoryValidation) {
		t.Error("expected IsCategory to see the validation category")
	}

	summary := NewErrorSummary([]*LedgerError{base})
	if !IsCategory(fmt.Errorf("wrap: %w", summary), CategoryValidation) {
		t.Error("expected IsCategory to look inside summaries")
	}
	if IsCategory(errors.New("plain"), CategoryValidation) {
		t.Error("plain errors have no category")
	}
}
