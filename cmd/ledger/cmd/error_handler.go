package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	out     io.Writer
	verbose bool
}

// NewCLIErrorHandler creates a CLI error handler writing to out.
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		out:     out,
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints err and returns the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	// Several validation problems are reported together
	if summary, ok := errors.AsErrorSummary(err); ok && summary.Total > 0 {
		return h.handleErrorSummary(summary)
	}

	if ledgerErr, ok := errors.AsLedgerError(err); ok {
		return h.handleLedgerError(ledgerErr)
	}

	return h.handleGenericError(err)
}

// handleLedgerError handles LedgerError with detailed context
func (h *CLIErrorHandler) handleLedgerError(err *errors.LedgerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(h.out, "\nContext:\n")
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err.Context[key] == nil {
				continue
			}
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleErrorSummary lists every error of a summary, then the help for each
// category involved.
func (h *CLIErrorHandler) handleErrorSummary(summary *errors.ErrorSummary) int {
	if summary.Total == 1 {
		return h.handleLedgerError(summary.Errors[0])
	}

	fmt.Fprintln(h.out, FormatErrorList(summary.Messages()))

	var suggestions []string
	seen := make(map[string]bool)
	for _, err := range summary.Errors {
		if err.Suggestion != "" && !seen[err.Suggestion] {
			seen[err.Suggestion] = true
			suggestions = append(suggestions, err.Suggestion)
		}
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(h.out, "\nSuggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(h.out, "  • %s\n", s)
		}
	}

	if fields := summary.Fields(); len(fields) > 0 {
		fmt.Fprintf(h.out, "\nFields to fix: %s\n", strings.Join(fields, ", "))
	}

	for _, category := range summaryCategories(summary) {
		fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(category))
	}

	return summary.GetExitCode()
}

// handleGenericError handles errors outside the ledger taxonomy
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check permissions on the store path and output file\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'ledger --help' for usage.\n")

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryInput:
		return `Input error help:
• Amounts must be decimal numbers; thousands separators are allowed
• Dates use YYYY-MM-DD
• Unusable values are shown as blank and count as zero in totals`

	case errors.CategoryValidation:
		return `Validation error help:
• date, customer, type, base and amount are required
• Conversions also need a target currency and either a rate or a payable
• Run 'ledger rate' to list the currency pairs with a rate policy`

	case errors.CategoryDataSource:
		return `Data source error help:
• Check the --data-url value and your network connection
• Use --offline-cache-ttl to keep serving the last good dataset when offline
• Check that the --store-path is writable
• A corrupt local partition can be abandoned with a new --storage-key`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Settings can also come from LEDGER_* environment variables or a .env file
• Use 'ledger <command> --help' to see all available options`

	default:
		return `For more help:
• Use 'ledger --help' for general help
• Use 'ledger <command> --help' for command-specific help
• Run with --verbose for detailed logs`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}

func summaryCategories(summary *errors.ErrorSummary) []errors.ErrorCategory {
	categories := make([]errors.ErrorCategory, 0, len(summary.ByCategory))
	for category := range summary.ByCategory {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}

// FormatErrorList formats several error messages as a numbered list
func FormatErrorList(messages []string) string {
	if len(messages) == 0 {
		return ""
	}

	if len(messages) == 1 {
		return fmt.Sprintf("Error: %s", messages[0])
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Found %d errors:", len(messages)))

	for i, msg := range messages {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, msg))
		// Limit the number of errors shown
		if i >= 9 && len(messages) > 10 {
			lines = append(lines, fmt.Sprintf("  ... and %d more errors", len(messages)-10))
			break
		}
	}

	return strings.Join(lines, "\n")
}
