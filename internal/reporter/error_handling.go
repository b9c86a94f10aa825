package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"exchange-ledger/internal/aggregator"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with fallbacks: a failed
// non-console render is retried as console output, and a failed file write
// is retried against a sibling backup file.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output-format",
			config.Format,
			err,
		).WithSuggestion("use one of: console, json, csv, markdown")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateSafely renders view, falling back where possible.
func (srg *SafeReportGenerator) GenerateSafely(view View, summary *aggregator.Summary, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"view":   view,
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(summary, writer); err != nil {
		return err
	}

	// Render into memory first so a failed format never leaves partial output.
	var buf bytes.Buffer
	err := srg.Generate(view, summary, &buf)
	if err != nil {
		srg.logger.WithError(err).Warn("Report generation failed, attempting fallback")
		if srg.config.Format == FormatConsole {
			return srg.wrapGenerationError(err)
		}
		buf.Reset()
		if err := srg.generateWithFormatFallback(view, summary, &buf, err); err != nil {
			return err
		}
	}

	if _, err := writer.Write(buf.Bytes()); err != nil {
		if srg.shouldAttemptOutputFallback(err, writer) {
			return srg.writeBackup(buf.Bytes(), writer.(*os.File), err)
		}
		return srg.wrapGenerationError(err)
	}

	return nil
}

func (srg *SafeReportGenerator) validateInputs(summary *aggregator.Summary, writer io.Writer) error {
	if summary == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "report_generation",
			fmt.Errorf("summary cannot be nil"))
	}
	if writer == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "report_generation",
			fmt.Errorf("writer cannot be nil"))
	}
	return nil
}

func (srg *SafeReportGenerator) generateWithFormatFallback(view View, summary *aggregator.Summary, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.Generate(view, summary, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	return nil
}

func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || file == os.Stdout || file == os.Stderr || file.Name() == "" {
		return false
	}
	return os.IsPermission(err) || isSpaceError(err)
}

func (srg *SafeReportGenerator) writeBackup(data []byte, file *os.File, originalErr error) error {
	originalPath := file.Name()
	backupPath := generateBackupPath(originalPath)

	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err),
		)
	}

	fmt.Fprintf(os.Stderr, "Warning: Could not write to %s, report saved to %s\n", originalPath, backupPath)
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if ledgerErr, ok := errors.AsLedgerError(err); ok {
		return ledgerErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
