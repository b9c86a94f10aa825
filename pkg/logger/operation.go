package logger

import (
	"fmt"
	"time"
)

// OperationLogger logs the steps of one named operation with its elapsed time.
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
}

// NewOperationLogger starts an operation. A nil logger uses the global one.
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger,
		operation: operation,
		fields:    make(Fields),
		startTime: time.Now(),
	}

	ol.logger.WithField("operation", operation).Debug("Starting operation")
	return ol
}

// WithField adds a field to every line the operation logs.
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// Progress logs how many items have been processed so far
func (ol *OperationLogger) Progress(message string, processed, total int64) {
	fields := ol.entryFields()
	fields["processed"] = processed
	if total > 0 {
		fields["total"] = total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(processed)/float64(total)*100)
	}
	ol.logger.WithFields(fields).Debug(message)
}

// Success completes the operation.
func (ol *OperationLogger) Success(message string) {
	fields := ol.entryFields()
	fields["duration"] = time.Since(ol.startTime).String()
	fields["status"] = "success"
	ol.logger.WithFields(fields).Info(message)
}

// Failure completes the operation with an error. Degraded failures are
// logged as warnings so they do not read as fatal.
func (ol *OperationLogger) Failure(err error, message string, degraded bool) {
	fields := ol.entryFields()
	fields["duration"] = time.Since(ol.startTime).String()
	fields["status"] = "error"

	entry := ol.logger.WithError(err).WithFields(fields)
	if degraded {
		entry.Warn(message)
		return
	}
	entry.Error(message)
}

func (ol *OperationLogger) entryFields() Fields {
	fields := Fields{"operation": ol.operation}
	for k, v := range ol.fields {
		fields[k] = v
	}
	return fields
}

// TimedOperation runs fn and logs its outcome and duration.
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	err := fn()
	if err != nil {
		ol.Failure(err, "Operation failed", false)
	} else {
		ol.Success("Operation completed")
	}
	return err
}
