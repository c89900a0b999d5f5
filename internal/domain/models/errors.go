package models

import (
	"errors"
	"fmt"
)

// The pipeline error taxonomy. Everything a stage can fail with maps onto
// one of these four; handlers translate them to transport status codes.

// DataUnavailableError signals the backing ledger could not be reached.
// Retryable with backoff by the orchestrator.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable from %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// SchemaViolationError signals an individual record that could not be
// normalized. Bad records are skipped and counted, never coerced.
type SchemaViolationError struct {
	RecordID string
	Reason   string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation on record %s: %s", e.RecordID, e.Reason)
}

// InvariantViolationError signals an impossible aggregate state. Fatal for
// the computation; never clamped or silently fixed.
type InvariantViolationError struct {
	Field  string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Field, e.Detail)
}

// ErrComputationTimeout signals a stage exceeded its budget.
var ErrComputationTimeout = errors.New("computation timeout")

// IsDataUnavailable reports whether err is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var e *DataUnavailableError
	return errors.As(err, &e)
}

// IsInvariantViolation reports whether err is an InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var e *InvariantViolationError
	return errors.As(err, &e)
}
