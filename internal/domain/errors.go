package domain

import "fmt"

// ValidationError reports malformed or out-of-domain input: a bad date
// range, an unparseable row, or an empty feature set. It is surfaced to the
// caller, never recovered internally.
type ValidationError struct {
	Field string
	Row   int // offending row for row-level failures, -1 otherwise
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("validation: row %d: %s: %s", e.Row, e.Field, e.Msg)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
	}
	return "validation: " + e.Msg
}

// NewValidationError builds a non-row-level ValidationError.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Row: -1, Msg: msg}
}

// InsufficientDataError reports that a series is too small for the requested
// analysis. It is surfaced with the minimum size so callers know how much
// data to supply.
type InsufficientDataError struct {
	Records int
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: got %d records, need at least %d", e.Records, e.Min)
}

// ExternalServiceError reports a failed or timed-out call to an external
// service. The report generator recovers it internally by falling back to
// the template narrator; it never reaches pipeline callers.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
