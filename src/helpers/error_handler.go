package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type NowcastError struct {
	Message string
	Cause   error
}

func (e *NowcastError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *NowcastError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type NetworkError struct{ NowcastError }
type SourceUnavailableError struct{ NowcastError }
type DatabaseError struct{ NowcastError }
type FatalError struct{ NowcastError }

// ValidationError reports a snapshot that failed internal consistency checks.
type ValidationError struct{ NowcastError }

// RejectionError reports one observation dropped by the quality filter.
// Reason is one of "duplicate", "out_of_bounds" or "outlier".
type RejectionError struct {
	NowcastError
	Reason string
}

// Rejection reasons.
const (
	ReasonDuplicate   = "duplicate"
	ReasonOutOfBounds = "out_of_bounds"
	ReasonOutlier     = "outlier"
)

// -----------------------------------------------------------------------------

// NewRejection builds a RejectionError for one filtered observation.
func NewRejection(reason string, format string, args ...interface{}) *RejectionError {
	return &RejectionError{
		NowcastError: NowcastError{Message: fmt.Sprintf(format, args...)},
		Reason:       reason,
	}
}

// NewSourceUnavailable reports a provider chain that produced no usable data.
func NewSourceUnavailable(source string, cause error) *SourceUnavailableError {
	return &SourceUnavailableError{NowcastError{
		Message: fmt.Sprintf("source '%s' unavailable", source),
		Cause:   cause,
	}}
}

// NewValidation reports a snapshot consistency failure.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{NowcastError{Message: fmt.Sprintf(format, args...)}}
}

// NewFatal reports an unrecoverable run failure.
func NewFatal(message string, cause error) *FatalError {
	return &FatalError{NowcastError{Message: message, Cause: cause}}
}

// NewNetwork reports a request that failed after every retry.
func NewNetwork(message string, cause error) *NetworkError {
	return &NetworkError{NowcastError{Message: message, Cause: cause}}
}

// NewDatabase reports a release log that could not be opened or migrated.
func NewDatabase(message string, cause error) *DatabaseError {
	return &DatabaseError{NowcastError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}
