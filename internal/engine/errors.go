package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/gridpred/internal/queryerr"
)

// ExecError represents an error detected while executing a query.
//
// Execution errors include:
//   - Scan limit: the scan path would visit more entries than allowed
//   - Evaluation: a predicate failed on the index or scan path
//   - Canceled: the context ended before the run completed
//
// Evaluation errors wrap the predicate-layer error, so queryerr.IsTypeMismatch
// and friends still match through an ExecError.
type ExecError struct {
	// Code identifies the error category.
	Code ExecErrorCode

	// Message is a human-readable description.
	Message string

	// QueryID identifies the affected run.
	QueryID string

	// Partition names the partition the run was executing against.
	Partition string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ExecErrorCode categorizes execution errors.
type ExecErrorCode string

const (
	// ErrCodeScanLimit indicates the scan path exceeded the configured limit.
	ErrCodeScanLimit ExecErrorCode = "SCAN_LIMIT_EXCEEDED"

	// ErrCodeEvaluation indicates a predicate failed to evaluate.
	ErrCodeEvaluation ExecErrorCode = "EVALUATION_FAILED"

	// ErrCodeCanceled indicates the run's context was canceled.
	ErrCodeCanceled ExecErrorCode = "CANCELED"

	// ErrCodeInvalidQuery indicates a query without a predicate or partition.
	ErrCodeInvalidQuery ExecErrorCode = "INVALID_QUERY"
)

// Error implements the error interface.
func (e *ExecError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.QueryID != "" && e.Partition != "" {
		return fmt.Sprintf("%s: %s (query=%s, partition=%s)", e.Code, msg, e.QueryID, e.Partition)
	}
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, msg, e.QueryID)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsScanLimitError returns true if the error is a scan limit error.
// Uses errors.As to handle wrapped errors.
func IsScanLimitError(err error) bool {
	return hasCode(err, ErrCodeScanLimit)
}

// IsEvaluationError returns true if the error is a predicate evaluation
// failure.
func IsEvaluationError(err error) bool {
	return hasCode(err, ErrCodeEvaluation)
}

// IsCanceledError returns true if the run was canceled.
func IsCanceledError(err error) bool {
	return hasCode(err, ErrCodeCanceled)
}

func hasCode(err error, code ExecErrorCode) bool {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// NewScanLimitError creates an ExecError for a scan over too many entries.
func NewScanLimitError(queryID, partition string, entries, limit int) *ExecError {
	return &ExecError{
		Code:      ErrCodeScanLimit,
		Message:   fmt.Sprintf("scan would visit %d entries (limit %d)", entries, limit),
		QueryID:   queryID,
		Partition: partition,
		Details: map[string]string{
			"entries": fmt.Sprintf("%d", entries),
			"limit":   fmt.Sprintf("%d", limit),
		},
	}
}

// NewEvaluationError wraps a predicate failure.
func NewEvaluationError(queryID, partition string, path Path, err error) *ExecError {
	return &ExecError{
		Code:      ErrCodeEvaluation,
		Message:   fmt.Sprintf("%s path failed", path),
		QueryID:   queryID,
		Partition: partition,
		Details:   map[string]string{"path": string(path)},
		Err:       err,
	}
}

// NewCanceledError wraps a context error.
func NewCanceledError(queryID, partition string, err error) *ExecError {
	return &ExecError{
		Code:      ErrCodeCanceled,
		Message:   "run canceled",
		QueryID:   queryID,
		Partition: partition,
		Err:       err,
	}
}

// ErrorCode returns the most specific code for err: the predicate-layer code
// for evaluation failures, the execution code otherwise, and "UNKNOWN" for
// errors that did not come from Run.
func ErrorCode(err error) string {
	var ee *ExecError
	if errors.As(err, &ee) {
		if ee.Code == ErrCodeEvaluation {
			var qe *queryerr.Error
			if errors.As(err, &qe) {
				return string(qe.Code)
			}
		}
		return string(ee.Code)
	}
	return "UNKNOWN"
}
