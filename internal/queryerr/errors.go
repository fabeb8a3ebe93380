// Package queryerr defines the error taxonomy of the predicate layer.
//
// Construction errors (InvalidArgument) surface immediately and prevent a
// predicate from being created. Evaluation errors (TypeMismatch) propagate to
// the query caller unmodified. Serialization of a transfer-disabled predicate
// is a ContractViolation.
//
// "No index available" and "no match" are NOT errors and never use this
// package.
package queryerr

import (
	"errors"
	"fmt"
)

// Code categorizes predicate-layer errors.
type Code string

const (
	// CodeInvalidArgument indicates a malformed predicate construction.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeTypeMismatch indicates that a reference value and a bound value
	// have no common comparable domain.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeContractViolation indicates that a caller broke a documented
	// contract, such as serializing a transfer-disabled predicate.
	CodeContractViolation Code = "CONTRACT_VIOLATION"
)

// Error is the structured error returned by the predicate layer.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Attribute names the attribute the failing predicate acts on, if any.
	Attribute string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("%s: %s (attribute=%s)", e.Code, e.Message, e.Attribute)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidArgument creates an INVALID_ARGUMENT error.
func InvalidArgument(attribute, format string, args ...any) *Error {
	return &Error{
		Code:      CodeInvalidArgument,
		Message:   fmt.Sprintf(format, args...),
		Attribute: attribute,
	}
}

// TypeMismatch creates a TYPE_MISMATCH error for a reference/bound pair.
func TypeMismatch(refKind, boundKind, reason string) *Error {
	msg := fmt.Sprintf("cannot compare %s with %s", refKind, boundKind)
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{
		Code:    CodeTypeMismatch,
		Message: msg,
		Details: map[string]string{
			"reference": refKind,
			"bound":     boundKind,
		},
	}
}

// ContractViolation creates a CONTRACT_VIOLATION error.
func ContractViolation(format string, args ...any) *Error {
	return &Error{
		Code:    CodeContractViolation,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithAttribute returns a copy of err annotated with the attribute name.
// Errors that are not *Error are returned unchanged.
func WithAttribute(err error, attribute string) error {
	var qe *Error
	if !errors.As(err, &qe) || qe.Attribute != "" {
		return err
	}
	cp := *qe
	cp.Attribute = attribute
	return &cp
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

// IsTypeMismatch reports whether err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool {
	return hasCode(err, CodeTypeMismatch)
}

// IsContractViolation reports whether err is a CONTRACT_VIOLATION error.
func IsContractViolation(err error) bool {
	return hasCode(err, CodeContractViolation)
}

func hasCode(err error, code Code) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}
