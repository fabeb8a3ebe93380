package queryerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := InvalidArgument("age", "range must be bounded")
	assert.Equal(t, "INVALID_ARGUMENT: range must be bounded (attribute=age)", err.Error())

	err = ContractViolation("predicate %s is local-only", "Range")
	assert.Equal(t, "CONTRACT_VIOLATION: predicate Range is local-only", err.Error())
}

func TestTypeMismatchDetails(t *testing.T) {
	err := TypeMismatch("INT", "BOOL", "")
	assert.Equal(t, "TYPE_MISMATCH: cannot compare INT with BOOL", err.Error())
	assert.Equal(t, "INT", err.Details["reference"])
	assert.Equal(t, "BOOL", err.Details["bound"])

	err = TypeMismatch("INT", "STRING", `"abc" is not a number`)
	assert.Contains(t, err.Error(), `"abc" is not a number`)
}

func TestIsHelpersMatchWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("evaluate entry k1: %w", TypeMismatch("INT", "BOOL", ""))

	assert.True(t, IsTypeMismatch(wrapped))
	assert.False(t, IsInvalidArgument(wrapped))
	assert.False(t, IsContractViolation(wrapped))

	assert.False(t, IsTypeMismatch(errors.New("plain")))
	assert.False(t, IsTypeMismatch(nil))
}

func TestWithAttribute(t *testing.T) {
	base := TypeMismatch("INT", "BOOL", "")
	annotated := WithAttribute(fmt.Errorf("ctx: %w", base), "age")

	var qe *Error
	require.True(t, errors.As(annotated, &qe))
	assert.Equal(t, "age", qe.Attribute)
	assert.Empty(t, base.Attribute, "original must not be mutated")

	// Already-attributed errors keep their attribute.
	kept := WithAttribute(InvalidArgument("name", "x"), "age")
	require.True(t, errors.As(kept, &qe))
	assert.Equal(t, "name", qe.Attribute)

	plain := errors.New("plain")
	assert.Same(t, plain, WithAttribute(plain, "age"))
}
