// Package ternary implements SQL three-valued logic.
//
// Unknown models the outcome of a comparison whose operand is NULL. It
// propagates through And, Or and Not and is only collapsed to "exclude the
// row" at the result boundary (IsTrue).
package ternary

import "fmt"

// Value is a three-valued truth value.
// The zero value is Unknown.
type Value uint8

const (
	Unknown Value = iota
	False
	True
)

// Of converts a crisp boolean.
func Of(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsNotNull is the crisp "IS NOT NULL" test: True for a present value,
// False for an absent one. It never returns Unknown.
func IsNotNull(present bool) Value {
	return Of(present)
}

// IsNull is the crisp "IS NULL" test.
func IsNull(present bool) Value {
	return Of(!present)
}

// And returns the three-valued conjunction.
// False dominates, then Unknown.
func And(a, b Value) Value {
	if a == False || b == False {
		return False
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return True
}

// Or returns the three-valued disjunction.
// True dominates, then Unknown.
func Or(a, b Value) Value {
	if a == True || b == True {
		return True
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return False
}

// Not returns the three-valued negation. Not(Unknown) is Unknown.
func Not(a Value) Value {
	switch a {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// IsTrue collapses v at the result boundary: only True selects a row.
func (v Value) IsTrue() bool {
	return v == True
}

// IsUnknown reports whether v is Unknown.
func (v Value) IsUnknown() bool {
	return v == Unknown
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Value(%d)", uint8(v))
	}
}
