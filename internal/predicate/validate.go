package predicate

import "fmt"

// TransferResult reports whether a predicate tree may be sent to another
// member.
type TransferResult struct {
	// Transferable is true when every node of the tree is transferable.
	Transferable bool

	// Warnings lists the local-only nodes. Empty when Transferable is true.
	Warnings []string
}

// CheckTransferable walks p and reports every node that must stay on the
// member that created it. Callers use it before handing a predicate to the
// transport; the codec enforces the same rule with CONTRACT_VIOLATION.
//
// CheckTransferable is a pure function with no side effects.
func CheckTransferable(p Predicate) TransferResult {
	v := &transferChecker{warnings: []string{}}
	v.check(p)
	return TransferResult{
		Transferable: len(v.warnings) == 0,
		Warnings:     v.warnings,
	}
}

// transferChecker accumulates warnings during traversal.
type transferChecker struct {
	warnings []string
}

func (v *transferChecker) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *transferChecker) check(p Predicate) {
	if p == nil {
		v.addWarning("nil predicate cannot be transferred")
		return
	}

	switch n := p.(type) {
	case *Range:
		v.addWarning("range %s on '%s' is local-only; send the Greater/Less pair instead", n, n.attribute)
	case *Not:
		v.check(n.operand)
	case *And:
		for _, op := range n.operands {
			v.check(op)
		}
	case *Or:
		for _, op := range n.operands {
			v.check(op)
		}
	case *Equal, *Greater, *Less, *Between, *IsNull, *IsNotNull:
		// Leaf variants are transferable.
	default:
		v.addWarning("unknown predicate type: %T - transferability cannot be verified", p)
	}
}
