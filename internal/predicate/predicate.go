package predicate

import (
	"context"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/ternary"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// Class IDs. These are part of the wire format and must never be reused.
const (
	ClassEqual     wire.ClassID = 1
	ClassGreater   wire.ClassID = 2
	ClassLess      wire.ClassID = 3
	ClassBetween   wire.ClassID = 4
	ClassIsNull    wire.ClassID = 5
	ClassIsNotNull wire.ClassID = 6
	ClassNot       wire.ClassID = 7
	ClassAnd       wire.ClassID = 8
	ClassOr        wire.ClassID = 9
	ClassRange     wire.ClassID = 10
)

// Predicate is a condition over an entry.
//
// This is a sealed interface: only types in this package implement it, so
// a type switch over the variants is exhaustive.
type Predicate interface {
	wire.DataSerializable

	// Eval returns the three-valued outcome for e.
	Eval(e index.Entry) (ternary.Value, error)

	// Apply reports whether e is selected: Eval is TRUE.
	Apply(e index.Entry) (bool, error)

	// String renders the predicate in SQL-like syntax.
	String() string

	predicateNode() // Marker method - seals interface to this package
}

// IndexAware is implemented by predicates that can be answered from an
// index.
type IndexAware interface {
	Predicate

	// Filter returns the matching entries from an index. ok is false when
	// no usable index exists; the caller then scans with Apply.
	Filter(ctx context.Context, qc *index.QueryContext) (set index.EntrySet, ok bool, err error)
}

// apply collapses Eval at the result boundary: FALSE and UNKNOWN both
// exclude.
func apply(p Predicate, e index.Entry) (bool, error) {
	t, err := p.Eval(e)
	if err != nil {
		return false, err
	}
	return t.IsTrue(), nil
}

// compare orders a present attribute value against a bound. Errors carry
// the attribute name.
func compare(attribute string, ref, bound value.Value) (int, error) {
	l, r, err := value.Convert(ref, bound)
	if err != nil {
		return 0, queryerr.WithAttribute(err, attribute)
	}
	c, err := value.Compare(l, r)
	if err != nil {
		return 0, queryerr.WithAttribute(err, attribute)
	}
	return c, nil
}

// populated guards the exactly-once ReadData contract: constructors mark
// an instance populated, and ReadData may only fill an empty one. ReadData
// sets the flag only after a successful decode, so a failed read leaves the
// instance empty.
type populated bool

func (p populated) check(id wire.ClassID) error {
	if p {
		return queryerr.ContractViolation("%s: ReadData into an already populated instance", id)
	}
	return nil
}

func requireAttribute(attribute string) error {
	if attribute == "" {
		return queryerr.InvalidArgument("", "attribute name is required")
	}
	return nil
}

func requireBound(attribute, which string, v value.Value) error {
	if value.IsNull(v) {
		return queryerr.InvalidArgument(attribute, "%s bound must not be null", which)
	}
	return nil
}

// readPredicate reads a nested predicate written by WriteObject.
func readPredicate(in *wire.Input) (Predicate, error) {
	obj, err := in.ReadObject()
	if err != nil {
		return nil, err
	}
	p, ok := obj.(Predicate)
	if !ok {
		return nil, queryerr.InvalidArgument("", "expected a predicate, got %T", obj)
	}
	return p, nil
}
