// Package index provides the index access facade of the predicate layer and
// two in-memory index implementations.
//
// Indexes are owned by the storage layer and borrowed read-only by
// predicates for the duration of a single Filter call. A predicate must not
// retain an index handle beyond that call.
//
// QueryContext.MatchIndex is the facade: it returns an index for an
// attribute, or reports that none is usable. "No index" is an expected
// outcome that drives the scan fallback, never an error.
package index

import (
	"context"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Index is a secondary index over one attribute.
type Index interface {
	// Name identifies the index within a registry.
	Name() string

	// Attribute is the indexed attribute name.
	Attribute() string

	// Kind is the declared value kind of the attribute.
	Kind() value.Kind

	// Ordered reports whether the index supports RangeRetrieve.
	Ordered() bool

	// Lookup returns the entries whose attribute equals v.
	Lookup(ctx context.Context, v value.Value) (EntrySet, error)
}

// OrderedIndex is an index capable of bounded range retrieval without
// scanning every entry.
type OrderedIndex interface {
	Index

	// RangeRetrieve returns the entries whose attribute lies between from
	// and to, honoring the inclusivity flags. A nil or Null bound leaves
	// that side unbounded. Bounds are converted into the index's domain;
	// an inconvertible bound yields TYPE_MISMATCH.
	RangeRetrieve(ctx context.Context, from value.Value, fromInclusive bool, to value.Value, toInclusive bool) (EntrySet, error)
}

// Writer is implemented by indexes that accept entry updates.
type Writer interface {
	// Insert adds or replaces the entry with e.Key.
	Insert(ctx context.Context, e Entry) error

	// Remove deletes the entry with key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
}

// Checker is implemented by writers that can reject an entry before any
// write happens. Registry.Insert checks every index first, so an entry
// rejected by one index is written to none.
type Checker interface {
	// Check returns the error Insert would return for e, without writing.
	Check(e Entry) error
}

// CheckDomain reports a non-null value of attribute in e that lies outside
// the comparable domain of kind, with TYPE_MISMATCH.
func CheckDomain(attribute string, kind value.Kind, e Entry) error {
	v := e.Attribute(attribute)
	if value.IsNull(v) || value.Comparable(value.Zero(kind), v) {
		return nil
	}
	return queryerr.WithAttribute(
		queryerr.TypeMismatch(kind.String(), v.Kind().String(), "value outside index domain"),
		attribute)
}
