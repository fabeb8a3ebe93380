// Package predicate implements the index-aware predicates of the query layer.
//
// Predicates form a closed set of variants behind the sealed Predicate
// interface:
//
//	Equal       attr = v            NULL -> UNKNOWN
//	Greater     attr > v, attr >= v NULL -> UNKNOWN
//	Less        attr < v, attr <= v NULL -> UNKNOWN
//	Between     from <= attr <= to  NULL -> UNKNOWN
//	Range       bounded, both flags NULL -> FALSE (local-only)
//	IsNull      attr IS NULL        crisp
//	IsNotNull   attr IS NOT NULL    crisp
//	Not, And, Or                    three-valued logic
//
// EVALUATION PATHS:
//
// Every predicate answers Eval (three-valued) and Apply (the result
// boundary: only TRUE selects an entry). Variants over a single attribute
// also implement IndexAware.Filter, which asks the query context for an
// index and returns (set, true, nil) when the index answered, or
// (nil, false, nil) when no usable index exists and the caller must scan.
// An empty set with ok == true means "answered, nothing matched".
//
// Both paths agree: for every entry e in a dataset, e is in the Filter
// result iff Apply(e) is true.
//
// ERRORS:
//
// Constructors fail fast with INVALID_ARGUMENT. Comparison failures are
// TYPE_MISMATCH and propagate to the caller unmodified; a predicate never
// turns an unevaluable comparison into a non-match.
//
// TRANSFER:
//
// Each variant has a stable class ID and a WriteData/ReadData pair.
// Range is local-only: it is built on each member by Optimize and its
// Transferable method reports false, so the codec refuses it.
package predicate
