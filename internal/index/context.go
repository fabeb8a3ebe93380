package index

import "github.com/google/uuid"

// QueryContext carries the per-query view of the available indexes.
// It is created by the planner for a single query execution.
type QueryContext struct {
	// ID correlates log lines and spans of one query.
	ID string

	// IndexesDisabled forbids index use, e.g. for consistency-sensitive
	// reads. MatchIndex then always reports no index.
	IndexesDisabled bool

	registry *Registry
}

// QueryOption configures a QueryContext.
type QueryOption func(*QueryContext)

// WithIndexesDisabled forbids index use for the query.
func WithIndexesDisabled() QueryOption {
	return func(qc *QueryContext) { qc.IndexesDisabled = true }
}

// WithID sets a fixed query ID, for deterministic tests.
func WithID(id string) QueryOption {
	return func(qc *QueryContext) { qc.ID = id }
}

// NewQueryContext creates a query context over registry. A nil registry
// behaves as one with no indexes.
func NewQueryContext(registry *Registry, opts ...QueryOption) *QueryContext {
	qc := &QueryContext{registry: registry}
	for _, opt := range opts {
		opt(qc)
	}
	if qc.ID == "" {
		qc.ID = uuid.Must(uuid.NewV7()).String()
	}
	return qc
}

// MatchIndex returns an index for attribute honoring hint, or false when
// none is usable: nothing is registered for the attribute, the query
// forbids index use, or HintPreferOrdered is requested and only unordered
// indexes exist.
func (qc *QueryContext) MatchIndex(attribute string, hint MatchHint) (Index, bool) {
	if qc == nil || qc.IndexesDisabled || qc.registry == nil {
		return nil, false
	}
	candidates := qc.registry.Indexes(attribute)
	if len(candidates) == 0 {
		return nil, false
	}

	var ordered, unordered Index
	for _, idx := range candidates {
		if idx.Ordered() {
			if _, ok := idx.(OrderedIndex); ok && ordered == nil {
				ordered = idx
			}
		} else if unordered == nil {
			unordered = idx
		}
	}

	switch hint {
	case HintPreferOrdered:
		if ordered != nil {
			return ordered, true
		}
		return nil, false
	case HintPreferUnordered:
		if unordered != nil {
			return unordered, true
		}
		if ordered != nil {
			return ordered, true
		}
		return nil, false
	default:
		if ordered != nil {
			return ordered, true
		}
		return unordered, unordered != nil
	}
}

// MatchOrderedIndex is MatchIndex with HintPreferOrdered, returning the
// range-capable view of the index.
func (qc *QueryContext) MatchOrderedIndex(attribute string) (OrderedIndex, bool) {
	idx, ok := qc.MatchIndex(attribute, HintPreferOrdered)
	if !ok {
		return nil, false
	}
	ordered, ok := idx.(OrderedIndex)
	return ordered, ok
}
