package index

import "fmt"

// MatchHint expresses a preference for the kind of index MatchIndex should
// return. A hint never guarantees that an index is returned.
type MatchHint uint8

const (
	// HintNone accepts any index, preferring ordered ones.
	HintNone MatchHint = iota

	// HintPreferOrdered requests an index that supports range retrieval.
	// Unordered indexes are never returned for this hint.
	HintPreferOrdered

	// HintPreferUnordered prefers a hash index for point lookups, falling
	// back to an ordered index.
	HintPreferUnordered
)

// String implements fmt.Stringer.
func (h MatchHint) String() string {
	switch h {
	case HintNone:
		return "NONE"
	case HintPreferOrdered:
		return "PREFER_ORDERED"
	case HintPreferUnordered:
		return "PREFER_UNORDERED"
	default:
		return fmt.Sprintf("MatchHint(%d)", uint8(h))
	}
}
