package index

import (
	"slices"
	"strings"

	"github.com/roach88/gridpred/internal/value"
)

// Entry is a queryable record: a key plus its extracted attributes.
type Entry struct {
	Key        string
	Attributes value.Object
}

// Attribute returns the named attribute. An absent attribute is Null.
func (e Entry) Attribute(name string) value.Value {
	if v, ok := e.Attributes[name]; ok && v != nil {
		return v
	}
	return value.Null{}
}

// EntrySet is a set of entries, unique by key and ordered by key.
// The zero value is an empty set.
type EntrySet []Entry

// NewEntrySet builds a set from entries. When keys repeat, the last entry
// wins.
func NewEntrySet(entries ...Entry) EntrySet {
	if len(entries) == 0 {
		return EntrySet{}
	}
	set := slices.Clone(entries)
	slices.SortStableFunc(set, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})
	out := set[:0]
	for i, e := range set {
		if i+1 < len(set) && set[i+1].Key == e.Key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Keys returns the keys in order.
func (s EntrySet) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// Contains reports whether key is in the set.
func (s EntrySet) Contains(key string) bool {
	_, found := slices.BinarySearchFunc(s, key, func(e Entry, k string) int {
		return strings.Compare(e.Key, k)
	})
	return found
}

// Union returns the union of s and other. Entries of other win on
// duplicate keys.
func (s EntrySet) Union(other EntrySet) EntrySet {
	return NewEntrySet(append(slices.Clone(s), other...)...)
}
