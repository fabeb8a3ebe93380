package index

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Sorted is an in-memory ordered index.
//
// Entries are kept in an immutable snapshot sorted by (attribute value, key).
// Writers build a new snapshot under a mutex and publish it atomically, so
// readers never block and always observe a consistent view.
//
// NULL attribute values are not indexed.
type Sorted struct {
	name      string
	attribute string
	kind      value.Kind

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[sortedSnapshot]
}

type sortedItem struct {
	v value.Value
	e Entry
}

type sortedSnapshot struct {
	items []sortedItem
	keys  map[string]value.Value // key -> indexed value
}

// NewSorted creates an empty ordered index over attribute, whose values are
// of the given kind (or another kind of the same comparable domain).
func NewSorted(name, attribute string, kind value.Kind) *Sorted {
	s := &Sorted{name: name, attribute: attribute, kind: kind}
	s.snap.Store(&sortedSnapshot{keys: map[string]value.Value{}})
	return s
}

func (s *Sorted) Name() string { return s.name }
func (s *Sorted) Attribute() string { return s.attribute }
func (s *Sorted) Kind() value.Kind { return s.kind }
func (s *Sorted) Ordered() bool { return true }
func (s *Sorted) Len() int { return len(s.snap.Load().items) }

// Check implements Checker.
func (s *Sorted) Check(e Entry) error { return CheckDomain(s.attribute, s.kind, e) }

// Insert adds or replaces e. A non-null attribute value outside the index's
// comparable domain is rejected with TYPE_MISMATCH.
func (s *Sorted) Insert(_ context.Context, e Entry) error {
	if err := s.Check(e); err != nil {
		return err
	}
	v := e.Attribute(s.attribute)
	if !value.IsNull(v) {
		v = value.Canonical(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()
	next := old.without(e.Key)
	if !value.IsNull(v) {
		item := sortedItem{v: v, e: e}
		pos := sort.Search(len(next.items), func(i int) bool {
			return compareItems(next.items[i], item) >= 0
		})
		next.items = slices.Insert(next.items, pos, item)
		next.keys[e.Key] = v
	}
	s.snap.Store(next)
	return nil
}

// Remove deletes the entry with key.
func (s *Sorted) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()
	if _, ok := old.keys[key]; !ok {
		return nil
	}
	s.snap.Store(old.without(key))
	return nil
}

// without returns a copy of the snapshot with key removed.
func (snap *sortedSnapshot) without(key string) *sortedSnapshot {
	next := &sortedSnapshot{
		items: make([]sortedItem, 0, len(snap.items)+1),
		keys:  make(map[string]value.Value, len(snap.keys)+1),
	}
	for _, it := range snap.items {
		if it.e.Key != key {
			next.items = append(next.items, it)
		}
	}
	for k, v := range snap.keys {
		if k != key {
			next.keys[k] = v
		}
	}
	return next
}

func compareItems(a, b sortedItem) int {
	if c := value.Order(a.v, b.v); c != 0 {
		return c
	}
	return strings.Compare(a.e.Key, b.e.Key)
}

// Lookup returns the entries whose value equals v.
func (s *Sorted) Lookup(ctx context.Context, v value.Value) (EntrySet, error) {
	if value.IsNull(v) {
		return EntrySet{}, nil
	}
	return s.RangeRetrieve(ctx, v, true, v, true)
}

// RangeRetrieve implements OrderedIndex with two binary searches over the
// current snapshot.
func (s *Sorted) RangeRetrieve(_ context.Context, from value.Value, fromInclusive bool, to value.Value, toInclusive bool) (EntrySet, error) {
	items := s.snap.Load().items

	lo, hi := 0, len(items)
	if !value.IsNull(from) {
		f, err := value.ConvertBound(s.kind, from)
		if err != nil {
			return nil, queryerr.WithAttribute(err, s.attribute)
		}
		lo = sort.Search(len(items), func(i int) bool {
			c := value.Order(items[i].v, f)
			return c > 0 || (fromInclusive && c == 0)
		})
	}
	if !value.IsNull(to) {
		t, err := value.ConvertBound(s.kind, to)
		if err != nil {
			return nil, queryerr.WithAttribute(err, s.attribute)
		}
		hi = sort.Search(len(items), func(i int) bool {
			c := value.Order(items[i].v, t)
			return c > 0 || (!toInclusive && c == 0)
		})
	}
	if lo >= hi {
		return EntrySet{}, nil
	}

	entries := make([]Entry, 0, hi-lo)
	for _, it := range items[lo:hi] {
		entries = append(entries, it.e)
	}
	return NewEntrySet(entries...), nil
}
