package index

import (
	"context"
	"sync"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Hash is an in-memory unordered index. It answers point lookups only.
//
// Entries are bucketed by value.Fingerprint, so values that compare equal
// (Int 1 and Float 1.0, an Enum and the String of its name) share a bucket.
type Hash struct {
	name      string
	attribute string
	kind      value.Kind

	mu      sync.RWMutex
	buckets map[string]map[string]Entry // fingerprint -> key -> entry
	byKey   map[string]string           // key -> fingerprint
}

// NewHash creates an empty unordered index over attribute.
func NewHash(name, attribute string, kind value.Kind) *Hash {
	return &Hash{
		name:      name,
		attribute: attribute,
		kind:      kind,
		buckets:   make(map[string]map[string]Entry),
		byKey:     make(map[string]string),
	}
}

func (h *Hash) Name() string { return h.name }
func (h *Hash) Attribute() string { return h.attribute }
func (h *Hash) Kind() value.Kind { return h.kind }
func (h *Hash) Ordered() bool { return false }

// Check implements Checker.
func (h *Hash) Check(e Entry) error { return CheckDomain(h.attribute, h.kind, e) }

// Insert adds or replaces e.
func (h *Hash) Insert(_ context.Context, e Entry) error {
	v := e.Attribute(h.attribute)
	var fp string
	if !value.IsNull(v) {
		if err := h.Check(e); err != nil {
			return err
		}
		var err error
		if fp, err = value.Fingerprint(v); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(e.Key)
	if fp == "" {
		return nil
	}
	bucket, ok := h.buckets[fp]
	if !ok {
		bucket = make(map[string]Entry)
		h.buckets[fp] = bucket
	}
	bucket[e.Key] = e
	h.byKey[e.Key] = fp
	return nil
}

// Remove deletes the entry with key.
func (h *Hash) Remove(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(key)
	return nil
}

func (h *Hash) removeLocked(key string) {
	fp, ok := h.byKey[key]
	if !ok {
		return
	}
	delete(h.byKey, key)
	bucket := h.buckets[fp]
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(h.buckets, fp)
	}
}

// Lookup returns the entries whose value equals v. The value is converted
// into the index's domain first.
func (h *Hash) Lookup(_ context.Context, v value.Value) (EntrySet, error) {
	if value.IsNull(v) {
		return EntrySet{}, nil
	}
	target, err := value.ConvertBound(h.kind, v)
	if err != nil {
		return nil, queryerr.WithAttribute(err, h.attribute)
	}
	fp, err := value.Fingerprint(target)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	bucket := h.buckets[fp]
	entries := make([]Entry, 0, len(bucket))
	for _, e := range bucket {
		entries = append(entries, e)
	}
	return NewEntrySet(entries...), nil
}

// Len returns the number of indexed entries.
func (h *Hash) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byKey)
}
