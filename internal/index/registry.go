package index

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Registry holds the indexes of one partition, grouped by attribute.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []Index
	byAttr map[string][]Index
	names  map[string]Index
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAttr: make(map[string][]Index),
		names:  make(map[string]Index),
	}
}

// Add registers idx. Index names must be unique.
func (r *Registry) Add(idx Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[idx.Name()]; exists {
		return fmt.Errorf("index %q already registered", idx.Name())
	}
	r.names[idx.Name()] = idx
	r.order = append(r.order, idx)
	r.byAttr[idx.Attribute()] = append(r.byAttr[idx.Attribute()], idx)
	return nil
}

// Indexes returns the indexes registered for attribute, in registration
// order.
func (r *Registry) Indexes(attribute string) []Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Index(nil), r.byAttr[attribute]...)
}

// All returns every registered index, in registration order.
func (r *Registry) All() []Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Insert forwards e to every index that accepts writes.
//
// Every Checker is consulted before the first write, so an entry outside
// one index's domain reaches none of them. When a write still fails, e is
// removed again from the indexes already written and the returned error
// carries any rollback failure.
func (r *Registry) Insert(ctx context.Context, e Entry) error {
	var writers []Index
	for _, idx := range r.All() {
		if _, ok := idx.(Writer); !ok {
			continue
		}
		if c, ok := idx.(Checker); ok {
			if err := c.Check(e); err != nil {
				return fmt.Errorf("index %s: insert %s: %w", idx.Name(), e.Key, err)
			}
		}
		writers = append(writers, idx)
	}

	for i, idx := range writers {
		if err := idx.(Writer).Insert(ctx, e); err != nil {
			result := multierror.Append(nil, fmt.Errorf("index %s: insert %s: %w", idx.Name(), e.Key, err))
			for _, done := range writers[:i] {
				if rerr := done.(Writer).Remove(ctx, e.Key); rerr != nil {
					result = multierror.Append(result, fmt.Errorf("index %s: rollback %s: %w", done.Name(), e.Key, rerr))
				}
			}
			return result.ErrorOrNil()
		}
	}
	return nil
}

// Remove forwards the removal of key to every index that accepts writes.
func (r *Registry) Remove(ctx context.Context, key string) error {
	for _, idx := range r.All() {
		w, ok := idx.(Writer)
		if !ok {
			continue
		}
		if err := w.Remove(ctx, key); err != nil {
			return fmt.Errorf("index %s: remove %s: %w", idx.Name(), key, err)
		}
	}
	return nil
}

// Close closes every index that holds resources and reports all failures.
func (r *Registry) Close() error {
	var result *multierror.Error
	for _, idx := range r.All() {
		c, ok := idx.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close index %s: %w", idx.Name(), err))
		}
	}
	return result.ErrorOrNil()
}
