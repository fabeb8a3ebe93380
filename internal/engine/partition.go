package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/gridpred/internal/index"
)

// Partition is one shard of the grid: the entries owned by a member and
// the indexes built over them.
//
// Writes go to the registry first, so an entry is never visible to the
// scan path while its index update failed.
//
// Thread-safety: Partition is safe for concurrent use.
type Partition struct {
	name     string
	registry *index.Registry

	mu      sync.RWMutex
	entries []index.Entry
	pos     map[string]int
}

// NewPartition creates an empty partition. A nil registry means the
// partition has no indexes and every query scans.
func NewPartition(name string, registry *index.Registry) *Partition {
	return &Partition{
		name:     name,
		registry: registry,
		pos:      make(map[string]int),
	}
}

// Name identifies the partition in results and logs.
func (p *Partition) Name() string { return p.name }

// Registry returns the partition's index registry, or nil.
func (p *Partition) Registry() *index.Registry { return p.registry }

// Put adds e, replacing any entry with the same key.
func (p *Partition) Put(ctx context.Context, e index.Entry) error {
	if e.Key == "" {
		return fmt.Errorf("partition %s: entry without key", p.name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.registry != nil {
		if err := p.registry.Insert(ctx, e); err != nil {
			// A failed write may have dropped the previous entry from some
			// indexes; put it back so they keep matching the partition.
			if i, ok := p.pos[e.Key]; ok {
				if rerr := p.registry.Insert(ctx, p.entries[i]); rerr != nil {
					err = multierror.Append(err, fmt.Errorf("restore %s: %w", e.Key, rerr))
				}
			}
			return fmt.Errorf("partition %s: %w", p.name, err)
		}
	}
	if i, ok := p.pos[e.Key]; ok {
		p.entries[i] = e
		return nil
	}
	p.pos[e.Key] = len(p.entries)
	p.entries = append(p.entries, e)
	return nil
}

// Load puts every entry in order, stopping at the first failure.
func (p *Partition) Load(ctx context.Context, entries ...index.Entry) error {
	for _, e := range entries {
		if err := p.Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the entry with key. Deleting an absent key is a no-op.
func (p *Partition) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.pos[key]
	if !ok {
		return nil
	}
	if p.registry != nil {
		if err := p.registry.Remove(ctx, key); err != nil {
			return fmt.Errorf("partition %s: %w", p.name, err)
		}
	}

	last := len(p.entries) - 1
	if i != last {
		p.entries[i] = p.entries[last]
		p.pos[p.entries[i].Key] = i
	}
	p.entries = p.entries[:last]
	delete(p.pos, key)
	return nil
}

// Entries returns a snapshot of the partition's entries in storage order.
func (p *Partition) Entries() []index.Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.entries)
}

// Len returns the number of entries.
func (p *Partition) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
