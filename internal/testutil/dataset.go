// Package testutil provides deterministic fixtures shared by package tests:
// reference datasets, index registries built over them, a step clock and a
// sequential query ID generator.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/value"
)

// Person builds an entry with an "age" attribute. A nil age leaves the
// attribute absent.
func Person(key string, age value.Value) index.Entry {
	attrs := value.Object{"name": value.String(key)}
	if age != nil {
		attrs["age"] = age
	}
	return index.Entry{Key: key, Attributes: attrs}
}

// People is the reference dataset for range predicates over "age". It
// covers both sides of the [18, 65) boundaries, an absent and an explicit
// NULL age, and mixed Int and Float representations.
func People() []index.Entry {
	return []index.Entry{
		Person("alice", value.Int(17)),
		Person("bob", value.Int(18)),
		Person("carol", value.Float(18.5)),
		Person("dave", value.Int(40)),
		Person("erin", value.Int(64)),
		Person("frank", value.Float(64.999)),
		Person("grace", value.Int(65)),
		Person("heidi", value.Float(65)),
		Person("ivan", value.Int(90)),
		Person("judy", nil),
		Person("mallory", value.Null{}),
		Person("nina", value.Int(-3)),
	}
}

// Grid generates n entries with integer attributes "n" (0..n-1) and
// "bucket" (n mod buckets), plus a "tag" string. Every seventh entry has no
// "bucket" attribute.
func Grid(n, buckets int) []index.Entry {
	entries := make([]index.Entry, 0, n)
	for i := range n {
		attrs := value.Object{
			"n":   value.Int(i),
			"tag": value.String(fmt.Sprintf("t%02d", i%13)),
		}
		if i%7 != 0 {
			attrs["bucket"] = value.Int(i % buckets)
		}
		entries = append(entries, index.Entry{Key: fmt.Sprintf("e%05d", i), Attributes: attrs})
	}
	return entries
}

// IndexSpec declares an in-memory index for BuildRegistry.
type IndexSpec struct {
	Attribute string
	Kind      value.Kind
	Hash      bool
}

// Sorted declares an in-memory ordered index.
func Sorted(attribute string, kind value.Kind) IndexSpec {
	return IndexSpec{Attribute: attribute, Kind: kind}
}

// Hash declares an in-memory hash index.
func Hash(attribute string, kind value.Kind) IndexSpec {
	return IndexSpec{Attribute: attribute, Kind: kind, Hash: true}
}

// BuildRegistry creates a registry with the given indexes and loads
// entries into it.
func BuildRegistry(t testing.TB, entries []index.Entry, specs ...IndexSpec) *index.Registry {
	t.Helper()
	r := index.NewRegistry()
	for _, s := range specs {
		var idx index.Index
		if s.Hash {
			idx = index.NewHash("hash_"+s.Attribute, s.Attribute, s.Kind)
		} else {
			idx = index.NewSorted("sorted_"+s.Attribute, s.Attribute, s.Kind)
		}
		require.NoError(t, r.Add(idx))
	}
	ctx := context.Background()
	for _, e := range entries {
		require.NoError(t, r.Insert(ctx, e))
	}
	return r
}

// Keys returns the keys of entries in input order.
func Keys(entries []index.Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
