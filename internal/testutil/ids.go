package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDs generates query IDs "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario run twice logs and reports identical IDs.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "q".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "q"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID. Implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
