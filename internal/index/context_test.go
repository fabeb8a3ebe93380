package index

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/value"
)

func TestMatchIndex(t *testing.T) {
	sorted := NewSorted("by_age", "age", value.KindInt)
	hash := NewHash("by_age_hash", "age", value.KindInt)
	cityHash := NewHash("by_city", "city", value.KindString)

	both := NewRegistry()
	require.NoError(t, both.Add(hash))
	require.NoError(t, both.Add(sorted))
	require.NoError(t, both.Add(cityHash))

	tests := []struct {
		name     string
		registry *Registry
		opts     []QueryOption
		attr     string
		hint     MatchHint
		want     Index
	}{
		{"none prefers ordered", both, nil, "age", HintNone, sorted},
		{"ordered hint", both, nil, "age", HintPreferOrdered, sorted},
		{"unordered hint", both, nil, "age", HintPreferUnordered, hash},
		{"ordered hint never returns hash", both, nil, "city", HintPreferOrdered, nil},
		{"none falls back to hash", both, nil, "city", HintNone, cityHash},
		{"unknown attribute", both, nil, "name", HintNone, nil},
		{"indexes disabled", both, []QueryOption{WithIndexesDisabled()}, "age", HintNone, nil},
		{"nil registry", nil, nil, "age", HintNone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := NewQueryContext(tt.registry, tt.opts...)
			got, ok := qc.MatchIndex(tt.attr, tt.hint)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestMatchOrderedIndex(t *testing.T) {
	r := NewRegistry()
	sorted := NewSorted("by_age", "age", value.KindInt)
	require.NoError(t, r.Add(sorted))
	require.NoError(t, r.Add(NewHash("by_city", "city", value.KindString)))
	qc := NewQueryContext(r)

	got, ok := qc.MatchOrderedIndex("age")
	require.True(t, ok)
	assert.Same(t, sorted, got)

	_, ok = qc.MatchOrderedIndex("city")
	assert.False(t, ok)
}

func TestMatchIndex_NilContext(t *testing.T) {
	var qc *QueryContext
	_, ok := qc.MatchIndex("age", HintNone)
	assert.False(t, ok)
}

func TestNewQueryContext_ID(t *testing.T) {
	qc := NewQueryContext(nil)
	parsed, err := uuid.Parse(qc.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	assert.Equal(t, "q-1", NewQueryContext(nil, WithID("q-1")).ID)
}
