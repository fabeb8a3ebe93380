package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/value"
)

func TestCheckTransferable_Leaves(t *testing.T) {
	for _, p := range []Predicate{
		must(NewEqual("a", value.Int(1))),
		must(NewGreater("a", value.Int(1), true)),
		must(NewLess("a", value.Int(1), false)),
		must(NewBetween("a", value.Int(1), value.Int(2))),
		must(NewIsNull("a")),
		must(NewIsNotNull("a")),
	} {
		result := CheckTransferable(p)
		assert.True(t, result.Transferable, p.String())
		assert.Empty(t, result.Warnings, p.String())
	}
}

func TestCheckTransferable_Range(t *testing.T) {
	r := mustRange(t, "age", value.Int(18), true, value.Int(65), false)

	result := CheckTransferable(r)
	assert.False(t, result.Transferable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "local-only")
	assert.Contains(t, result.Warnings[0], "'age'")
}

func TestCheckTransferable_Nested(t *testing.T) {
	p := must(NewOr(
		must(NewNot(must(NewAnd(
			mustRange(t, "age", value.Int(18), true, value.Int(65), false),
			must(NewIsNotNull("name")),
		)))),
		mustRange(t, "score", value.Int(0), true, value.Int(10), true),
		must(NewIsNull("email")),
	))

	result := CheckTransferable(p)
	assert.False(t, result.Transferable)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "'age'")
	assert.Contains(t, result.Warnings[1], "'score'")
}

func TestCheckTransferable_AgreesWithTransferable(t *testing.T) {
	preds := []Predicate{
		must(NewAnd()),
		must(NewNot(must(NewIsNull("a")))),
		must(NewAnd(must(NewIsNull("a")), mustRange(t, "a", value.Int(1), true, value.Int(2), true))),
		Optimize(must(NewAnd(
			must(NewGreater("a", value.Int(1), true)),
			must(NewLess("a", value.Int(2), true)),
		))),
	}
	for _, p := range preds {
		assert.Equal(t, p.Transferable(), CheckTransferable(p).Transferable, p.String())
	}
}

func TestCheckTransferable_Nil(t *testing.T) {
	result := CheckTransferable(nil)
	assert.False(t, result.Transferable)
	assert.Len(t, result.Warnings, 1)
}
