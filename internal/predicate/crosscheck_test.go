package predicate

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/testutil"
	"github.com/roach88/gridpred/internal/value"
)

// The index path and the scan path must select the same entries for every
// predicate an index can answer.

func TestCrossCheck_Grid(t *testing.T) {
	entries := testutil.Grid(500, 9)
	reg := testutil.BuildRegistry(t, entries,
		testutil.Sorted("n", value.KindInt),
		testutil.Sorted("bucket", value.KindInt),
		testutil.Hash("tag", value.KindString))
	qc := index.NewQueryContext(reg)

	rng := rand.New(rand.NewPCG(7, 11))
	var preds []IndexAware
	for range 60 {
		lo := rng.Int64N(520) - 10
		hi := lo + rng.Int64N(120)
		fromIn, toIn := rng.IntN(2) == 0, rng.IntN(2) == 0
		preds = append(preds,
			mustRange(t, "n", value.Int(lo), fromIn, value.Int(hi), toIn),
			mustRange(t, "n", value.Float(float64(lo)+0.5), fromIn, value.Int(hi), toIn),
			must(NewGreater("n", value.Int(lo), fromIn)),
			must(NewLess("n", value.Float(float64(hi)-0.25), toIn)),
			must(NewBetween("n", value.Int(lo), value.Int(hi))),
		)
	}
	for b := int64(-1); b <= 9; b++ {
		preds = append(preds,
			must(NewEqual("bucket", value.Int(b))),
			mustRange(t, "bucket", value.Int(b), true, value.Int(b+2), false),
		)
	}
	preds = append(preds,
		must(NewEqual("tag", value.String("t03"))),
		must(NewEqual("tag", value.String("absent"))),
		must(NewAnd(
			must(NewEqual("tag", value.String("t05"))),
			mustRange(t, "n", value.Int(100), true, value.Int(400), true),
			must(NewIsNotNull("bucket")),
		)),
		must(NewOr(
			must(NewEqual("bucket", value.Int(0))),
			mustRange(t, "n", value.Int(0), true, value.Int(10), false),
		)),
		must(NewAnd(
			must(NewGreater("bucket", value.Int(4), false)),
			must(NewNot(must(NewBetween("n", value.Int(50), value.Int(450))))),
		)),
	)

	for _, p := range preds {
		set, ok, err := p.Filter(context.Background(), qc)
		require.NoError(t, err, p.String())
		require.True(t, ok, p.String())
		assert.Equal(t, scan(t, p, entries), set.Keys(), p.String())
	}
}

func TestCrossCheck_People(t *testing.T) {
	entries := testutil.People()
	reg := testutil.BuildRegistry(t, entries, testutil.Sorted("age", value.KindInt))
	qc := index.NewQueryContext(reg)

	bounds := []value.Value{
		value.Int(-5), value.Int(17), value.Int(18), value.Float(18.5),
		value.Int(40), value.Float(64.999), value.Int(65), value.Int(100),
		value.String("18"), value.String("64.5"),
	}
	for _, lo := range bounds {
		for _, hi := range bounds {
			for _, inc := range inclusivities {
				r := mustRange(t, "age", lo, inc.fromIn, hi, inc.toIn)
				set, ok, err := r.Filter(context.Background(), qc)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, scan(t, r, entries), set.Keys(), r.String())
			}
		}
	}
}

func TestCrossCheck_FallbackScanMatchesIndex(t *testing.T) {
	entries := testutil.People()
	r := mustRange(t, "age", value.Int(18), true, value.Int(65), false)

	// No index registered for age: the caller must scan.
	bare := index.NewQueryContext(testutil.BuildRegistry(t, entries, testutil.Hash("name", value.KindString)))
	set, ok, err := r.Filter(context.Background(), bare)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, set)

	indexed := index.NewQueryContext(testutil.BuildRegistry(t, entries, testutil.Sorted("age", value.KindInt)))
	want, ok, err := r.Filter(context.Background(), indexed)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, want.Keys(), scan(t, r, entries))
}
