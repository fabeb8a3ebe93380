package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/predicate"
	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/testutil"
	"github.com/roach88/gridpred/internal/value"
)

var workingAge = []string{"bob", "carol", "dave", "erin", "frank"}

// newTestExecutor returns an executor with deterministic IDs, silent logs
// and an isolated metrics registry.
func newTestExecutor(t *testing.T, opts ...Option) (*Executor, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	base := []Option{
		WithIDGenerator(testutil.NewSequentialIDs("q")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	}
	return NewExecutor(append(base, opts...)...), m
}

func peoplePartition(t *testing.T, specs ...testutil.IndexSpec) *Partition {
	t.Helper()
	var reg *index.Registry
	if len(specs) > 0 {
		reg = testutil.BuildRegistry(t, nil, specs...)
	}
	part := NewPartition("people", reg)
	require.NoError(t, part.Load(context.Background(), testutil.People()...))
	return part
}

func TestRun_IndexPath(t *testing.T) {
	ex, _ := newTestExecutor(t)
	part := peoplePartition(t, testutil.Sorted("age", value.KindInt))

	res, err := ex.Run(context.Background(), part, Query{
		Predicate: predicate.MustParse(`age >= 18 && age < 65`),
	})
	require.NoError(t, err)

	assert.Equal(t, PathIndex, res.Path)
	assert.Equal(t, workingAge, res.Keys())
	assert.Equal(t, 0, res.Scanned)
	assert.Equal(t, "18 <= age < 65", res.Predicate)
	assert.Equal(t, "people", res.Partition)
}

func TestRun_ScanFallback(t *testing.T) {
	tests := []struct {
		name     string
		part     func(t *testing.T) *Partition
		disabled bool
	}{
		{"no registry", func(t *testing.T) *Partition { return peoplePartition(t) }, false},
		{"index on another attribute", func(t *testing.T) *Partition {
			return peoplePartition(t, testutil.Sorted("name", value.KindString))
		}, false},
		{"hash index only", func(t *testing.T) *Partition {
			return peoplePartition(t, testutil.Hash("age", value.KindInt))
		}, false},
		{"indexes disabled", func(t *testing.T) *Partition {
			return peoplePartition(t, testutil.Sorted("age", value.KindInt))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, _ := newTestExecutor(t)
			res, err := ex.Run(context.Background(), tt.part(t), Query{
				Predicate:       predicate.MustParse(`age >= 18 && age < 65`),
				IndexesDisabled: tt.disabled,
			})
			require.NoError(t, err)

			assert.Equal(t, PathScan, res.Path)
			assert.Equal(t, workingAge, res.Keys())
			assert.Equal(t, 12, res.Scanned)
		})
	}
}

func TestRun_NotIsAlwaysScanned(t *testing.T) {
	ex, _ := newTestExecutor(t)
	part := peoplePartition(t, testutil.Sorted("age", value.KindInt))

	res, err := ex.Run(context.Background(), part, Query{
		Predicate: predicate.MustParse(`!(age < 18)`),
	})
	require.NoError(t, err)

	assert.Equal(t, PathScan, res.Path)
	// NULL ages stay out: NOT UNKNOWN is UNKNOWN.
	assert.Equal(t, []string{"bob", "carol", "dave", "erin", "frank", "grace", "heidi", "ivan"}, res.Keys())
}

func TestRun_WithoutOptimize(t *testing.T) {
	ex, _ := newTestExecutor(t, WithOptimize(false))
	part := peoplePartition(t, testutil.Sorted("age", value.KindInt))

	res, err := ex.Run(context.Background(), part, Query{
		Predicate: predicate.MustParse(`age >= 18 && age < 65`),
	})
	require.NoError(t, err)

	assert.Equal(t, "(age >= 18 AND age < 65)", res.Predicate)
	assert.Equal(t, PathIndex, res.Path)
	assert.Equal(t, workingAge, res.Keys())
}

func TestRun_StampsIDsSeqAndDuration(t *testing.T) {
	clock := testutil.NewStepClock(time.Millisecond)
	ex, _ := newTestExecutor(t, WithNow(clock.Now), WithClock(NewClockAt(41)))
	part := peoplePartition(t)
	q := Query{Predicate: predicate.MustParse(`age == 40`)}

	first, err := ex.Run(context.Background(), part, q)
	require.NoError(t, err)
	second, err := ex.Run(context.Background(), part, q)
	require.NoError(t, err)

	assert.Equal(t, "q-0001", first.QueryID)
	assert.Equal(t, "q-0002", second.QueryID)
	assert.Equal(t, int64(42), first.Seq)
	assert.Equal(t, int64(43), second.Seq)
	assert.Equal(t, time.Millisecond, first.Duration)
	assert.Equal(t, []string{"dave"}, first.Keys())
}

func TestRun_TypeMismatch(t *testing.T) {
	bad, err := predicate.NewGreater("age", value.String("old"), false)
	require.NoError(t, err)

	for _, tt := range []struct {
		name  string
		specs []testutil.IndexSpec
		path  Path
	}{
		{"scan", nil, PathScan},
		{"index", []testutil.IndexSpec{testutil.Sorted("age", value.KindInt)}, PathIndex},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ex, m := newTestExecutor(t)
			res, err := ex.Run(context.Background(), peoplePartition(t, tt.specs...), Query{Predicate: bad})
			require.Error(t, err)
			assert.Nil(t, res)

			assert.True(t, IsEvaluationError(err))
			assert.True(t, queryerr.IsTypeMismatch(err), "cause must survive wrapping: %v", err)

			var ee *ExecError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, string(tt.path), ee.Details["path"])
			assert.Equal(t, "people", ee.Partition)

			assert.Equal(t, 1.0, promtestutil.ToFloat64(m.failures.WithLabelValues("TYPE_MISMATCH")))
			assert.Equal(t, 0, promtestutil.CollectAndCount(m.evaluations))
		})
	}
}

func TestRun_ScanLimit(t *testing.T) {
	ex, m := newTestExecutor(t, WithMaxScan(5))
	q := Query{Predicate: predicate.MustParse(`age >= 18`)}

	_, err := ex.Run(context.Background(), peoplePartition(t), q)
	require.Error(t, err)
	assert.True(t, IsScanLimitError(err))
	assert.Contains(t, err.Error(), "12 entries (limit 5)")
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.failures.WithLabelValues("SCAN_LIMIT_EXCEEDED")))

	// The index path is not limited.
	res, err := ex.Run(context.Background(), peoplePartition(t, testutil.Sorted("age", value.KindInt)), q)
	require.NoError(t, err)
	assert.Equal(t, PathIndex, res.Path)
}

func TestRun_Canceled(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Run(ctx, peoplePartition(t), Query{Predicate: predicate.MustParse(`age > 1`)})
	require.Error(t, err)
	assert.True(t, IsCanceledError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidQuery(t *testing.T) {
	ex, _ := newTestExecutor(t)

	_, err := ex.Run(context.Background(), nil, Query{Predicate: predicate.MustParse(`age > 1`)})
	assert.Error(t, err)

	_, err = ex.Run(context.Background(), peoplePartition(t), Query{})
	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ErrCodeInvalidQuery, ee.Code)
}

func TestRun_Metrics(t *testing.T) {
	ex, m := newTestExecutor(t)
	indexed := peoplePartition(t, testutil.Sorted("age", value.KindInt))
	plain := peoplePartition(t)
	q := Query{Predicate: predicate.MustParse(`age < 18`)}

	for range 3 {
		_, err := ex.Run(context.Background(), indexed, q)
		require.NoError(t, err)
	}
	_, err := ex.Run(context.Background(), plain, q)
	require.NoError(t, err)

	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.evaluations.WithLabelValues("index")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.evaluations.WithLabelValues("scan")))
	assert.Equal(t, 2, promtestutil.CollectAndCount(m.duration))
}

func TestRun_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ex, _ := newTestExecutor(t, WithTracerProvider(tp))
	part := peoplePartition(t, testutil.Sorted("age", value.KindInt))

	_, err := ex.Run(context.Background(), part, Query{Predicate: predicate.MustParse(`age >= 65`)})
	require.NoError(t, err)
	_, err = ex.Run(context.Background(), part, Query{Predicate: predicate.MustParse(`age >= "x"`)})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "engine.Run", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	assertSpanAttr(t, ok, "query.id", attribute.StringValue("q-0001"))
	assertSpanAttr(t, ok, "query.path", attribute.StringValue("index"))
	assertSpanAttr(t, ok, "query.matches", attribute.IntValue(3))
	assertSpanAttr(t, ok, "query.predicate", attribute.StringValue("age >= 65"))

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.NotEmpty(t, failed.Events(), "error should be recorded on the span")
}

func assertSpanAttr(t *testing.T, span sdktrace.ReadOnlySpan, key string, want attribute.Value) {
	t.Helper()
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			assert.Equal(t, want, kv.Value, "attribute %s", key)
			return
		}
	}
	t.Errorf("span %s has no attribute %s", span.Name(), key)
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ex, _ := newTestExecutor(t, WithLogger(logger))

	_, err := ex.Run(context.Background(), peoplePartition(t), Query{Predicate: predicate.MustParse(`age == 17`)})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="no usable index, scanning"`)
	assert.Contains(t, out, `msg="query evaluated"`)
	assert.Contains(t, out, "query_id=q-0001")
	assert.Contains(t, out, "path=scan")
	assert.Contains(t, out, "matches=1")
}

// gridPartitions splits Grid(n, 9) round-robin over k partitions. Only the
// partitions whose index is listed in indexed get a sorted index on "n".
func gridPartitions(t *testing.T, n, k int, indexed ...int) []*Partition {
	t.Helper()
	parts := make([]*Partition, k)
	for i := range parts {
		var reg *index.Registry
		for _, j := range indexed {
			if j == i {
				reg = testutil.BuildRegistry(t, nil, testutil.Sorted("n", value.KindInt))
			}
		}
		parts[i] = NewPartition(string(rune('a'+i)), reg)
	}
	for i, e := range testutil.Grid(n, 9) {
		require.NoError(t, parts[i%k].Put(context.Background(), e))
	}
	return parts
}

func TestPartition_RejectedPutLeavesIndexesUnchanged(t *testing.T) {
	ctx := context.Background()
	reg := testutil.BuildRegistry(t, nil,
		testutil.Hash("tag", value.KindString),
		testutil.Sorted("n", value.KindInt),
	)
	part := NewPartition("p", reg)
	ex, _ := newTestExecutor(t)

	bad := index.Entry{Key: "k", Attributes: value.Object{"tag": value.String("x"), "n": value.String("abc")}}
	require.Error(t, part.Put(ctx, bad))
	assert.Zero(t, part.Len())

	res, err := ex.Run(ctx, part, Query{Predicate: predicate.MustParse(`tag == "x"`)})
	require.NoError(t, err)
	assert.Equal(t, PathIndex, res.Path)
	assert.Empty(t, res.Keys())

	// A rejected replace keeps the previous entry indexed.
	good := index.Entry{Key: "k", Attributes: value.Object{"tag": value.String("x"), "n": value.Int(1)}}
	require.NoError(t, part.Put(ctx, good))
	require.Error(t, part.Put(ctx, bad))
	res, err = ex.Run(ctx, part, Query{Predicate: predicate.MustParse(`n == 1`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, res.Keys())
}

func TestRunPartitions_MergesResults(t *testing.T) {
	q := Query{Predicate: predicate.MustParse(`n >= 100 && n < 200`)}

	for _, tt := range []struct {
		name    string
		indexed []int
		opts    []Option
	}{
		{"all indexed", []int{0, 1, 2, 3}, nil},
		{"mixed paths", []int{1, 3}, nil},
		{"limited parallelism", []int{0, 2}, []Option{WithParallelism(2)}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ex, _ := newTestExecutor(t, tt.opts...)
			parts := gridPartitions(t, 500, 4, tt.indexed...)

			combined, err := ex.RunPartitions(context.Background(), parts, q)
			require.NoError(t, err)

			require.Len(t, combined.Results, 4)
			for i, res := range combined.Results {
				assert.Equal(t, parts[i].Name(), res.Partition)
				assert.Len(t, res.Entries, 25)
			}
			keys := combined.Keys()
			require.Len(t, keys, 100)
			assert.Equal(t, "e00100", keys[0])
			assert.Equal(t, "e00199", keys[99])
		})
	}
}

func TestRunPartitions_FirstErrorWins(t *testing.T) {
	ex, _ := newTestExecutor(t)
	parts := gridPartitions(t, 40, 3, 0)

	_, err := ex.RunPartitions(context.Background(), parts, Query{Predicate: predicate.MustParse(`n > "many"`)})
	require.Error(t, err)
	assert.True(t, queryerr.IsTypeMismatch(err))
}

func TestPartition_PutDelete(t *testing.T) {
	ctx := context.Background()
	reg := testutil.BuildRegistry(t, nil, testutil.Sorted("age", value.KindInt))
	part := NewPartition("p", reg)

	require.NoError(t, part.Load(ctx, testutil.People()...))
	assert.Equal(t, 12, part.Len())

	// Replace keeps one entry per key and updates the index.
	require.NoError(t, part.Put(ctx, testutil.Person("alice", value.Int(30))))
	assert.Equal(t, 12, part.Len())

	require.NoError(t, part.Delete(ctx, "bob"))
	require.NoError(t, part.Delete(ctx, "bob"))
	assert.Equal(t, 11, part.Len())

	ex, _ := newTestExecutor(t)
	q := Query{Predicate: predicate.MustParse(`age >= 18 && age < 65`)}
	indexed, err := ex.Run(ctx, part, q)
	require.NoError(t, err)
	scanned, err := ex.Run(ctx, part, Query{Predicate: q.Predicate, IndexesDisabled: true})
	require.NoError(t, err)

	want := []string{"alice", "carol", "dave", "erin", "frank"}
	assert.Equal(t, want, indexed.Keys())
	assert.Equal(t, want, scanned.Keys())

	// Out-of-domain values are rejected before the entry becomes visible.
	err = part.Put(ctx, testutil.Person("zed", value.String("old")))
	assert.True(t, queryerr.IsTypeMismatch(err))
	assert.Equal(t, 11, part.Len())

	assert.Error(t, part.Put(ctx, index.Entry{}))
}
