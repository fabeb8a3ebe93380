package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/predicate"
)

const tracerName = "github.com/roach88/gridpred/internal/engine"

// cancelCheckInterval is how many entries the scan path visits between
// context checks.
const cancelCheckInterval = 256

// Path names how a run was answered.
type Path string

const (
	PathIndex Path = "index"
	PathScan  Path = "scan"
)

// Query is one predicate evaluation request.
type Query struct {
	// Predicate selects the entries.
	Predicate predicate.Predicate

	// IndexesDisabled forces the scan path.
	IndexesDisabled bool
}

// Result is the outcome of one Run.
type Result struct {
	// QueryID correlates the result with its log lines and span.
	QueryID string

	// Seq orders runs of one Executor.
	Seq int64

	// Partition names the partition that was queried.
	Partition string

	// Predicate is the rendered predicate that actually ran, after
	// optimization.
	Predicate string

	// Path reports whether an index answered.
	Path Path

	// Entries are the matching entries, ordered by key.
	Entries index.EntrySet

	// Scanned counts the entries the scan path visited. Zero on the index
	// path.
	Scanned int

	// Duration is the measured run time.
	Duration time.Duration
}

// Keys returns the matching keys in order.
func (r *Result) Keys() []string { return r.Entries.Keys() }

// Combined is the merged outcome of RunPartitions.
type Combined struct {
	// Results holds one result per partition, in input order.
	Results []*Result

	// Entries is the union of all partition results, ordered by key.
	Entries index.EntrySet
}

// Keys returns the merged matching keys in order.
func (c *Combined) Keys() []string { return c.Entries.Keys() }

// Executor runs predicates over partitions, preferring indexes and falling
// back to a scan.
//
// Thread-safety: an Executor is safe for concurrent use once constructed.
type Executor struct {
	ids         IDGenerator
	clock       *Clock
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	now         func() time.Time
	maxScan     int
	optimize    bool
	parallelism int
}

// Option configures an Executor.
type Option func(*Executor)

// WithIDGenerator sets the query ID source.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Executor) { e.ids = g }
}

// WithClock sets the logical clock that stamps Result.Seq.
func WithClock(c *Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithLogger sets the structured logger.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics sets the Prometheus collectors.
// Default: DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider from otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) { e.tracer = tp.Tracer(tracerName) }
}

// WithNow sets the wall clock used to measure Result.Duration.
func WithNow(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithMaxScan caps the number of entries the scan path may visit. A
// partition larger than n fails with SCAN_LIMIT_EXCEEDED unless an index
// answers. Zero means unlimited.
func WithMaxScan(n int) Option {
	return func(e *Executor) { e.maxScan = n }
}

// WithOptimize enables or disables predicate.Optimize before each run.
// Default: enabled.
func WithOptimize(enabled bool) Option {
	return func(e *Executor) { e.optimize = enabled }
}

// WithParallelism caps the number of partitions RunPartitions evaluates at
// once. Zero means one goroutine per partition.
func WithParallelism(n int) Option {
	return func(e *Executor) { e.parallelism = n }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
		logger:   slog.Default(),
		now:      time.Now,
		optimize: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = DefaultMetrics()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Run evaluates q against part.
//
// The index path is tried first. When no usable index exists the scan path
// applies the predicate to every entry; predicate errors abort the run
// rather than being counted as non-matches.
func (e *Executor) Run(ctx context.Context, part *Partition, q Query) (*Result, error) {
	if part == nil || q.Predicate == nil {
		return nil, &ExecError{Code: ErrCodeInvalidQuery, Message: "query needs a partition and a predicate"}
	}

	res := &Result{
		QueryID:   e.ids.Generate(),
		Seq:       e.clock.Next(),
		Partition: part.Name(),
	}
	p := q.Predicate
	if e.optimize {
		p = predicate.Optimize(p)
	}
	res.Predicate = p.String()

	ctx, span := e.tracer.Start(ctx, "engine.Run",
		trace.WithAttributes(
			attribute.String("query.id", res.QueryID),
			attribute.String("query.partition", res.Partition),
			attribute.String("query.predicate", res.Predicate),
			attribute.Bool("query.indexes_disabled", q.IndexesDisabled),
		),
	)
	defer span.End()

	start := e.now()
	err := e.execute(ctx, part, p, q.IndexesDisabled, res)
	res.Duration = e.now().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.failures.WithLabelValues(ErrorCode(err)).Inc()
		e.logger.Warn("query failed",
			"query_id", res.QueryID,
			"seq", res.Seq,
			"partition", res.Partition,
			"predicate", res.Predicate,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("query.path", string(res.Path)),
		attribute.Int("query.matches", len(res.Entries)),
		attribute.Int("query.scanned", res.Scanned),
	)
	span.SetStatus(codes.Ok, "")
	e.metrics.evaluations.WithLabelValues(string(res.Path)).Inc()
	e.metrics.duration.WithLabelValues(string(res.Path)).Observe(res.Duration.Seconds())
	e.logger.Debug("query evaluated",
		"query_id", res.QueryID,
		"seq", res.Seq,
		"partition", res.Partition,
		"path", res.Path,
		"matches", len(res.Entries),
		"scanned", res.Scanned,
		"duration", res.Duration,
	)
	return res, nil
}

func (e *Executor) execute(ctx context.Context, part *Partition, p predicate.Predicate, indexesDisabled bool, res *Result) error {
	if err := ctx.Err(); err != nil {
		return NewCanceledError(res.QueryID, res.Partition, err)
	}

	opts := []index.QueryOption{index.WithID(res.QueryID)}
	if indexesDisabled {
		opts = append(opts, index.WithIndexesDisabled())
	}
	qc := index.NewQueryContext(part.Registry(), opts...)

	if aware, ok := p.(predicate.IndexAware); ok {
		set, answered, err := aware.Filter(ctx, qc)
		if err != nil {
			if ctx.Err() != nil {
				return NewCanceledError(res.QueryID, res.Partition, ctx.Err())
			}
			return NewEvaluationError(res.QueryID, res.Partition, PathIndex, err)
		}
		if answered {
			res.Path = PathIndex
			res.Entries = set
			return nil
		}
		e.logger.Debug("no usable index, scanning",
			"query_id", res.QueryID,
			"partition", res.Partition,
			"indexes_disabled", indexesDisabled,
		)
	}

	res.Path = PathScan
	entries := part.Entries()
	if e.maxScan > 0 && len(entries) > e.maxScan {
		return NewScanLimitError(res.QueryID, res.Partition, len(entries), e.maxScan)
	}

	var matches []index.Entry
	for i, entry := range entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return NewCanceledError(res.QueryID, res.Partition, err)
			}
		}
		ok, err := p.Apply(entry)
		if err != nil {
			return NewEvaluationError(res.QueryID, res.Partition, PathScan,
				fmt.Errorf("entry %s: %w", entry.Key, err))
		}
		if ok {
			matches = append(matches, entry)
		}
	}
	res.Scanned = len(entries)
	res.Entries = index.NewEntrySet(matches...)
	return nil
}

// RunPartitions evaluates q against every partition concurrently and
// merges the results. The first failure cancels the remaining runs and is
// returned.
func (e *Executor) RunPartitions(ctx context.Context, parts []*Partition, q Query) (*Combined, error) {
	results := make([]*Result, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for i, part := range parts {
		g.Go(func() error {
			res, err := e.Run(gctx, part, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := index.EntrySet{}
	for _, res := range results {
		merged = merged.Union(res.Entries)
	}
	return &Combined{Results: results, Entries: merged}, nil
}
