package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/gridpred/internal/config"
	"github.com/roach88/gridpred/internal/engine"
	"github.com/roach88/gridpred/internal/predicate"
	"github.com/roach88/gridpred/internal/testutil"
)

// Harness runs scenarios with deterministic query IDs and clock.
type Harness struct {
	logger  *slog.Logger
	metrics *engine.Metrics
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the grid and executor.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithRegisterer registers executor metrics with reg once, for all runs
// of the harness. Without it every run counts into a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(h *Harness) { h.metrics = engine.NewMetrics(reg) }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with default options.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	return New().Run(ctx, s)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a freshly built grid. An error is returned only
// when the scenario cannot be set up (bad config, bad dataset); query
// failures and unmet expectations are reported in the Result.
//
// Execution flow:
//  1. Load the grid configuration and build partitions and indexes
//  2. Load the dataset, routing each entry to its partition
//  3. For each query: parse, check the wire round trip, run with and
//     without indexes, cross-check the two runs, check expectations
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	grid, err := s.GridConfig()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	rt, err := config.Build(ctx, grid, h.logger)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	defer rt.Close()

	entries, err := s.Entries()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	if err := rt.Load(ctx, entries...); err != nil {
		return nil, fmt.Errorf("scenario %s: load dataset: %w", s.Name, err)
	}

	metrics := h.metrics
	if metrics == nil {
		metrics = engine.NewMetrics(prometheus.NewRegistry())
	}
	// The reference executor scans without the grid's limits; both share
	// one ID sequence and clock.
	base := []engine.Option{
		engine.WithIDGenerator(testutil.NewSequentialIDs("q")),
		engine.WithClock(engine.NewClock()),
		engine.WithNow(testutil.NewStepClock(time.Millisecond).Now),
		engine.WithLogger(h.logger),
		engine.WithMetrics(metrics),
	}
	ex := engine.NewExecutor(append(slices.Clone(base), grid.QueryOptions()...)...)
	reference := engine.NewExecutor(base...)

	result := NewResult(s.Name)
	result.Entries = rt.Len()
	result.Partitions = len(rt.Partitions)

	for _, q := range s.Queries {
		qr := h.runQuery(ctx, ex, reference, rt, q, result)
		result.Queries = append(result.Queries, qr)
		h.logger.Info("query checked",
			"scenario", s.Name,
			"query", q.Name,
			"path", qr.Path,
			"matches", len(qr.Keys),
			"error", qr.Error,
		)
	}
	return result, nil
}

// GridConfig returns the scenario's grid: the Config file, the inline Grid
// document, or the default grid.
func (s *Scenario) GridConfig() (*config.Grid, error) {
	switch {
	case s.Config != "":
		return config.Load(s.Config)
	case s.Grid != "":
		return config.Parse(s.Name+".cue", []byte(s.Grid))
	default:
		return config.Default(), nil
	}
}

func (h *Harness) runQuery(ctx context.Context, ex, reference *engine.Executor, rt *config.Runtime, q QuerySpec, result *Result) QueryResult {
	qr := QueryResult{Name: q.Name, Where: q.Where}

	p, err := predicate.Parse(q.Where)
	if err != nil {
		qr.Error = ErrCodeParse
		checkExpect(q, qr, result, err)
		return qr
	}

	optimized := predicate.Optimize(p)
	qr.Predicate = optimized.String()
	qr.LocalOnly = !predicate.CheckTransferable(optimized).Transferable
	checkRoundTrip(q.Name, p, result)

	indexed, ierr := ex.RunPartitions(ctx, rt.Partitions, engine.Query{
		Predicate:       p,
		IndexesDisabled: rt.Grid.IndexesDisabled,
	})
	scanned, serr := reference.RunPartitions(ctx, rt.Partitions, engine.Query{
		Predicate:       p,
		IndexesDisabled: true,
	})

	switch {
	case engine.IsScanLimitError(ierr):
		// The reference run is unlimited, so only the indexed run can hit
		// the grid's scan limit.
		qr.Error = engine.ErrorCode(ierr)
		checkExpect(q, qr, result, ierr)
		return qr
	case ierr != nil && serr != nil:
		if ic, sc := engine.ErrorCode(ierr), engine.ErrorCode(serr); ic != sc {
			result.AddError("query %s: index run failed with %s, scan run with %s", q.Name, ic, sc)
		}
		qr.Error = engine.ErrorCode(ierr)
		checkExpect(q, qr, result, ierr)
		return qr
	case ierr != nil:
		result.AddError("query %s: index run failed but scan succeeded: %v", q.Name, ierr)
		qr.Error = engine.ErrorCode(ierr)
		return qr
	case serr != nil:
		result.AddError("query %s: scan run failed but index succeeded: %v", q.Name, serr)
		qr.Error = engine.ErrorCode(serr)
		return qr
	}

	qr.Keys = indexed.Keys()
	qr.Path = SummarizePaths(indexed)
	if sk := scanned.Keys(); !slices.Equal(qr.Keys, sk) {
		result.AddError("query %s: index path returned %v, scan returned %v", q.Name, qr.Keys, sk)
	}
	checkExpect(q, qr, result, nil)
	return qr
}

// checkRoundTrip marshals p through the wire codec and requires the
// decoded tree to render identically. Local-only trees are not sent and
// are skipped.
func checkRoundTrip(name string, p predicate.Predicate, result *Result) {
	if !predicate.CheckTransferable(p).Transferable {
		return
	}
	data, err := predicate.Marshal(p)
	if err != nil {
		result.AddError("query %s: marshal: %v", name, err)
		return
	}
	decoded, err := predicate.Unmarshal(data)
	if err != nil {
		result.AddError("query %s: unmarshal: %v", name, err)
		return
	}
	if got, want := decoded.String(), p.String(); got != want {
		result.AddError("query %s: round trip changed predicate: %s became %s", name, want, got)
	}
}

// SummarizePaths reports how a combined run was answered: index when every
// partition used an index, scan when none did, mixed otherwise.
func SummarizePaths(c *engine.Combined) string {
	var index, scan int
	for _, res := range c.Results {
		switch res.Path {
		case engine.PathIndex:
			index++
		case engine.PathScan:
			scan++
		}
	}
	switch {
	case scan == 0:
		return PathIndex
	case index == 0:
		return PathScan
	default:
		return PathMixed
	}
}

// checkExpect compares qr with the query's expect clause. cause is the
// query error, if any.
func checkExpect(q QuerySpec, qr QueryResult, result *Result, cause error) {
	x := q.Expect
	if x == nil {
		if cause != nil {
			result.AddError("query %s: unexpected error: %v", q.Name, cause)
		}
		return
	}

	if x.Error != "" {
		if qr.Error != x.Error {
			result.AddError("query %s: expected error %s, got %s", q.Name, x.Error, describe(qr.Error))
		}
		return
	}
	if cause != nil {
		result.AddError("query %s: unexpected error: %v", q.Name, cause)
		return
	}

	if len(x.Keys) > 0 {
		want := slices.Sorted(slices.Values(x.Keys))
		if !slices.Equal(want, qr.Keys) {
			result.AddError("query %s: expected keys %v, got %v", q.Name, want, qr.Keys)
		}
	}
	if x.Count != nil && *x.Count != len(qr.Keys) {
		result.AddError("query %s: expected %d matches, got %d", q.Name, *x.Count, len(qr.Keys))
	}
	if x.Path != "" && x.Path != qr.Path {
		result.AddError("query %s: expected path %s, got %s", q.Name, x.Path, qr.Path)
	}
}

func describe(code string) string {
	if code == "" {
		return "no error"
	}
	return code
}
