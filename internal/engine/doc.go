// Package engine executes predicates against grid partitions.
//
// An Executor runs one predicate over one Partition. It tries the index
// path first: if the (optimized) predicate is IndexAware and the
// partition's registry holds a usable index, the index answers. Otherwise
// the executor scans the partition's entries and applies the predicate to
// each one.
//
// EXECUTION PATHS:
//
//	index   Filter returned ok == true; no entry was visited
//	scan    Filter returned ok == false, the query disabled indexes, or
//	        the predicate is not IndexAware
//
// Both paths return the same entries. The harness package cross-checks
// them on every scenario.
//
// OBSERVABILITY:
//
// Every Run is stamped with a query ID from an IDGenerator and a sequence
// number from a logical Clock, both of which are injectable so golden
// output stays stable. Runs emit an OpenTelemetry span ("engine.Run"),
// structured slog records, and Prometheus metrics:
//
//	gridpred_predicate_evaluations_total{path}
//	gridpred_predicate_duration_seconds{path}
//	gridpred_predicate_errors_total{code}
//
// RunPartitions evaluates the same predicate over several partitions
// concurrently and merges the results by key.
package engine
