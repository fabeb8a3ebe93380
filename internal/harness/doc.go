// Package harness runs predicate scenarios against a configured grid.
//
// A scenario names a grid configuration, a dataset and a list of queries
// with expectations. Every query runs twice: once with the grid's indexes
// and once with indexes disabled. The two runs must agree (same keys, or
// the same error code) before the expectations are checked at all, so
// every scenario doubles as an index/scan consistency test.
//
// # Scenario Format
//
//	name: working_age
//	description: "Half-open range over mixed numeric ages"
//	config: grid.cue          # or an inline CUE document under grid:
//	dataset:
//	  - key: alice
//	    attrs: {age: 17, name: alice}
//	  - attrs: {age: 18}      # keyless entries get a deterministic UUID
//	generate:
//	  count: 500              # synthetic n/bucket/tag entries
//	  buckets: 9
//	queries:
//	  - name: working
//	    where: age >= 18 && age < 65
//	    expect:
//	      keys: [bob, carol]
//	      path: index         # index, scan or mixed
//	  - name: bad_bound
//	    where: 'age > "old"'
//	    expect:
//	      error: TYPE_MISMATCH
//
// Attribute values follow value.FromAny: YAML scalars map to Bool, Int,
// Float and String, null to NULL, {enum: "Type.Name"} to Enum and
// {time: "<RFC 3339>"} to Time.
//
// # Checks
//
// Besides the index/scan cross-check and the expect clause, each query's
// predicate is marshaled and unmarshaled through the wire codec and must
// render identically afterwards.
//
// # Deterministic Output
//
// Query IDs come from testutil.SequentialIDs and durations from a
// testutil.StepClock, so Result snapshots are stable and are compared
// against golden files with goldie.
package harness
