package harness

import "fmt"

// ErrCodeParse labels a query whose filter expression does not parse.
const ErrCodeParse = "PARSE_ERROR"

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall success: every query agreed across paths and
	// met its expectations.
	Pass bool `json:"pass"`

	// Entries and Partitions describe the loaded grid.
	Entries    int `json:"entries"`
	Partitions int `json:"partitions"`

	// Queries holds one result per query, in scenario order.
	Queries []QueryResult `json:"queries"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	Name  string `json:"name"`
	Where string `json:"where"`

	// Predicate is the optimized predicate the executor ran.
	Predicate string `json:"predicate,omitempty"`

	// LocalOnly reports that optimization produced nodes that cannot be
	// sent to another member.
	LocalOnly bool `json:"local_only"`

	// Path summarizes the indexed run: index, scan or mixed.
	Path string `json:"path,omitempty"`

	// Keys are the matching keys in order.
	Keys []string `json:"keys,omitempty"`

	// Error is the error code when the query failed.
	Error string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Queries:  []QueryResult{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
