package sqlindex

import (
	"strings"

	"github.com/roach88/gridpred/internal/value"
)

// rangeQuery compiles a range scan to parameterized SQL.
//
// The SQL selects a superset of the matching rows: comparisons are always
// inclusive, a bound SQLite cannot order (NaN) is dropped, and NaN rows are
// always returned. Index.RangeRetrieve applies the exact bounds afterwards.
// Values are never interpolated. Rows are ordered by key.
func rangeQuery(indexName string, from, to value.Value) (string, []any) {
	var (
		conds  []string
		params = []any{indexName}
	)
	if p, ok := sortParam(from); ok {
		conds = append(conds, "sort_value >= ?")
		params = append(params, p)
	}
	if p, ok := sortParam(to); ok {
		conds = append(conds, "sort_value <= ?")
		params = append(params, p)
	}

	var sb strings.Builder
	sb.WriteString("SELECT key, attributes FROM index_entries WHERE index_name = ?")
	if len(conds) > 0 {
		sb.WriteString(" AND ((")
		sb.WriteString(strings.Join(conds, " AND "))
		sb.WriteString(") OR is_nan = 1)")
	}
	sb.WriteString(" ORDER BY key COLLATE BINARY ASC")
	return sb.String(), params
}
