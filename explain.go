package pbase

import (
	"github.com/pbase/pbase/internal/explain"
)

// ExplainFilter renders a debug chart of how each of schema's declared
// indices would score against filterFields, the set of field names a
// query is filtering on. Useful for understanding index_for_query's
// planning decision; not part of the read/write path.
func ExplainFilter(schema *TableSchema, filterFields []string) string {
	fieldSet := make(map[string]bool, len(filterFields))
	for _, f := range filterFields {
		fieldSet[f] = true
	}
	names := make([]string, len(schema.Indices))
	scores := make([]int, len(schema.Indices))
	for i, idx := range schema.Indices {
		names[i] = idx.Name
		scores[i] = indexScore(idx, fieldSet)
	}
	return explain.IndexScores(names, scores)
}

// DebugString renders r as an ASCII table for logs and tests.
func (r *Result) DebugString() string {
	rows := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]string, len(row))
		for k, v := range row {
			rec[k] = v.String()
		}
		rows[i] = rec
	}
	return explain.ResultTable(r.Columns, rows)
}
