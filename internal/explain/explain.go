// Package explain renders debug aids for understanding query planning
// decisions and inspecting select results. Nothing here is on the read or
// write path; it exists to make PBase's behaviour legible in logs and
// tests, not to implement a CLI (out of scope per the core spec).
package explain

import (
	"bytes"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
)

// IndexScores renders an ASCII line plot of each candidate index's greedy
// score, in the order given, as a debug aid for index_for_query's decision.
func IndexScores(names []string, scores []int) string {
	series := make([]float64, len(scores))
	for i, s := range scores {
		series[i] = float64(s)
	}
	caption := "index scores: "
	for i, n := range names {
		if i > 0 {
			caption += ", "
		}
		caption += fmt.Sprintf("%s=%d", n, scores[i])
	}
	return asciigraph.Plot(series, asciigraph.Caption(caption), asciigraph.Height(8))
}

// ResultTable renders a slice of flat row maps (as PBase.Select returns) as
// an ASCII table, with columns in the given fixed order.
func ResultTable(columns []string, rows []map[string]string) string {
	var buf bytes.Buffer
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader(columns)
	for _, row := range rows {
		rec := make([]string, len(columns))
		for i, col := range columns {
			rec[i] = row[col]
		}
		tw.Append(rec)
	}
	tw.Render()
	return buf.String()
}
