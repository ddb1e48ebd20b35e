package pbase

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/pmezard/go-difflib/difflib"
)

// requireRowSetEqual compares two sets of row maps for equality ignoring
// order, failing with a unified diff of their pretty-printed forms when
// they don't match — useful for select-result assertions where per-row
// require.Equal noise would bury the actual mismatch.
func requireRowSetEqual(t *testing.T, want, got []map[string]Value) {
	t.Helper()
	if rowSetsEqual(want, got) {
		return
	}
	wantText := pretty.Sprint(want)
	gotText := pretty.Sprint(got)
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(wantText),
		B:        difflib.SplitLines(gotText),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		t.Fatalf("row sets differ (diff unavailable: %v)\nwant: %s\ngot: %s", err, wantText, gotText)
	}
	t.Fatalf("row sets differ:\n%s", diff)
}

func rowSetsEqual(want, got []map[string]Value) bool {
	if len(want) != len(got) {
		return false
	}
	used := make([]bool, len(got))
	for _, w := range want {
		found := false
		for i, g := range got {
			if used[i] {
				continue
			}
			if rowEqual(w, g) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func rowEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !v.Equal(bv) {
			return false
		}
	}
	return true
}
