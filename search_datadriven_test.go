package pbase

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/cockroachdb/datadriven"
)

func cmdArgValues(d *datadriven.TestData, key string) []string {
	for _, arg := range d.CmdArgs {
		if arg.Key == key {
			return arg.Vals
		}
	}
	return nil
}

func parseInt32Values(t *testing.T, strs []string) []Value {
	t.Helper()
	out := make([]Value, len(strs))
	for i, s := range strs {
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			t.Fatalf("parsing value %q: %v", s, err)
		}
		out[i] = I32(int32(n))
	}
	return out
}

// TestNarrowDataDriven exercises the three binary-search primitives
// against scripted (values, target) probes, pinning the documented
// Greater-narrows-lhs / Less-narrows-rhs role reversal.
func TestNarrowDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/search/narrow", func(t *testing.T, d *datadriven.TestData) string {
		values := parseInt32Values(t, cmdArgValues(d, "values"))
		targetStrs := cmdArgValues(d, "target")
		if len(targetStrs) != 1 {
			t.Fatalf("expected exactly one target value, got %v", targetStrs)
		}
		target := parseInt32Values(t, targetStrs)[0]

		var lhs, rhs int
		switch d.Cmd {
		case "equal":
			lhs, rhs = narrowToRangeExclusive(values, -1, len(values), target)
		case "greater":
			lhs, rhs = narrowToUpperRangeExclusive(values, -1, len(values), target)
		case "less":
			lhs, rhs = narrowToLowerRangeExclusive(values, -1, len(values), target)
		default:
			t.Fatalf("unknown command %q", d.Cmd)
		}
		return fmt.Sprintf("lhs=%d rhs=%d\n", lhs, rhs)
	})
}
