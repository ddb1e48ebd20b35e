package pbase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func i32Values(xs ...int32) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = I32(x)
	}
	return out
}

func TestNarrowToRangeExclusiveInsertPositions(t *testing.T) {
	values := i32Values(0, 0, 1, 1, 3, 3)

	cases := []struct {
		target  int32
		wantLhs int
		wantRhs int
	}{
		{target: 2, wantLhs: 3, wantRhs: 4},
		{target: -1, wantLhs: -1, wantRhs: 0},
		{target: 4, wantLhs: 5, wantRhs: 6},
		{target: 0, wantLhs: -1, wantRhs: 2},
		{target: 1, wantLhs: 1, wantRhs: 4},
		{target: 3, wantLhs: 3, wantRhs: 6},
	}
	for _, c := range cases {
		lhs, rhs := narrowToRangeExclusive(values, -1, len(values), I32(c.target))
		require.Equalf(t, c.wantLhs, lhs, "target=%d lhs", c.target)
		require.Equalf(t, c.wantRhs, rhs, "target=%d rhs", c.target)
	}
}

// TestNarrowToRangeExclusiveTieBand pins the duplicate-heavy probe from the
// concrete test scenario of three equal-width runs: [0,0,0,1,1,1,3,3,3].
// Both bounds are exclusive: the equal-to-target band is the set of indices
// strictly between the returned (lhs, rhs).
func TestNarrowToRangeExclusiveTieBand(t *testing.T) {
	values := i32Values(0, 0, 0, 1, 1, 1, 3, 3, 3)

	lhs, rhs := narrowToRangeExclusive(values, -1, len(values), I32(1))
	require.Equal(t, 2, lhs)
	require.Equal(t, 6, rhs)

	lhs, rhs = narrowToRangeExclusive(values, -1, len(values), I32(2))
	require.Equal(t, 5, lhs)
	require.Equal(t, 6, rhs)

	lhs, rhs = narrowToRangeExclusive(values, -1, len(values), I32(-10))
	require.Equal(t, -1, lhs)
	require.Equal(t, 0, rhs)

	lhs, rhs = narrowToRangeExclusive(values, -1, len(values), I32(10))
	require.Equal(t, 8, lhs)
	require.Equal(t, 9, rhs)
}

func TestNarrowToUpperRangeExclusiveNarrowsLhsOnly(t *testing.T) {
	values := i32Values(0, 0, 0, 1, 1, 1, 3, 3, 3)
	lhs, rhs := narrowToUpperRangeExclusive(values, -1, len(values), I32(1))
	require.Equal(t, 5, lhs, "last index at or before 1")
	require.Equal(t, len(values), rhs, "rhs bound is untouched by a Greater probe")
}

func TestNarrowToLowerRangeExclusiveNarrowsRhsOnly(t *testing.T) {
	values := i32Values(0, 0, 0, 1, 1, 1, 3, 3, 3)
	lhs, rhs := narrowToLowerRangeExclusive(values, -1, len(values), I32(1))
	require.Equal(t, -1, lhs, "lhs bound is untouched by a Less probe")
	require.Equal(t, 3, rhs, "first index at or above 1")
}

func TestCompositeNarrowingAcrossTwoFields(t *testing.T) {
	// Two-field composite key: (a, b) sorted lexicographically.
	//   a: 0 0 1 1 1 2
	//   b: 0 1 0 1 2 0
	a := i32Values(0, 0, 1, 1, 1, 2)
	b := i32Values(0, 1, 0, 1, 2, 0)

	lhs, rhs := narrowToRangeExclusive(a, -1, len(a), I32(1))
	require.Equal(t, 1, lhs)
	require.Equal(t, 5, rhs)

	lhs, rhs = narrowToRangeExclusive(b, lhs, rhs, I32(1))
	require.Equal(t, 2, lhs)
	require.Equal(t, 4, rhs)
}
