package pbase

// This file implements the binary-search kernel that both index maintenance
// (index.go) and the single-table query planner (select.go) narrow against.
// All three exported-to-the-package functions operate on an exclusive range
// (lhs, rhs): lhs and rhs are themselves never valid indices into values —
// only the indices strictly between them are in scope — and the values
// slice is assumed already sorted ascending over that range by the
// comparator implied by Value.Compare. Callers seed the outermost probe
// with lhs=-1, rhs=len(values).

// binarySearchBound narrows the exclusive range (lhs, rhs) to the adjacent
// pair straddling pred's false-to-true transition, assumed monotonic over
// the range: pred(lhs) would be false and pred(rhs) would be true. If pred
// is never true over the range, rhs converges to its original value with
// lhs adjacent to it; if pred is never false, lhs converges to its
// original value with rhs adjacent to it.
func binarySearchBound(lhs, rhs int, pred func(int) bool) (int, int) {
	for lhs+1 < rhs {
		mid := lhs + (rhs-lhs)/2
		if pred(mid) {
			rhs = mid
		} else {
			lhs = mid
		}
	}
	return lhs, rhs
}

// narrowToRangeExclusive narrows (lhs, rhs) to (L,R) such that L is the
// last index with a value less than target (or lhs, if none) and R is the
// first index with a value greater than target (or rhs, if none) — the
// indices strictly between L and R are exactly the equal-to-target band.
// Used for an Equal filter/insert probe. Both bounds may move.
func narrowToRangeExclusive(values []Value, lhs, rhs int, target Value) (int, int) {
	l, _ := binarySearchBound(lhs, rhs, func(i int) bool {
		return values[i].Compare(target) != Less
	})
	_, r := binarySearchBound(lhs, rhs, func(i int) bool {
		return values[i].Compare(target) == Greater
	})
	return l, r
}

// narrowToUpperRangeExclusive narrows lhs (rhs is unchanged) to the last
// index whose value compares Less-or-Equal to target. Used for a
// Greater-than filter/probe; per spec.md §9's documented role reversal, a
// Greater comparison narrows the *lhs* bound, not rhs.
func narrowToUpperRangeExclusive(values []Value, lhs, rhs int, target Value) (int, int) {
	l, _ := binarySearchBound(lhs, rhs, func(i int) bool {
		return values[i].Compare(target) == Greater
	})
	return l, rhs
}

// narrowToLowerRangeExclusive narrows rhs (lhs is unchanged) to the first
// index whose value compares Greater-or-Equal to target. Used for a
// Less-than filter/probe; per spec.md §9, a Less comparison narrows the
// *rhs* bound, not lhs.
func narrowToLowerRangeExclusive(values []Value, lhs, rhs int, target Value) (int, int) {
	_, r := binarySearchBound(lhs, rhs, func(i int) bool {
		return values[i].Compare(target) != Less
	})
	return lhs, r
}
