package pbase

// Selection names a subset of a table's rows, by position in row-insertion
// order (0-based). It has exactly two shapes: every row (All), or an
// explicit, caller-ordered list of positions (List) — the shape a scan or
// index-narrowed range produces. Distinguishing the two up front lets the
// common "all rows" case skip building a positions slice at all.
type selectionKind int

const (
	selectionAll selectionKind = iota
	selectionList
)

type Selection struct {
	kind      selectionKind
	count     int
	positions []int
}

// AllSelection selects every row position in [0, count).
func AllSelection(count int) Selection {
	return Selection{kind: selectionAll, count: count}
}

// ListSelection selects exactly the given positions, in the given order.
func ListSelection(positions []int) Selection {
	return Selection{kind: selectionList, positions: positions}
}

// Len reports how many positions this selection contains.
func (s Selection) Len() int {
	if s.kind == selectionAll {
		return s.count
	}
	return len(s.positions)
}

// IsEmpty reports whether this selection contains no positions.
func (s Selection) IsEmpty() bool { return s.Len() == 0 }

// Positions materialises the selection as a plain slice of row positions.
func (s Selection) Positions() []int {
	if s.kind == selectionAll {
		out := make([]int, s.count)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return s.positions
}

// SelectionIterator walks a Selection's positions in order. The two
// Selection shapes are fused into a single closure chosen once at iterator
// construction, so consuming a Selection never dispatches on its kind per
// row.
type SelectionIterator struct {
	next func() (int, bool)
}

// Iterator returns a fresh iterator over s's positions.
func (s Selection) Iterator() *SelectionIterator {
	switch s.kind {
	case selectionAll:
		i := 0
		count := s.count
		return &SelectionIterator{next: func() (int, bool) {
			if i >= count {
				return 0, false
			}
			v := i
			i++
			return v, true
		}}
	default:
		i := 0
		positions := s.positions
		return &SelectionIterator{next: func() (int, bool) {
			if i >= len(positions) {
				return 0, false
			}
			v := positions[i]
			i++
			return v, true
		}}
	}
}

// Next advances the iterator, returning the next row position and true, or
// (0, false) once exhausted.
func (it *SelectionIterator) Next() (int, bool) {
	return it.next()
}
