package pbase

import "github.com/cockroachdb/errors"

// multiTableView is the working set the select executor builds while
// applying joins: one row per surviving combination of participating
// tables' rows, each recorded as an absolute byte offset into that table's
// data file (stable, since data files only ever grow by append). A table
// name resolves to a column index via tables, so callers address a row's
// per-table offset without caring about join application order.
type multiTableView struct {
	rows   [][]uint64
	tables map[string]int
}

// newMultiTableView seeds a view from one table's selected rows.
func newMultiTableView(tableName string, rowSize int, sel Selection) *multiTableView {
	rows := make([][]uint64, 0, sel.Len())
	it := sel.Iterator()
	for pos, ok := it.Next(); ok; pos, ok = it.Next() {
		rows = append(rows, []uint64{uint64(pos) * uint64(rowSize)})
	}
	return &multiTableView{
		rows:   rows,
		tables: map[string]int{tableName: 0},
	}
}

// Len reports how many view rows currently survive.
func (v *multiTableView) Len() int { return len(v.rows) }

// HasTable reports whether tableName already participates in this view.
func (v *multiTableView) HasTable(tableName string) bool {
	_, ok := v.tables[tableName]
	return ok
}

// rowPos returns the byte offset viewRow records for tableName.
func (v *multiTableView) rowPos(viewRow int, tableName string) (uint64, error) {
	col, ok := v.tables[tableName]
	if !ok {
		return 0, errors.Mark(errors.Newf("pbase: table %q not present in this view", tableName), ErrUnknownTable)
	}
	if viewRow < 0 || viewRow >= len(v.rows) {
		return 0, errors.Newf("pbase: view row %d out of range (len=%d)", viewRow, len(v.rows))
	}
	return v.rows[viewRow][col], nil
}

// join grows the view by one column for tableName. candidates is indexed
// parallel to the view's current rows: candidates[i] lists every byte
// offset in tableName's data file that inner-joins with view row i (an
// empty slice drops that row entirely, implementing inner- not outer-join
// semantics). The caller (select.go) computes candidates using whatever
// index or scan strategy applies; this method only performs the structural
// cross-product-and-filter.
func (v *multiTableView) join(tableName string, candidates [][]uint64) (*multiTableView, error) {
	if v.HasTable(tableName) {
		return nil, errors.Newf("pbase: table %q already joined into this view", tableName)
	}
	if len(candidates) != len(v.rows) {
		return nil, errors.Newf("pbase: join candidate count %d does not match view row count %d", len(candidates), len(v.rows))
	}
	newRows := make([][]uint64, 0, len(v.rows))
	for i, existing := range v.rows {
		for _, offset := range candidates[i] {
			grown := make([]uint64, len(existing)+1)
			copy(grown, existing)
			grown[len(existing)] = offset
			newRows = append(newRows, grown)
		}
	}
	newTables := make(map[string]int, len(v.tables)+1)
	for name, col := range v.tables {
		newTables[name] = col
	}
	newTables[tableName] = len(v.tables)
	return &multiTableView{rows: newRows, tables: newTables}, nil
}
