package pbase

import (
	"github.com/cockroachdb/errors"
	"github.com/edsrzf/mmap-go"

	"github.com/pbase/pbase/internal/logging"
	"github.com/pbase/pbase/internal/metrics"
)

// tableContext bundles everything the executor needs about one logical
// (aliased) table participating in a query: its schema, its current data
// bytes, and the row size derived from the schema.
type tableContext struct {
	alias    string
	physical string
	schema   *TableSchema
	data     mmap.MMap
	rowSize  int
}

// selectQueryExecutor runs one SelectQuery to completion: resolving
// schemas and data for every participating table, filtering each table
// independently where possible, growing a MultiTableView through the
// query's joins, applying any remaining cross-row/cross-table filters, and
// materialising the surviving view rows into a Result.
type selectQueryExecutor struct {
	opener  *Opener
	query   SelectQuery
	log     logging.Logger
	metrics *metrics.Metrics

	tables map[string]*tableContext // alias -> context, in no particular order
}

func newSelectQueryExecutor(opener *Opener, query SelectQuery, log logging.Logger, m *metrics.Metrics) *selectQueryExecutor {
	if log == nil {
		log = logging.Noop()
	}
	return &selectQueryExecutor{opener: opener, query: query, log: log, metrics: m, tables: map[string]*tableContext{}}
}

// Result is the flattened output of a select: one row map per surviving
// view row, keyed "<alias>.<field>", plus the column order to render them
// in (main table's fields, then each joined table's fields, in join
// order — both in schema declaration order within a table).
type Result struct {
	Columns []string
	Rows    []map[string]Value
}

func (e *selectQueryExecutor) run() (*Result, error) {
	defer func() {
		for _, tc := range e.tables {
			if len(tc.data) > 0 {
				_ = tc.data.Unmap()
			}
		}
	}()
	if err := e.loadTables(); err != nil {
		return nil, err
	}

	singleFilters, multiFilters, err := e.classifyFilters()
	if err != nil {
		return nil, err
	}

	selections := make(map[string]Selection, len(e.tables))
	for alias, tc := range e.tables {
		sel, err := e.filterSingleTable(tc, singleFilters[alias])
		if err != nil {
			return nil, errors.Wrapf(err, "pbase: filtering table %q", alias)
		}
		selections[alias] = sel
	}

	view := newMultiTableView(e.query.From, e.tables[e.query.From].rowSize, selections[e.query.From])

	for _, join := range e.query.Joins {
		alias := join.Alias()
		tc := e.tables[alias]
		candidates, err := e.joinCandidates(view, join, tc, selections[alias])
		if err != nil {
			return nil, errors.Wrapf(err, "pbase: joining table %q", alias)
		}
		view, err = view.join(alias, candidates)
		if err != nil {
			return nil, err
		}
	}

	view, err = e.applyMultiFilters(view, multiFilters)
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.Selects.Inc()
	}
	return e.materialize(view)
}

// loadTables populates e.tables for the From table and every joined alias,
// mapping each physical table's schema and current data bytes.
func (e *selectQueryExecutor) loadTables() error {
	if err := e.loadTable(e.query.From, e.query.From); err != nil {
		return err
	}
	for _, join := range e.query.Joins {
		if err := e.loadTable(join.Alias(), join.Table); err != nil {
			return err
		}
	}
	return nil
}

func (e *selectQueryExecutor) loadTable(alias, physical string) error {
	if _, ok := e.tables[alias]; ok {
		return nil
	}
	schema, err := e.opener.ReadSchema(physical)
	if err != nil {
		return err
	}
	data, err := e.opener.MapTable(physical)
	if err != nil {
		return err
	}
	if schema.RowByteSize() > 0 && len(data)%schema.RowByteSize() != 0 {
		return errors.Mark(errors.Newf("pbase: data file for %q is not a multiple of row size %d", physical, schema.RowByteSize()), ErrInvalidTableSize)
	}
	e.tables[alias] = &tableContext{alias: alias, physical: physical, schema: schema, data: data, rowSize: schema.RowByteSize()}
	return nil
}

// classifyFilters splits the query's filters into ones that can be decided
// against a single table's rows independently (grouped by that table's
// alias) and ones that require two rows together.
func (e *selectQueryExecutor) classifyFilters() (map[string][]RowFilter, []RowFilter, error) {
	single := map[string][]RowFilter{}
	var multi []RowFilter
	for _, f := range e.query.Filters {
		if _, ok := e.tables[f.Table]; !ok {
			return nil, nil, errors.Mark(errors.Newf("pbase: filter references unknown table %q", f.Table), ErrUnknownTable)
		}
		switch classifySource(f).Kind {
		case SourceSingle:
			single[f.Table] = append(single[f.Table], f)
		case SourceMulti:
			if _, ok := e.tables[f.RHS.(ReferenceRHS).Ref.Table]; !ok {
				return nil, nil, errors.Mark(errors.Newf("pbase: filter references unknown table %q", f.RHS.(ReferenceRHS).Ref.Table), ErrUnknownTable)
			}
			multi = append(multi, f)
		}
	}
	return single, multi, nil
}

// rowCount returns how many full rows are present in tc's current data.
func (tc *tableContext) rowCount() int {
	if tc.rowSize == 0 {
		return 0
	}
	return len(tc.data) / tc.rowSize
}

func (tc *tableContext) decodeRowAt(pos int) (map[string]Value, error) {
	start := pos * tc.rowSize
	return tc.schema.DecodeRow(tc.data[start : start+tc.rowSize])
}

// filterSingleTable applies every Single-sourced filter on tc's own rows,
// preferring a greedily-chosen index narrowing step over a full linear
// scan wherever the filter set has a usable prefix match against a
// declared index.
func (e *selectQueryExecutor) filterSingleTable(tc *tableContext, filters []RowFilter) (Selection, error) {
	if len(filters) == 0 {
		return AllSelection(tc.rowCount()), nil
	}

	filterFields := map[string]bool{}
	filtersByField := map[string]RowFilter{}
	for _, f := range filters {
		filterFields[f.Field] = true
		if _, ok := filtersByField[f.Field]; !ok {
			filtersByField[f.Field] = f
		}
	}

	idx, score := indexForQuery(tc.schema, filterFields)
	if score == 0 {
		if e.metrics != nil {
			e.metrics.LinearScans.Inc()
		}
		return e.scanFilter(tc, AllSelection(tc.rowCount()), filters)
	}

	if e.metrics != nil {
		e.metrics.IndexScans.Inc()
	}
	e.log.Debugf("table %s: using index %s (score %d) for filters %v", tc.alias, idx.Name, score, filterFields)

	indexBytes, err := e.opener.MapIndex(tc.physical, idx.Name)
	if err != nil {
		return Selection{}, err
	}
	if len(indexBytes) > 0 {
		defer indexBytes.Unmap()
	}
	rowSize, err := tc.schema.IndexRowByteSize(idx)
	if err != nil {
		return Selection{}, err
	}
	if rowSize == 0 || len(indexBytes)%rowSize != 0 {
		return Selection{}, errors.Mark(errors.Newf("pbase: index %q for %q is not a multiple of row size", idx.Name, tc.physical), ErrInvalidTableSize)
	}
	n := len(indexBytes) / rowSize

	lhs, rhs := -1, n
	usedFields := map[string]bool{}
	for j := 0; j < score; j++ {
		field := idx.Fields[j]
		filter := filtersByField[field]
		usedFields[field] = true
		vals, err := columnValues(tc.schema, idx, indexBytes, rowSize, j, n)
		if err != nil {
			return Selection{}, err
		}
		target := filter.RHS.(LiteralRHS).Value
		switch filter.Op {
		case Equal:
			lhs, rhs = narrowToRangeExclusive(vals, lhs, rhs, target)
		case Greater:
			lhs, rhs = narrowToUpperRangeExclusive(vals, lhs, rhs, target)
		case Less:
			lhs, rhs = narrowToLowerRangeExclusive(vals, lhs, rhs, target)
		default:
			return Selection{}, errors.Newf("pbase: unknown filter operator %d", int(filter.Op))
		}
	}

	positions := make([]int, 0, rhs-lhs-1)
	for i := lhs + 1; i < rhs; i++ {
		ptr, err := tc.schema.DecodeIndexRowPointer(idx, indexBytes[i*rowSize:(i+1)*rowSize])
		if err != nil {
			return Selection{}, err
		}
		positions = append(positions, int(ptr)/tc.rowSize)
	}

	var remaining []RowFilter
	for _, f := range filters {
		if !usedFields[f.Field] || filtersByField[f.Field] != f {
			remaining = append(remaining, f)
		}
	}
	if len(remaining) == 0 {
		return ListSelection(positions), nil
	}
	return e.scanFilter(tc, ListSelection(positions), remaining)
}

// scanFilter linearly re-checks every row in sel against filters (all
// Single-sourced, literal-valued), keeping only rows that satisfy all of
// them.
func (e *selectQueryExecutor) scanFilter(tc *tableContext, sel Selection, filters []RowFilter) (Selection, error) {
	var kept []int
	it := sel.Iterator()
	for pos, ok := it.Next(); ok; pos, ok = it.Next() {
		row, err := tc.decodeRowAt(pos)
		if err != nil {
			return Selection{}, err
		}
		pass := true
		for _, f := range filters {
			v, ok := row[f.Field]
			if !ok {
				return Selection{}, errors.Mark(errors.Newf("pbase: field %q not present on table %q", f.Field, tc.alias), ErrUnknownField)
			}
			target := f.RHS.(LiteralRHS).Value
			if v.Compare(target) != f.Op {
				pass = false
				break
			}
		}
		if pass {
			kept = append(kept, pos)
		}
	}
	return ListSelection(kept), nil
}

// indexForQuery greedily picks the declared index whose leading fields
// match the largest prefix of filterFields, returning its score (the
// length of that matched prefix). A score of zero means no index can help
// and the caller should fall back to a full linear scan.
func indexForQuery(schema *TableSchema, filterFields map[string]bool) (IndexSchema, int) {
	var best IndexSchema
	bestScore := 0
	for _, idx := range schema.Indices {
		score := indexScore(idx, filterFields)
		if score > bestScore {
			best = idx
			bestScore = score
		}
	}
	return best, bestScore
}

func indexScore(idx IndexSchema, filterFields map[string]bool) int {
	score := 0
	for _, f := range idx.Fields {
		if !filterFields[f] {
			break
		}
		score++
	}
	return score
}

// joinCandidates computes, for every current row of view, the byte offsets
// in tc's data that satisfy join's equality contract and remain within
// tc's own single-table selection.
func (e *selectQueryExecutor) joinCandidates(view *multiTableView, join JoinSpec, tc *tableContext, tcSelection Selection) ([][]uint64, error) {
	refAlias := join.Contract.Reference.Table
	refField := join.Contract.Reference.Field
	joinField := join.Contract.JoinedTableField.Field

	refCtx, ok := e.tables[refAlias]
	if !ok {
		return nil, errors.Mark(errors.Newf("pbase: join references unknown table %q", refAlias), ErrUnknownTable)
	}

	eligible := tcSelection.Positions()

	out := make([][]uint64, view.Len())
	for i := 0; i < view.Len(); i++ {
		refOffset, err := view.rowPos(i, refAlias)
		if err != nil {
			return nil, err
		}
		refRow, err := refCtx.schema.DecodeRow(refCtx.data[refOffset : refOffset+uint64(refCtx.rowSize)])
		if err != nil {
			return nil, err
		}
		refValue, ok := refRow[refField]
		if !ok {
			return nil, errors.Mark(errors.Newf("pbase: field %q not present on table %q", refField, refAlias), ErrUnknownField)
		}

		var matches []uint64
		for _, pos := range eligible {
			row, err := tc.decodeRowAt(pos)
			if err != nil {
				return nil, err
			}
			v, ok := row[joinField]
			if !ok {
				return nil, errors.Mark(errors.Newf("pbase: field %q not present on table %q", joinField, tc.alias), ErrUnknownField)
			}
			if v.Compare(refValue) == Equal {
				matches = append(matches, uint64(pos*tc.rowSize))
			}
		}
		out[i] = matches
	}
	return out, nil
}

// applyMultiFilters evaluates every cross-row/cross-table reference filter
// against each surviving view row, keeping only rows that satisfy all of
// them.
func (e *selectQueryExecutor) applyMultiFilters(view *multiTableView, filters []RowFilter) (*multiTableView, error) {
	if len(filters) == 0 {
		return view, nil
	}
	var kept [][]uint64
	for i := 0; i < view.Len(); i++ {
		pass := true
		for _, f := range filters {
			ok, err := e.evalMultiFilter(view, i, f)
			if err != nil {
				return nil, err
			}
			if !ok {
				pass = false
				break
			}
		}
		if pass {
			row := make([]uint64, len(view.tables))
			for alias, col := range view.tables {
				offset, err := view.rowPos(i, alias)
				if err != nil {
					return nil, err
				}
				row[col] = offset
			}
			kept = append(kept, row)
		}
	}
	return &multiTableView{rows: kept, tables: view.tables}, nil
}

func (e *selectQueryExecutor) evalMultiFilter(view *multiTableView, viewRow int, f RowFilter) (bool, error) {
	lhsCtx := e.tables[f.Table]
	lhsOffset, err := view.rowPos(viewRow, f.Table)
	if err != nil {
		return false, err
	}
	lhsRow, err := lhsCtx.schema.DecodeRow(lhsCtx.data[lhsOffset : lhsOffset+uint64(lhsCtx.rowSize)])
	if err != nil {
		return false, err
	}
	lhsVal, ok := lhsRow[f.Field]
	if !ok {
		return false, errors.Mark(errors.Newf("pbase: field %q not present on table %q", f.Field, f.Table), ErrUnknownField)
	}

	ref := f.RHS.(ReferenceRHS).Ref
	rhsCtx := e.tables[ref.Table]
	rhsOffset, err := view.rowPos(viewRow, ref.Table)
	if err != nil {
		return false, err
	}
	rhsRow, err := rhsCtx.schema.DecodeRow(rhsCtx.data[rhsOffset : rhsOffset+uint64(rhsCtx.rowSize)])
	if err != nil {
		return false, err
	}
	rhsVal, ok := rhsRow[ref.Field]
	if !ok {
		return false, errors.Mark(errors.Newf("pbase: field %q not present on table %q", ref.Field, ref.Table), ErrUnknownField)
	}

	return lhsVal.Compare(rhsVal) == f.Op, nil
}

// materialize renders every surviving view row into a field map, in the
// order: the From table's fields (in schema order), then each joined
// table's fields (in schema order), in join order.
func (e *selectQueryExecutor) materialize(view *multiTableView) (*Result, error) {
	type aliasOrder struct {
		alias  string
		schema *TableSchema
	}
	order := []aliasOrder{{alias: e.query.From, schema: e.tables[e.query.From].schema}}
	for _, join := range e.query.Joins {
		order = append(order, aliasOrder{alias: join.Alias(), schema: e.tables[join.Alias()].schema})
	}

	var columns []string
	for _, ao := range order {
		for _, f := range ao.schema.Fields {
			columns = append(columns, ao.alias+"."+f.Name)
		}
	}

	rows := make([]map[string]Value, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		out := make(map[string]Value, len(columns))
		for _, ao := range order {
			offset, err := view.rowPos(i, ao.alias)
			if err != nil {
				return nil, err
			}
			tc := e.tables[ao.alias]
			row, err := tc.schema.DecodeRow(tc.data[offset : offset+uint64(tc.rowSize)])
			if err != nil {
				return nil, err
			}
			for name, v := range row {
				out[ao.alias+"."+name] = v
			}
		}
		rows = append(rows, out)
	}

	return &Result{Columns: columns, Rows: rows}, nil
}
