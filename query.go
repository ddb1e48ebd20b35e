package pbase

import "github.com/cockroachdb/errors"

// This file declares the query AST: the shapes a caller builds up to ask
// PBase to create a table, insert a row, or run a select. None of it is
// produced by a parser — callers construct these values directly (spec.md
// §1 excludes a toy-SQL lexer/parser from scope).

// FieldSelector names one column, qualified by the table it belongs to.
// Used both for join contracts and for the right-hand side of a filter that
// references another row instead of a literal value.
type FieldSelector struct {
	Table string
	Field string
}

// FilterRHS is the right-hand side of a RowFilter: either a literal Value
// or a reference to another row's field (same table, different row, or a
// different table entirely).
type FilterRHS interface {
	filterRHS()
}

// LiteralRHS compares a field against a fixed Value.
type LiteralRHS struct {
	Value Value
}

func (LiteralRHS) filterRHS() {}

// ReferenceRHS compares a field against another field, evaluated per
// candidate row/view-row rather than once up front.
type ReferenceRHS struct {
	Ref FieldSelector
}

func (ReferenceRHS) filterRHS() {}

// RowFilter is one predicate: "field <op> rhs", where rhs is either a
// literal or a reference to another field (possibly on another table, or
// the same table compared cross-row).
type RowFilter struct {
	Table string // table the filtered field belongs to
	Field string
	Op    Ordering
	RHS   FilterRHS
}

// SourceKind distinguishes a filter that can be evaluated against one
// table's rows independently (Single) from one that requires two rows —
// possibly from two different tables, possibly the same table twice
// (Multi) — to be evaluated together.
type SourceKind int

const (
	SourceSingle SourceKind = iota
	SourceMulti
)

// FilterSource classifies a RowFilter by which table(s) it needs in scope
// to be evaluated. For a Multi source the two table names are canonically
// ordered (lexically) so that two filters referencing the same table pair
// in either direction hash and compare equal.
type FilterSource struct {
	Kind   SourceKind
	TableA string
	TableB string // empty for Single
}

// classifySource derives filter's FilterSource.
func classifySource(filter RowFilter) FilterSource {
	switch rhs := filter.RHS.(type) {
	case LiteralRHS:
		return FilterSource{Kind: SourceSingle, TableA: filter.Table}
	case ReferenceRHS:
		a, b := filter.Table, rhs.Ref.Table
		if b < a {
			a, b = b, a
		}
		return FilterSource{Kind: SourceMulti, TableA: a, TableB: b}
	default:
		panic(errors.Newf("pbase: unknown FilterRHS implementation %T", filter.RHS))
	}
}

// JoinContract describes how one table is joined into a growing
// MultiTableView: joinedTableField is a column on the table being joined
// in, and reference is the column already present in the view that it must
// equal for a view row to survive the join.
type JoinContract struct {
	JoinedTableField FieldSelector
	Reference        FieldSelector
}

// JoinSpec pairs a table name with the contract used to join it in. A
// SelectQuery's Joins is a slice, not a map, so join application order
// (and therefore view growth order) is caller-controlled and reproducible.
// As, if set, is the logical name this table participates in the view and
// in FieldSelector/JoinContract references under — defaulting to Table
// when empty. Setting As lets the same physical table be joined to itself
// under a second logical name, the mechanism a cross-row same-table
// reference filter uses: join the table to itself, then filter on the
// relation between the two logical copies.
type JoinSpec struct {
	Table    string
	As       string
	Contract JoinContract
}

// Alias returns the logical name this join participates in the view
// under: As if set, otherwise Table.
func (j JoinSpec) Alias() string {
	if j.As != "" {
		return j.As
	}
	return j.Table
}

// SelectQuery asks for every field of From and every joined table, filtered
// by Filters, joined via Joins in order.
type SelectQuery struct {
	From    string
	Joins   []JoinSpec
	Filters []RowFilter
}

// InsertQuery supplies one row's values, keyed by field name, to insert
// into Table.
type InsertQuery struct {
	Table  string
	Values map[string]Value
}

// CreateTableQuery declares a brand new table's schema.
type CreateTableQuery struct {
	Name    string
	Fields  []NamedField
	Indices []IndexSchema
}
