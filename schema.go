package pbase

import (
	"golang.org/x/exp/constraints"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// NamedField is one column declaration: its name, position in the row image
// (declaration order), and storage type.
type NamedField struct {
	Name string
	FieldSchema
}

// IndexSchema declares one secondary index: a name and an ordered list of
// field names forming its composite sort key (leftmost field is the primary
// sort key, matching the greedy prefix-match planner in select.go).
type IndexSchema struct {
	Name   string
	Fields []string
}

// fieldInfo is the resolved, byte-offset-annotated view of a NamedField used
// internally by encode/decode and by the query planner.
type fieldInfo struct {
	schema   FieldSchema
	offset   int
	position int
}

// TableSchema describes one table's row layout and secondary indices. Field
// declaration order is preserved (it determines row byte layout and the
// materialised column order of select results); lookups by name go through
// a swiss.Map to keep the hot per-row field-resolution path off Go's builtin
// map, mirroring the teacher's choice of a flatter open-addressed table for
// hot lookups.
type TableSchema struct {
	Name    string
	Fields  []NamedField
	Indices []IndexSchema

	lookup  *swiss.Map[string, fieldInfo]
	rowSize int
}

// NewTableSchema builds a TableSchema from ordered field declarations and
// index declarations, computing byte offsets once up front.
func NewTableSchema(name string, fields []NamedField, indices []IndexSchema) (*TableSchema, error) {
	ts := &TableSchema{
		Name:    name,
		Fields:  fields,
		Indices: indices,
		lookup:  swiss.New[string, fieldInfo](uint32(len(fields))),
	}
	offset := 0
	for i, f := range fields {
		if _, ok := ts.lookup.Get(f.Name); ok {
			return nil, errors.Newf("pbase: duplicate field %q in table %q", f.Name, name)
		}
		ts.lookup.Put(f.Name, fieldInfo{schema: f.FieldSchema, offset: offset, position: i})
		offset += f.ByteSize()
	}
	ts.rowSize = offset

	seen := make(map[string]bool, len(indices))
	for _, idx := range indices {
		if seen[idx.Name] {
			return nil, errors.Newf("pbase: duplicate index %q in table %q", idx.Name, name)
		}
		seen[idx.Name] = true
		for _, fn := range idx.Fields {
			if !ts.hasField(fn) {
				return nil, errors.Mark(errors.Newf("pbase: index %q references unknown field %q", idx.Name, fn), ErrUnknownField)
			}
		}
	}
	return ts, nil
}

func (ts *TableSchema) hasField(name string) bool {
	_, ok := ts.lookup.Get(name)
	return ok
}

// fieldByName resolves a field's stored info, returning ErrUnknownField if
// undeclared.
func (ts *TableSchema) fieldByName(name string) (fieldInfo, error) {
	fi, ok := ts.lookup.Get(name)
	if !ok {
		return fieldInfo{}, errors.Mark(errors.Newf("pbase: field %q not declared on table %q", name, ts.Name), ErrUnknownField)
	}
	return fi, nil
}

// RowByteSize returns the fixed byte width of one data-file row.
func (ts *TableSchema) RowByteSize() int { return ts.rowSize }

// IndexByName resolves a declared index by name.
func (ts *TableSchema) IndexByName(name string) (IndexSchema, error) {
	for _, idx := range ts.Indices {
		if idx.Name == name {
			return idx, nil
		}
	}
	return IndexSchema{}, errors.Mark(errors.Newf("pbase: index %q not declared on table %q", name, ts.Name), ErrUnknownIndex)
}

// rowPointerSize is the fixed width, in bytes, of a row pointer: an 8-byte
// unsigned little-endian absolute offset into the data file (spec.md §9,
// resolved to 8 bytes — see DESIGN.md).
const rowPointerSize = 8

// IndexRowByteSize returns the fixed byte width of one entry in idx's index
// file: the sum of its key fields' byte sizes plus the trailing row pointer.
func (ts *TableSchema) IndexRowByteSize(idx IndexSchema) (int, error) {
	sizes := make([]int, 0, len(idx.Fields))
	for _, fn := range idx.Fields {
		fi, err := ts.fieldByName(fn)
		if err != nil {
			return 0, err
		}
		sizes = append(sizes, fi.schema.ByteSize())
	}
	return sumSizes(sizes) + rowPointerSize, nil
}

// sumSizes adds up a slice of byte-width integers. Generic over any integer
// constraint so it serves both the int-valued offset arithmetic here and any
// future narrower width used for on-disk size fields.
func sumSizes[T constraints.Integer](sizes []T) T {
	var total T
	for _, s := range sizes {
		total += s
	}
	return total
}

// EncodeRow renders values into a freshly allocated, zeroed row-sized
// buffer. Fields absent from values are left as NULL (all-zero bytes);
// fields present must match their declared FieldType.
func (ts *TableSchema) EncodeRow(values map[string]Value) ([]byte, error) {
	buf := make([]byte, ts.rowSize)
	for name, v := range values {
		fi, err := ts.fieldByName(name)
		if err != nil {
			return nil, err
		}
		if err := fi.schema.Encode(v, buf[fi.offset:]); err != nil {
			return nil, wrapf(err, "pbase: encoding field %q", name)
		}
	}
	return buf, nil
}

// DecodeRow reads every declared field out of a row-sized buffer into a
// name-keyed map, in declaration order of computation (map order is
// unspecified by Go, but callers needing order should use ts.Fields).
func (ts *TableSchema) DecodeRow(buf []byte) (map[string]Value, error) {
	if len(buf) != ts.rowSize {
		return nil, errors.Mark(errors.Newf("pbase: row buffer is %d bytes, want %d", len(buf), ts.rowSize), ErrInvalidTableSize)
	}
	out := make(map[string]Value, len(ts.Fields))
	for _, f := range ts.Fields {
		fi, err := ts.fieldByName(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := fi.schema.Decode(buf[fi.offset : fi.offset+fi.schema.ByteSize()])
		if err != nil {
			return nil, wrapf(err, "pbase: decoding field %q", f.Name)
		}
		out[f.Name] = v
	}
	return out, nil
}

// EncodeIndexRow renders one index-file entry: the index's key fields in
// declared order, followed by the 8-byte little-endian row pointer.
func (ts *TableSchema) EncodeIndexRow(idx IndexSchema, values map[string]Value, rowPointer uint64) ([]byte, error) {
	size, err := ts.IndexRowByteSize(idx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	offset := 0
	for _, fn := range idx.Fields {
		fi, err := ts.fieldByName(fn)
		if err != nil {
			return nil, err
		}
		v, ok := values[fn]
		if !ok {
			v = Null()
		}
		if err := fi.schema.Encode(v, buf[offset:]); err != nil {
			return nil, wrapf(err, "pbase: encoding index key field %q", fn)
		}
		offset += fi.schema.ByteSize()
	}
	putUint64LE(buf[offset:], rowPointer)
	return buf, nil
}

// DecodeIndexKey reads idx's key fields (not the trailing row pointer) out
// of one index-row buffer, in idx.Fields order.
func (ts *TableSchema) DecodeIndexKey(idx IndexSchema, buf []byte) ([]Value, error) {
	vals := make([]Value, len(idx.Fields))
	offset := 0
	for i, fn := range idx.Fields {
		fi, err := ts.fieldByName(fn)
		if err != nil {
			return nil, err
		}
		v, err := fi.schema.Decode(buf[offset : offset+fi.schema.ByteSize()])
		if err != nil {
			return nil, err
		}
		vals[i] = v
		offset += fi.schema.ByteSize()
	}
	return vals, nil
}

// DecodeIndexRowPointer reads the trailing 8-byte row pointer out of one
// index-row buffer.
func (ts *TableSchema) DecodeIndexRowPointer(idx IndexSchema, buf []byte) (uint64, error) {
	size, err := ts.IndexRowByteSize(idx)
	if err != nil {
		return 0, err
	}
	if len(buf) != size {
		return 0, errors.Newf("pbase: index row buffer is %d bytes, want %d", len(buf), size)
	}
	return getUint64LE(buf[size-rowPointerSize:]), nil
}
