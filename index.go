package pbase

import "github.com/cockroachdb/errors"

// decodeIndexFieldAt decodes just the fieldPos'th key field of row i in an
// index file's bytes, without materialising the whole row.
func decodeIndexFieldAt(ts *TableSchema, idx IndexSchema, indexBytes []byte, rowSize int, fieldPos, row int) (Value, error) {
	fi, err := ts.fieldByName(idx.Fields[fieldPos])
	if err != nil {
		return Value{}, err
	}
	base := row * rowSize
	offset := 0
	for j := 0; j < fieldPos; j++ {
		prev, err := ts.fieldByName(idx.Fields[j])
		if err != nil {
			return Value{}, err
		}
		offset += prev.schema.ByteSize()
	}
	start := base + offset
	return fi.schema.Decode(indexBytes[start : start+fi.schema.ByteSize()])
}

// columnValues materialises the fieldPos'th key field of each of the first n
// rows as a dense []Value indexed from 0, matching the shape
// narrowToRangeExclusive and friends expect.
func columnValues(ts *TableSchema, idx IndexSchema, indexBytes []byte, rowSize, fieldPos, n int) ([]Value, error) {
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		v, err := decodeIndexFieldAt(ts, idx, indexBytes, rowSize, fieldPos, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// findInsertPosition locates where a new entry with the given composite key
// belongs in idx's sorted index file, narrowing the candidate range one key
// field at a time using Equal semantics at each field (an insert always
// matches the full composite key exactly at the position it settles into).
// Returns the row index (not byte offset) the new entry should occupy.
func findInsertPosition(ts *TableSchema, idx IndexSchema, indexBytes []byte, key []Value) (int, error) {
	if len(idx.Fields) != len(key) {
		return 0, errors.Newf("pbase: index %q has %d key fields, got %d key values", idx.Name, len(idx.Fields), len(key))
	}
	rowSize, err := ts.IndexRowByteSize(idx)
	if err != nil {
		return 0, err
	}
	if rowSize == 0 {
		return 0, errors.Newf("pbase: index %q has zero row size", idx.Name)
	}
	if len(indexBytes)%rowSize != 0 {
		return 0, errors.Mark(errors.Newf("pbase: index file for %q is not a multiple of row size %d", idx.Name, rowSize), ErrInvalidTableSize)
	}
	n := len(indexBytes) / rowSize
	lhs, rhs := -1, n
	for j := range idx.Fields {
		vals, err := columnValues(ts, idx, indexBytes, rowSize, j, n)
		if err != nil {
			return 0, err
		}
		lhs, rhs = narrowToRangeExclusive(vals, lhs, rhs, key[j])
	}
	return rhs, nil
}

// spliceInsert returns a new byte slice equal to buf with entry inserted as
// row pos (0-based, row-sized units of rowSize). It performs no I/O; the
// caller is responsible for committing the result atomically (opener.go).
func spliceInsert(buf []byte, pos, rowSize int, entry []byte) []byte {
	out := make([]byte, len(buf)+len(entry))
	cut := pos * rowSize
	copy(out, buf[:cut])
	copy(out[cut:], entry)
	copy(out[cut+len(entry):], buf[cut:])
	return out
}
