package pbase

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// FieldType identifies the storage type of a column. It carries no runtime
// attributes beyond the tag; byte size is determined entirely by the tag.
type FieldType int

const (
	// FieldTypeI32 is a signed 32-bit integer, stored little-endian in 4 bytes.
	FieldTypeI32 FieldType = iota + 1
	// FieldTypeU8 is an unsigned 8-bit integer, stored in 1 byte.
	FieldTypeU8
)

// ByteSize returns the fixed on-disk size of a value of this type.
func (t FieldType) ByteSize() int {
	switch t {
	case FieldTypeI32:
		return 4
	case FieldTypeU8:
		return 1
	default:
		panic(errors.Newf("pbase: unknown field type %d", int(t)))
	}
}

func (t FieldType) String() string {
	switch t {
	case FieldTypeI32:
		return "i32"
	case FieldTypeU8:
		return "u8"
	default:
		return "unknown"
	}
}

// FieldSchema declares the storage type of a single column.
type FieldSchema struct {
	Type FieldType
}

// ByteSize returns the fixed on-disk size of this field.
func (f FieldSchema) ByteSize() int {
	return f.Type.ByteSize()
}

// Encode writes value's byte form at offset zero of buf. NULL is a no-op,
// relying on buf having been pre-zeroed by the caller (spec.md §4.1).
func (f FieldSchema) Encode(value Value, buf []byte) error {
	if len(buf) < f.ByteSize() {
		return errors.Newf("pbase: encode buffer too small: have %d, need %d", len(buf), f.ByteSize())
	}
	switch value.kind {
	case kindNull:
		return nil
	case kindI32:
		if f.Type != FieldTypeI32 {
			return errors.Newf("pbase: cannot encode i32 value into %s field", f.Type)
		}
		binary.LittleEndian.PutUint32(buf, uint32(value.i32))
		return nil
	case kindU8:
		if f.Type != FieldTypeU8 {
			return errors.Newf("pbase: cannot encode u8 value into %s field", f.Type)
		}
		buf[0] = value.u8
		return nil
	default:
		return errors.Newf("pbase: unknown value kind %d", int(value.kind))
	}
}

// Decode reads exactly ByteSize() bytes from b and produces a Value. Note
// that this always decodes a concrete non-NULL value: NULL and zero are not
// distinguishable on disk (spec.md §3, §9 open question), so decode never
// produces Value{} on its own — callers that need "was this field provided"
// semantics must track that out of band.
func (f FieldSchema) Decode(b []byte) (Value, error) {
	if len(b) < f.ByteSize() {
		return Value{}, errors.Newf("pbase: decode buffer too small: have %d, need %d", len(b), f.ByteSize())
	}
	switch f.Type {
	case FieldTypeI32:
		return I32(int32(binary.LittleEndian.Uint32(b))), nil
	case FieldTypeU8:
		return U8(b[0]), nil
	default:
		return Value{}, errors.Newf("pbase: unknown field type %d", int(f.Type))
	}
}

type valueKind int

const (
	kindNull valueKind = iota
	kindI32
	kindU8
)

// Ordering is the result of comparing two Values: Less, Equal, or Greater.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Value is a tagged scalar: NULL, a signed 32-bit integer, or an unsigned
// 8-bit integer. It has a total order with NULL strictly less than any
// non-NULL value; non-NULL values only compare within the same tag.
type Value struct {
	kind valueKind
	i32  int32
	u8   uint8
}

// Null returns the NULL value.
func Null() Value { return Value{kind: kindNull} }

// I32 wraps a signed 32-bit integer value.
func I32(v int32) Value { return Value{kind: kindI32, i32: v} }

// U8 wraps an unsigned 8-bit integer value.
func U8(v uint8) Value { return Value{kind: kindU8, u8: v} }

// IsNull reports whether v is the NULL value.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Type reports the FieldType a non-NULL value would need to be encoded as.
// Panics if v is NULL, which has no type of its own.
func (v Value) Type() FieldType {
	switch v.kind {
	case kindI32:
		return FieldTypeI32
	case kindU8:
		return FieldTypeU8
	default:
		panic(errors.New("pbase: NULL value has no FieldType"))
	}
}

// Compare returns how v orders against other. NULL is strictly less than
// any non-NULL value. Comparing two non-NULL values of different tags is a
// programmer error (spec.md §4.1) and panics, matching the core's
// panic-class treatment of query-validity errors (spec.md §7).
func (v Value) Compare(other Value) Ordering {
	switch {
	case v.kind == kindNull && other.kind == kindNull:
		return Equal
	case v.kind == kindNull:
		return Less
	case other.kind == kindNull:
		return Greater
	case v.kind != other.kind:
		panic(errors.Mark(errors.Newf("pbase: cannot compare values of different tags: %v vs %v", v, other), ErrIncomparableValues))
	}
	switch v.kind {
	case kindI32:
		return cmpOrdered(v.i32, other.i32)
	case kindU8:
		return cmpOrdered(v.u8, other.u8)
	default:
		panic(errors.Newf("pbase: unknown value kind %d", int(v.kind)))
	}
}

func cmpOrdered[T int32 | uint8](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// Equal reports whether v and other compare Equal.
func (v Value) Equal(other Value) bool {
	return v.Compare(other) == Equal
}

func (v Value) String() string {
	switch v.kind {
	case kindNull:
		return "NULL"
	case kindI32:
		return itoa32(v.i32)
	case kindU8:
		return itoa32(int32(v.u8))
	default:
		return "<invalid>"
	}
}

func itoa32(v int32) string {
	neg := v < 0
	u := uint32(v)
	if neg {
		u = uint32(-v)
	}
	buf := [12]byte{}
	i := len(buf)
	if u == 0 {
		i--
		buf[i] = '0'
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
