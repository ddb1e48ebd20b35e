package pbase

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors. Callers should use errors.Is against these rather than
// matching error strings; every returned error is wrapped with
// github.com/cockroachdb/errors and marked with the relevant sentinel via
// errors.Mark so the mark survives wrapping.
var (
	// ErrTableNotExist is returned when an operation names a table that has
	// no schema file in the opener's directory.
	ErrTableNotExist = errors.New("pbase: table does not exist")

	// ErrTableAlreadyExists is returned by CreateTable when a schema file
	// for the table already exists.
	ErrTableAlreadyExists = errors.New("pbase: table already exists")

	// ErrUnknownField is returned when a query or insert names a field not
	// declared in the table's schema.
	ErrUnknownField = errors.New("pbase: unknown field")

	// ErrUnknownIndex is returned when a query plan references an index
	// name not declared in the table's schema.
	ErrUnknownIndex = errors.New("pbase: unknown index")

	// ErrUnknownTable is returned when a query references a table not
	// present in its own FROM/joins.
	ErrUnknownTable = errors.New("pbase: unknown table reference")

	// ErrIncomparableValues is returned (wrapping a recovered panic) when a
	// query attempts to compare two non-NULL values of different tags.
	ErrIncomparableValues = errors.New("pbase: cannot compare values of different tags")

	// ErrInvalidTableSize is returned when a data or index file's length is
	// not an exact multiple of its row size — a structural integrity
	// violation, not a query-validity error.
	ErrInvalidTableSize = errors.New("pbase: file size is not a multiple of row size")

	// ErrConcurrentWriter is returned when a second writer in this process
	// tries to acquire the single-writer advisory lock already held by
	// another open PBase handle on the same directory.
	ErrConcurrentWriter = errors.New("pbase: another writer already holds the directory lock")

	// ErrCorruptIndex is not returned by any operation in this package:
	// PBase.Verify reports checksum mismatches through integrity.Report
	// rather than as an error, and an index file whose size is inconsistent
	// with its declared row width yields ErrInvalidTableSize.
	ErrCorruptIndex = errors.New("pbase: index file failed integrity verification")
)

// markTableNotExist marks err so errors.Is(_, ErrTableNotExist) succeeds
// regardless of wrap depth.
func markTableNotExist(err error) error {
	return errors.Mark(err, ErrTableNotExist)
}

func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
