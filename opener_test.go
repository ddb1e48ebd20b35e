package pbase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenerSchemaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	ts := testTableSchema(t)
	require.NoError(t, opener.WriteSchema(ts))

	got, err := opener.ReadSchema("users")
	require.NoError(t, err)
	require.Equal(t, ts.Name, got.Name)
	require.Equal(t, ts.RowByteSize(), got.RowByteSize())
	require.Len(t, got.Fields, len(ts.Fields))
	require.Len(t, got.Indices, len(ts.Indices))
	for i, f := range ts.Fields {
		require.Equal(t, f.Name, got.Fields[i].Name)
		require.Equal(t, f.Type, got.Fields[i].Type)
	}
}

func TestOpenerWriteSchemaRejectsDuplicate(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	ts := testTableSchema(t)
	require.NoError(t, opener.WriteSchema(ts))
	err = opener.WriteSchema(ts)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTableAlreadyExists)
}

func TestOpenerReadSchemaMissingTable(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	_, err = opener.ReadSchema("ghost")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTableNotExist)
}

func TestOpenerAppendRowReturnsGrowingOffsets(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	p1, err := opener.AppendRow("orders", []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, uint64(0), p1)

	p2, err := opener.AppendRow("orders", []byte{5, 6, 7, 8})
	require.NoError(t, err)
	require.Equal(t, uint64(4), p2)
}

func TestOpenerIndexAtomicRewrite(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	require.NoError(t, opener.WriteIndexAtomic("orders", "by_id", []byte{1, 2, 3}))
	got, err := opener.ReadIndexBytes("orders", "by_id")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, opener.WriteIndexAtomic("orders", "by_id", []byte{9, 9}))
	got, err = opener.ReadIndexBytes("orders", "by_id")
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9}, got)
}

func TestOpenerReadIndexBytesMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	got, err := opener.ReadIndexBytes("orders", "by_id")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWriterLockRejectsSecondAcquirer(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	guard, err := opener.AcquireWriterLock()
	require.NoError(t, err)
	defer guard.Release()

	_, err = opener.AcquireWriterLock()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConcurrentWriter)
}

func TestWriterLockReleasedAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	opener, err := NewOpener(dir)
	require.NoError(t, err)

	guard, err := opener.AcquireWriterLock()
	require.NoError(t, err)
	require.NoError(t, guard.Release())

	guard2, err := opener.AcquireWriterLock()
	require.NoError(t, err)
	require.NoError(t, guard2.Release())
}
