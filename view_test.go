package pbase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMultiTableViewFromAllSelection(t *testing.T) {
	v := newMultiTableView("orders", 16, AllSelection(3))
	require.Equal(t, 3, v.Len())
	for i := 0; i < 3; i++ {
		pos, err := v.rowPos(i, "orders")
		require.NoError(t, err)
		require.Equal(t, uint64(i*16), pos)
	}
}

func TestNewMultiTableViewFromListSelection(t *testing.T) {
	v := newMultiTableView("orders", 10, ListSelection([]int{2, 5}))
	require.Equal(t, 2, v.Len())
	pos, err := v.rowPos(0, "orders")
	require.NoError(t, err)
	require.Equal(t, uint64(20), pos)
	pos, err = v.rowPos(1, "orders")
	require.NoError(t, err)
	require.Equal(t, uint64(50), pos)
}

func TestRowPosUnknownTableErrors(t *testing.T) {
	v := newMultiTableView("orders", 10, AllSelection(1))
	_, err := v.rowPos(0, "customers")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestJoinGrowsViewAndDropsUnmatchedRows(t *testing.T) {
	v := newMultiTableView("orders", 10, AllSelection(3)) // offsets 0, 10, 20

	// row 0 matches two customers, row 1 matches none (dropped), row 2
	// matches one.
	candidates := [][]uint64{
		{100, 200},
		{},
		{300},
	}
	joined, err := v.join("customers", candidates)
	require.NoError(t, err)
	require.Equal(t, 3, joined.Len())

	ordersOff, err := joined.rowPos(0, "orders")
	require.NoError(t, err)
	require.Equal(t, uint64(0), ordersOff)
	custOff, err := joined.rowPos(0, "customers")
	require.NoError(t, err)
	require.Equal(t, uint64(100), custOff)

	ordersOff, err = joined.rowPos(2, "orders")
	require.NoError(t, err)
	require.Equal(t, uint64(20), ordersOff)
	custOff, err = joined.rowPos(2, "customers")
	require.NoError(t, err)
	require.Equal(t, uint64(300), custOff)
}

func TestJoinRejectsDuplicateTable(t *testing.T) {
	v := newMultiTableView("orders", 10, AllSelection(1))
	_, err := v.join("orders", [][]uint64{{0}})
	require.Error(t, err)
}

func TestJoinRejectsMismatchedCandidateLength(t *testing.T) {
	v := newMultiTableView("orders", 10, AllSelection(2))
	_, err := v.join("customers", [][]uint64{{0}})
	require.Error(t, err)
}
