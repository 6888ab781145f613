// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stretchr/testify/require"

	"github.com/ternchain/precompiles/util/testhelpers"
)

func TestAddressSet(t *testing.T) {
	aset := OpenAddressSet(NewMemoryBacked(testAccount, NewSystemBurner()))

	first := testhelpers.RandomAddress()
	second := testhelpers.RandomAddress()
	third := testhelpers.RandomAddress()

	size, err := aset.Size()
	require.NoError(t, err)
	require.Zero(t, size)

	require.NoError(t, aset.Add(first))
	require.NoError(t, aset.Add(second))
	require.NoError(t, aset.Add(third))
	require.NoError(t, aset.Add(second)) // re-adding is a no-op

	size, err = aset.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(3), size)

	isMember, err := aset.IsMember(second)
	require.NoError(t, err)
	require.True(t, isMember)

	isMember, err = aset.IsMember(testhelpers.RandomAddress())
	require.NoError(t, err)
	require.False(t, isMember)

	members, err := aset.AllMembers()
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Address{first, second, third}, members)

	// removing an interior member keeps the remainder contiguous
	require.NoError(t, aset.Remove(first))

	size, err = aset.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(2), size)

	isMember, err = aset.IsMember(first)
	require.NoError(t, err)
	require.False(t, isMember)

	members, err = aset.AllMembers()
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Address{second, third}, members)

	// the moved member must still be removable by address
	require.NoError(t, aset.Remove(third))
	isMember, err = aset.IsMember(third)
	require.NoError(t, err)
	require.False(t, isMember)

	members, err = aset.AllMembers()
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Address{second}, members)
}
