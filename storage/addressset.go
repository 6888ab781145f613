// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package storage

import (
	"github.com/ethereum/go-ethereum/common"
)

// AddressSet represents a set of addresses
//
//	size is stored at position 0
//	members of the set are stored sequentially from 1 onward
//	a reverse mapping from address to slot lives in a sub-space
type AddressSet struct {
	backingStorage *Storage
	cachedMembers  map[common.Address]struct{}
	byAddress      *Storage
}

func OpenAddressSet(sto *Storage) *AddressSet {
	return &AddressSet{
		backingStorage: sto,
		cachedMembers:  make(map[common.Address]struct{}),
		byAddress:      sto.OpenSubStorage([]byte{0}),
	}
}

func (aset *AddressSet) Size() (uint64, error) {
	return aset.backingStorage.GetUint64ByUint64(0)
}

func (aset *AddressSet) IsMember(addr common.Address) (bool, error) {
	if _, cached := aset.cachedMembers[addr]; cached {
		return true, nil
	}
	slot, err := aset.byAddress.Get(common.BytesToHash(addr.Bytes()))
	if err != nil {
		return false, err
	}
	if slot != (common.Hash{}) {
		aset.cachedMembers[addr] = struct{}{}
		return true, nil
	}
	return false, nil
}

func (aset *AddressSet) AllMembers() ([]common.Address, error) {
	size, err := aset.Size()
	if err != nil {
		return nil, err
	}
	ret := make([]common.Address, size)
	for i := range ret {
		member, err := aset.backingStorage.GetByUint64(uint64(i + 1))
		if err != nil {
			return nil, err
		}
		ret[i] = common.BytesToAddress(member.Bytes())
	}
	return ret, nil
}

func (aset *AddressSet) Add(addr common.Address) error {
	present, err := aset.IsMember(addr)
	if present || err != nil {
		return err
	}
	size, err := aset.Size()
	if err != nil {
		return err
	}
	slot := uintToHash(1 + size)
	addrAsHash := common.BytesToHash(addr.Bytes())
	if err := aset.byAddress.Set(addrAsHash, slot); err != nil {
		return err
	}
	if err := aset.backingStorage.Set(slot, addrAsHash); err != nil {
		return err
	}
	return aset.backingStorage.SetUint64ByUint64(0, size+1)
}

func (aset *AddressSet) Remove(addr common.Address) error {
	addrAsHash := common.BytesToHash(addr.Bytes())
	slotHash, err := aset.byAddress.Get(addrAsHash)
	if err != nil {
		return err
	}
	slot := slotHash.Big().Uint64()
	if slot == 0 {
		return nil
	}
	delete(aset.cachedMembers, addr)
	if err := aset.byAddress.Clear(addrAsHash); err != nil {
		return err
	}
	size, err := aset.Size()
	if err != nil {
		return err
	}
	if slot < size {
		// move the last member into the vacated slot to keep members contiguous
		last, err := aset.backingStorage.GetByUint64(size)
		if err != nil {
			return err
		}
		if err := aset.backingStorage.SetByUint64(slot, last); err != nil {
			return err
		}
		if err := aset.byAddress.Set(last, uintToHash(slot)); err != nil {
			return err
		}
	}
	if err := aset.backingStorage.SetByUint64(size, common.Hash{}); err != nil {
		return err
	}
	return aset.backingStorage.SetUint64ByUint64(0, size-1)
}
