// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"errors"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/ternchain/precompiles/storage"
)

// TernOwner precompile provides owners with tools for managing the chain.
// All calls to this precompile are authorized by the OwnerPrecompile wrapper,
// which ensures only a chain owner can access these methods.
type TernOwner struct {
	Address addr // 0x83
}

// chainOwnersKey is the sub-space of the owner precompile's account holding
// the owner set.
var chainOwnersKey = []byte{0}

func openChainOwners(statedb vm.StateDB, burner storage.Burner) *storage.AddressSet {
	root := storage.Open(statedb, TernOwnerAddress, burner)
	return storage.OpenAddressSet(root.OpenSubStorage(chainOwnersKey))
}

// contextBurner adapts a call's gas accounting to the storage layer.
type contextBurner struct {
	ctx *Context
}

func (b contextBurner) Burn(amount uint64) error {
	return b.ctx.Burn(amount)
}

func (b contextBurner) ReadOnly() bool {
	return b.ctx.ReadOnly()
}

func (con TernOwner) owners(c ctx, evm mech) *storage.AddressSet {
	return openChainOwners(evm.StateDB, contextBurner{c})
}

// AddChainOwner adds account as a chain owner
func (con TernOwner) AddChainOwner(c ctx, evm mech, newOwner addr) error {
	return con.owners(c, evm).Add(newOwner)
}

// RemoveChainOwner removes account from the list of chain owners
func (con TernOwner) RemoveChainOwner(c ctx, evm mech, ownerToRemove addr) error {
	owners := con.owners(c, evm)
	member, err := owners.IsMember(ownerToRemove)
	if err != nil {
		return err
	}
	if !member {
		return errors.New("tried to remove non-owner")
	}
	return owners.Remove(ownerToRemove)
}

// IsChainOwner checks if the account is a chain owner
func (con TernOwner) IsChainOwner(c ctx, evm mech, addr addr) (bool, error) {
	return con.owners(c, evm).IsMember(addr)
}

// GetAllChainOwners retrieves the list of chain owners
func (con TernOwner) GetAllChainOwners(c ctx, evm mech) ([]addr, error) {
	return con.owners(c, evm).AllMembers()
}
