// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/ternchain/precompiles/storage"
)

// AllowDebugPrecompiles enables the debug-only precompiles. Chains leave this
// off in production; tooling and tests flip it on.
var AllowDebugPrecompiles = false

// DebugPrecompile is a precompile wrapper for those not allowed in production
type DebugPrecompile struct {
	precompile TernPrecompile
}

// create a debug-only precompile wrapper
func debugOnly(address addr, impl TernPrecompile) (addr, TernPrecompile) {
	return address, &DebugPrecompile{impl}
}

func (wrapper *DebugPrecompile) Call(
	input []byte,
	precompileAddress addr,
	actingAsAddress addr,
	caller addr,
	value huge,
	readOnly bool,
	gasSupplied uint64,
	evm mech,
) ([]byte, uint64, error) {

	if AllowDebugPrecompiles {
		return wrapper.precompile.Call(
			input, precompileAddress, actingAsAddress, caller, value, readOnly, gasSupplied, evm,
		)
	}

	// take all gas and revert with a message decodable by any ABI-aware caller
	return errorReason(reasonDebugDisabled), 0, vm.ErrExecutionReverted
}

func (wrapper *DebugPrecompile) Precompile() Precompile {
	return wrapper.precompile.Precompile()
}

func (wrapper *DebugPrecompile) guarded() {}

// OwnerPrecompile is a precompile wrapper for those only chain owners may use
type OwnerPrecompile struct {
	precompile TernPrecompile
}

func ownerOnly(address addr, impl TernPrecompile) (addr, TernPrecompile) {
	return address, &OwnerPrecompile{impl}
}

func (wrapper *OwnerPrecompile) Call(
	input []byte,
	precompileAddress addr,
	actingAsAddress addr,
	caller addr,
	value huge,
	readOnly bool,
	gasSupplied uint64,
	evm mech,
) ([]byte, uint64, error) {

	// the check itself reads state, so the caller pays for it up front
	checkCost := 3 * storage.StorageReadCost
	if gasSupplied < checkCost {
		return errorReason(reasonOutOfGas), 0, vm.ErrExecutionReverted
	}
	gasSupplied -= checkCost

	burner := storage.NewSystemBurner()
	owners := openChainOwners(evm.StateDB, burner)
	isOwner, err := owners.IsMember(caller)
	if err != nil {
		return nil, 0, NewFatalError(err)
	}
	if !isOwner {
		return errorReason(reasonNotOwner), 0, vm.ErrExecutionReverted
	}

	return wrapper.precompile.Call(
		input, precompileAddress, actingAsAddress, caller, value, readOnly, gasSupplied, evm,
	)
}

func (wrapper *OwnerPrecompile) Precompile() Precompile {
	return wrapper.precompile.Precompile()
}

func (wrapper *OwnerPrecompile) guarded() {}
