// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import "errors"

// TernDebug exercises the event, revert, and panic machinery. Only chains
// started with AllowDebugPrecompiles can call it.
type TernDebug struct {
	Address addr // 0xff

	Basic        func(ctx, mech, bool, bytes32) error
	BasicGasCost func(bool, bytes32) (uint64, error)
	Mixed        func(ctx, mech, bool, bool, bytes32, addr, addr) error
	MixedGasCost func(bool, bool, bytes32, addr, addr) (uint64, error)

	CustomError func(uint64, string, bool) error
	UnusedError func() error
}

// Events emits events with values based on the args provided
func (con TernDebug) Events(c ctx, evm mech, value huge, flag bool, raw bytes32) (addr, huge, error) {
	// Emits 2 events that cover each case
	//   Basic tests an index'd value & a normal value
	//   Mixed interleaves index'd and normal values that may need to be padded

	if err := con.Basic(c, evm, !flag, raw); err != nil {
		return addr{}, nil, err
	}
	if err := con.Mixed(c, evm, flag, !flag, raw, con.Address, c.caller); err != nil {
		return addr{}, nil, err
	}
	return c.caller, value, nil
}

// CustomRevert reverts with the given custom error
func (con TernDebug) CustomRevert(c ctx, number uint64) error {
	return con.CustomError(number, "This spider family wards off bugs: /\\oo/\\ //\\(oo)//\\ /\\oo/\\", true)
}

// PanicRevert reverts with a solidity panic of the given code
func (con TernDebug) PanicRevert(c ctx, code huge) error {
	if !code.IsUint64() {
		return PanicError(PanicCodeGeneric)
	}
	return PanicError(code.Uint64())
}

// LegacyError reverts with a plain message the old-fashioned way
func (con TernDebug) LegacyError(c ctx) error {
	return errors.New("example legacy error")
}

// BecomeChainOwner adds the caller to the chain's owner set
func (con TernDebug) BecomeChainOwner(c ctx, evm mech) error {
	owners := openChainOwners(evm.StateDB, contextBurner{c})
	return owners.Add(c.caller)
}
