// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/holiman/uint256"

	"github.com/ternchain/precompiles/storage"
)

// TernSys provides system-level functionality for interacting with the chain
// and its precompile environment.
type TernSys struct {
	Address addr // 0x80

	EthWithdrawal        func(ctx, mech, addr, huge) error
	EthWithdrawalGasCost func(addr, huge) (uint64, error)
}

// TernBlockNumber gets the current block number
func (con *TernSys) TernBlockNumber(c ctx, evm mech) (huge, error) {
	return evm.Context.BlockNumber, nil
}

// TernChainId gets the chain identifier the EVM is configured with
func (con *TernSys) TernChainId(c ctx, evm mech) (huge, error) {
	return evm.ChainConfig().ChainID, nil
}

// TernosVersion returns the version of the precompile environment
func (con *TernSys) TernosVersion(c ctx) (uint64, error) {
	return 1, nil
}

// IsTopLevelCall checks if the call is top-level, that is, made directly by
// the transaction's origin rather than by a contract.
func (con *TernSys) IsTopLevelCall(c ctx, evm mech) (bool, error) {
	return c.caller == evm.TxContext.Origin, nil
}

// GetStorageAt returns the value of a slot in the given account's storage
func (con *TernSys) GetStorageAt(c ctx, evm mech, account addr, index huge) (huge, error) {
	if err := c.Burn(storage.StorageReadCost); err != nil {
		return nil, err
	}
	value := evm.StateDB.GetState(account, common.BigToHash(index))
	return value.Big(), nil
}

// WithdrawEth sends the value paid with the call back out of the precompile's
// balance to the given destination, emitting an EthWithdrawal event.
func (con *TernSys) WithdrawEth(c ctx, evm mech, value huge, destination addr) (huge, error) {
	amount, overflow := uint256.FromBig(value)
	if overflow {
		return nil, PanicError(PanicCodeArithmetic)
	}
	// the call already credited the precompile, so move the funds onward
	evm.StateDB.SubBalance(con.Address, amount, tracing.BalanceChangeTransfer)
	evm.StateDB.AddBalance(destination, amount, tracing.BalanceChangeTransfer)
	if err := con.EthWithdrawal(c, evm, destination, value); err != nil {
		return nil, err
	}
	return evm.StateDB.GetBalance(destination).ToBig(), nil
}
