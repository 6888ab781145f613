// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import "github.com/ternchain/precompiles/util/ternmath"

// TernInfo provides methods for getting info about accounts
type TernInfo struct {
	Address addr // 0x81
}

// GetBalance retrieves an account's balance
func (con TernInfo) GetBalance(c ctx, evm mech, account addr) (huge, error) {
	if err := c.Burn(balanceReadCost); err != nil {
		return nil, err
	}
	return evm.StateDB.GetBalance(account).ToBig(), nil
}

// GetCode retrieves a contract's deployed code
func (con TernInfo) GetCode(c ctx, evm mech, account addr) ([]byte, error) {
	if err := c.Burn(codeSizeCost); err != nil {
		return nil, err
	}
	size := evm.StateDB.GetCodeSize(account)
	// reading code costs in proportion to its size
	if err := c.Burn(3 * ternmath.WordsForBytes(uint64(size))); err != nil {
		return nil, err
	}
	return evm.StateDB.GetCode(account), nil
}

// GetNonce retrieves an account's nonce
func (con TernInfo) GetNonce(c ctx, evm mech, account addr) (uint64, error) {
	if err := c.Burn(balanceReadCost); err != nil {
		return 0, err
	}
	return evm.StateDB.GetNonce(account), nil
}
