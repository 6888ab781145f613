// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

// TernTest provides pure helpers for exercising the dispatch machinery.
type TernTest struct {
	Address addr // 0x82
}

// BurnGas unproductively burns the amount of gas
func (con TernTest) BurnGas(c ctx, gasAmount huge) error {
	if !gasAmount.IsUint64() {
		return PanicError(PanicCodeArithmetic)
	}
	//nolint:errcheck
	c.Burn(gasAmount.Uint64()) // burn the amount, even if it's more than the user has
	return nil
}

// Echo returns the data unchanged
func (con TernTest) Echo(c ctx, data []byte) ([]byte, error) {
	return data, nil
}

// Scratch stores a value in the call's transient scratch space and returns
// what the key previously held. Nothing persists past the call.
func (con TernTest) Scratch(c ctx, key bytes32, value bytes32) (bytes32, error) {
	if err := c.Burn(2 * transientAccessCost); err != nil {
		return bytes32{}, err
	}
	previous := c.TransientGet(hash(key))
	c.TransientSet(hash(key), hash(value))
	return bytes32(previous), nil
}
