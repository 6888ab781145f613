// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"github.com/ethereum/go-ethereum/params"

	"github.com/ternchain/precompiles/util/ternmath"
)

// The cost model: pure functions from an operation's shape to its gas price.
// Costs are always burned through the call's Context before the work they
// price, and saturate rather than wrap so accumulation stays monotonic under
// adversarial sizes.

// calldataCost prices decoding the argument bytes of a call.
func calldataCost(nbytes uint64) uint64 {
	return ternmath.SaturatingUMul(params.CopyGas, ternmath.WordsForBytes(nbytes))
}

// returndataCost prices encoding and returning the result bytes of a call.
func returndataCost(nbytes uint64) uint64 {
	return ternmath.SaturatingUMul(params.CopyGas, ternmath.WordsForBytes(nbytes))
}

// keccakCost prices hashing n bytes.
func keccakCost(nbytes uint64) uint64 {
	words := ternmath.WordsForBytes(nbytes)
	return ternmath.SaturatingUAdd(
		params.Keccak256Gas,
		ternmath.SaturatingUMul(params.Keccak256WordGas, words),
	)
}

// logCost prices emitting an event with the given indexed-topic count and
// data payload size. The event selector hash occupies one topic beyond those
// counted here.
func logCost(topics uint64, databytes uint64) uint64 {
	cost := ternmath.SaturatingUAdd(
		params.LogGas,
		ternmath.SaturatingUMul(params.LogTopicGas, ternmath.SaturatingUAdd(topics, 1)),
	)
	return ternmath.SaturatingUAdd(
		cost,
		ternmath.SaturatingUMul(params.LogDataGas, databytes),
	)
}

// balanceReadCost prices reading an account's balance or nonce.
const balanceReadCost = params.BalanceGasEIP1884

// codeSizeCost prices querying an account's code size.
const codeSizeCost = params.ExtcodeSizeGasEIP150

// transientAccessCost prices one access to the call-scoped scratch space.
const transientAccessCost = params.WarmStorageReadCostEIP2929
