// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/params"
)

func TestDataCosts(t *testing.T) {
	if calldataCost(0) != 0 {
		Fail(t, "empty calldata costs nothing")
	}
	if calldataCost(1) != params.CopyGas {
		Fail(t, "a partial word costs a full word")
	}
	if calldataCost(32) != params.CopyGas {
		Fail(t, "wrong cost for one word")
	}
	if calldataCost(33) != 2*params.CopyGas {
		Fail(t, "wrong cost for a word and a byte")
	}
	if returndataCost(64) != 2*params.CopyGas {
		Fail(t, "wrong cost for two words")
	}
	if calldataCost(math.MaxUint64) != math.MaxUint64 {
		Fail(t, "adversarial sizes must saturate")
	}
}

func TestKeccakCost(t *testing.T) {
	if keccakCost(0) != params.Keccak256Gas {
		Fail(t, "hashing nothing still pays the base cost")
	}
	expected := params.Keccak256Gas + 3*params.Keccak256WordGas
	if keccakCost(96) != expected {
		Fail(t, "wrong cost for three words")
	}
}

func TestLogCost(t *testing.T) {
	// the event selector hash always occupies a topic of its own
	if logCost(0, 0) != params.LogGas+params.LogTopicGas {
		Fail(t, "wrong cost for a bare log")
	}
	expected := params.LogGas + 4*params.LogTopicGas + 64*params.LogDataGas
	if logCost(3, 64) != expected {
		Fail(t, "wrong cost for a topical log")
	}
	if logCost(math.MaxUint64, math.MaxUint64) != math.MaxUint64 {
		Fail(t, "adversarial shapes must saturate")
	}
}
