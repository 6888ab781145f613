// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

type addr = common.Address
type mech = *vm.EVM
type huge = *big.Int
type hash = common.Hash
type bytes4 = [4]byte
type bytes32 = [32]byte
type ctx = *Context

// Context is the per-call invocation context handed to each precompile
// method. The dispatcher creates one when a call enters a precompile and
// discards it when the call completes. It is the only channel through which a
// method may burn gas, and every state mutation a method requests through the
// storage layer's Burner interface passes through it as well.
type Context struct {
	caller      addr
	value       huge
	gasSupplied uint64
	gasLeft     uint64
	readOnly    bool
	transient   map[hash]hash
}

func (c *Context) Caller() addr {
	return c.caller
}

// Burn charges the given amount against the call's remaining budget. It must
// be called before doing the work it pays for; a failed burn zeroes the
// budget so no further work can be charged.
func (c *Context) Burn(amount uint64) error {
	if c.gasLeft < amount {
		return c.BurnOut()
	}
	c.gasLeft -= amount
	return nil
}

func (c *Context) Burned() uint64 {
	return c.gasSupplied - c.gasLeft
}

func (c *Context) BurnOut() error {
	c.gasLeft = 0
	return vm.ErrOutOfGas
}

func (c *Context) GasLeft() uint64 {
	return c.gasLeft
}

func (c *Context) ReadOnly() bool {
	return c.readOnly
}

// TransientGet reads the call-scoped scratch space. Unset keys are zero.
func (c *Context) TransientGet(key hash) hash {
	return c.transient[key]
}

// TransientSet writes the call-scoped scratch space. The space is not chain
// state: it lives only as long as this Context and is discarded with it.
func (c *Context) TransientSet(key hash, value hash) {
	if c.transient == nil {
		c.transient = make(map[hash]hash)
	}
	c.transient[key] = value
}

func testContext(caller addr) *Context {
	return &Context{
		caller:      caller,
		value:       new(big.Int),
		gasSupplied: ^uint64(0),
		gasLeft:     ^uint64(0),
		readOnly:    false,
	}
}
