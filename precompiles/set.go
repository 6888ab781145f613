// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
)

// guardedPrecompile marks implementations assembled through makePrecompile,
// whose Call performs the purity, payment, and read-only checks itself. The
// marker method is unexported, so a table built outside this package cannot
// claim guarded status: it must be registered with Unguarded set, making the
// absence of checks visible at the registration site.
type guardedPrecompile interface {
	TernPrecompile
	guarded()
}

func (p Precompile) guarded() {}

// A SetEntry registers one precompile at one address. Unguarded must be set
// for implementations that do not run the standard guard checks.
type SetEntry struct {
	Address   common.Address
	Impl      TernPrecompile
	Unguarded bool
}

// SetConflictError reports a registration the assembly rules reject.
type SetConflictError struct {
	Address common.Address
	Reason  string
}

func (e SetConflictError) Error() string {
	return fmt.Sprintf("precompile set conflict at %v: %s", e.Address, e.Reason)
}

// OutcomeKind classifies how a dispatched call ended.
type OutcomeKind uint8

const (
	// OutcomeSuccess carries the ABI-encoded return data.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRevert carries an ABI-decodable revert payload.
	OutcomeRevert
	// OutcomeFatal means the host must abort the transaction. The remaining
	// gas is consumed and the output is meaningless.
	OutcomeFatal
)

// A CallOutcome is what the host receives for a call that did resolve to a
// registered precompile. Reverts are data, not Go errors: Err is non-nil
// only for fatal outcomes.
type CallOutcome struct {
	Kind    OutcomeKind
	Output  []byte
	GasLeft uint64
	GasUsed uint64
	Err     error
}

// A PrecompileSet is an immutable mapping from addresses to dispatch tables,
// validated once at assembly. Lookups and calls never mutate the set, so one
// set serves all concurrently executing transactions.
type PrecompileSet struct {
	contracts map[common.Address]TernPrecompile
}

// NewPrecompileSet validates and assembles a set from its entries. Assembly
// fails if two entries claim the same address, or if an entry's Unguarded
// flag disagrees with whether its implementation runs the standard guards.
func NewPrecompileSet(entries []SetEntry) (*PrecompileSet, error) {
	contracts := make(map[common.Address]TernPrecompile, len(entries))
	for _, entry := range entries {
		if _, ok := contracts[entry.Address]; ok {
			return nil, SetConflictError{entry.Address, "address registered twice"}
		}
		_, isGuarded := entry.Impl.(guardedPrecompile)
		if isGuarded && entry.Unguarded {
			return nil, SetConflictError{entry.Address, "guarded implementation registered as unguarded"}
		}
		if !isGuarded && !entry.Unguarded {
			return nil, SetConflictError{entry.Address, "unguarded implementation must be registered as such"}
		}
		contracts[entry.Address] = entry.Impl
	}
	return &PrecompileSet{contracts}, nil
}

// DefaultSet assembles the canonical Tern precompiles. The contents never
// conflict, so assembly cannot fail.
func DefaultSet() *PrecompileSet {
	entries := make([]SetEntry, 0)
	for address, impl := range Precompiles() {
		entries = append(entries, SetEntry{Address: address, Impl: impl})
	}
	set, err := NewPrecompileSet(entries)
	if err != nil {
		panic(err)
	}
	return set
}

// Lookup returns the precompile registered at the address, if any.
func (s *PrecompileSet) Lookup(address common.Address) (TernPrecompile, bool) {
	impl, ok := s.contracts[address]
	return impl, ok
}

// Run dispatches a call to the precompile at precompileAddress, the address
// whose code is executing. actingAsAddress differs under delegatecall and
// callcode, which Call refuses for anything above pure. The second return is
// false when no precompile lives at precompileAddress, leaving the host to
// treat the target as an ordinary account. Fatal handler failures consume
// all supplied gas.
func (s *PrecompileSet) Run(
	input []byte,
	precompileAddress common.Address,
	actingAsAddress common.Address,
	caller common.Address,
	value *big.Int,
	readOnly bool,
	gasSupplied uint64,
	evm *vm.EVM,
) (CallOutcome, bool) {
	impl, ok := s.contracts[precompileAddress]
	if !ok {
		return CallOutcome{}, false
	}

	output, gasLeft, err := impl.Call(
		input, precompileAddress, actingAsAddress, caller, value, readOnly, gasSupplied, evm,
	)
	switch {
	case err == nil:
		return CallOutcome{
			Kind:    OutcomeSuccess,
			Output:  output,
			GasLeft: gasLeft,
			GasUsed: gasSupplied - gasLeft,
		}, true
	case err == vm.ErrExecutionReverted:
		return CallOutcome{
			Kind:    OutcomeRevert,
			Output:  output,
			GasLeft: gasLeft,
			GasUsed: gasSupplied - gasLeft,
		}, true
	default:
		return CallOutcome{
			Kind:    OutcomeFatal,
			GasUsed: gasSupplied,
			Err:     err,
		}, true
	}
}
