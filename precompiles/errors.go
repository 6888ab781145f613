// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	glog "github.com/ethereum/go-ethereum/log"
)

// Solidity panic codes surfaced through Panic(uint256) reverts.
const (
	PanicCodeGeneric            = 0x00
	PanicCodeAssertFailed       = 0x01
	PanicCodeArithmetic         = 0x11
	PanicCodeDivideByZero       = 0x12
	PanicCodeEnumConversion     = 0x21
	PanicCodeIndexOutOfBounds   = 0x32
	PanicCodeAllocationTooLarge = 0x41
)

// Reserved revert reasons for failures the dispatcher itself produces. A
// caller always gets one of these inside a standard Error(string) payload,
// decodable with the same tooling as any solidity revert.
const (
	reasonMalformedInput = "input too short for method selector"
	reasonNotPayable     = "value transfer to non-payable method"
	reasonReadOnlyWrite  = "state mutation in read-only call"
	reasonOutOfGas       = "out of gas"
	reasonNotDelegatable = "method must be called directly, not via delegatecall"
	reasonEncodeFailed   = "could not encode precompile result"
	reasonNotOwner       = "method can only be called by chain owners"
	reasonDebugDisabled  = "debug precompiles are disabled on this chain"
)

var (
	errorSelector = *(*bytes4)(crypto.Keccak256([]byte("Error(string)"))[:4])
	panicSelector = *(*bytes4)(crypto.Keccak256([]byte("Panic(uint256)"))[:4])

	stringType, _  = abi.NewType("string", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	errorArgs = abi.Arguments{{Type: stringType}}
	panicArgs = abi.Arguments{{Type: uint256Type}}
)

// errorReason builds the standard Error(string) revert payload for a
// human-readable reason.
func errorReason(reason string) []byte {
	packed, err := errorArgs.Pack(reason)
	if err != nil {
		glog.Error("could not encode revert reason", "reason", reason, "err", err)
		return errorSelector[:]
	}
	return append(errorSelector[:], packed...)
}

// panicReason builds the Panic(uint256) revert payload for a well-known
// failure class.
func panicReason(code uint64) []byte {
	packed, err := panicArgs.Pack(new(big.Int).SetUint64(code))
	if err != nil {
		glog.Error("could not encode panic code", "code", code, "err", err)
		return panicSelector[:]
	}
	return append(panicSelector[:], packed...)
}

// A solError is a structured revert: the payload is already ABI-encoded, so
// the dispatcher returns it to the caller as-is.
type solError struct {
	name string
	data []byte
}

func (e solError) Error() string {
	return "execution reverted: " + e.name
}

// PanicError produces a revert carrying the given solidity panic code.
func PanicError(code uint64) error {
	return solError{
		name: fmt.Sprintf("Panic(0x%02x)", code),
		data: panicReason(code),
	}
}

// A FatalError is irrecoverable: it is never converted into a revert payload
// and instead propagates to the host, which must abort the call trace.
type FatalError struct {
	inner error
}

func NewFatalError(err error) FatalError {
	return FatalError{inner: err}
}

func (e FatalError) Error() string {
	return "fatal precompile error: " + e.inner.Error()
}

func (e FatalError) Unwrap() error {
	return e.inner
}
