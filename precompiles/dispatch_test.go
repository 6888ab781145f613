// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	templates "github.com/ternchain/precompiles/abis"
	"github.com/ternchain/precompiles/storage"
	"github.com/ternchain/precompiles/util/testhelpers"
)

// call runs one precompile call through the default set and requires that it
// resolved to a registered precompile.
func call(
	t *testing.T, set *PrecompileSet, evm *vm.EVM, target addr, caller addr,
	input []byte, value *big.Int, readOnly bool, gas uint64,
) CallOutcome {
	t.Helper()
	outcome, ok := set.Run(input, target, target, caller, value, readOnly, gas, evm)
	if !ok {
		Fail(t, "no precompile at", target)
	}
	return outcome
}

// requireRevertReason decodes an Error(string) payload and checks the reason.
func requireRevertReason(t *testing.T, outcome CallOutcome, reason string) {
	t.Helper()
	if outcome.Kind != OutcomeRevert {
		Fail(t, "expected a revert, have kind", outcome.Kind, "err", outcome.Err)
	}
	unpacked, err := abi.UnpackRevert(outcome.Output)
	Require(t, err, "revert payload not decodable")
	if unpacked != reason {
		Fail(t, "wrong revert reason", unpacked, "expected", reason)
	}
}

func TestDispatchSuccess(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	infoABI := parseABI(t, templates.TernInfoMetaData.ABI)

	account := testhelpers.RandomAddress()
	balance := uint256.NewInt(31337)
	evm.StateDB.AddBalance(account, balance, tracing.BalanceChangeUnspecified)

	input, err := infoABI.Pack("getBalance", account)
	Require(t, err)

	outcome := call(t, set, evm, TernInfoAddress, testhelpers.RandomAddress(), input, nil, false, 100_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "expected success, have", outcome.Kind, outcome.Err)
	}
	if outcome.GasUsed == 0 || outcome.GasLeft+outcome.GasUsed != 100_000 {
		Fail(t, "gas accounting is off", outcome.GasUsed, outcome.GasLeft)
	}

	outputs, err := infoABI.Methods["getBalance"].Outputs.Unpack(outcome.Output)
	Require(t, err)
	if outputs[0].(*big.Int).Cmp(balance.ToBig()) != 0 {
		Fail(t, "wrong balance", outputs[0])
	}
}

func TestDispatchShortCalldata(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()

	for _, input := range [][]byte{nil, {0x01}, {0x01, 0x02, 0x03}} {
		outcome := call(t, set, evm, TernInfoAddress, testhelpers.RandomAddress(), input, nil, false, 100_000)
		requireRevertReason(t, outcome, reasonMalformedInput)
		if outcome.GasLeft != 0 {
			Fail(t, "selector check must cost everything")
		}
	}
}

func TestDispatchUnknownSelector(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()

	input := []byte{0xde, 0xad, 0xbe, 0xef}
	outcome := call(t, set, evm, TernInfoAddress, testhelpers.RandomAddress(), input, nil, false, 100_000)
	if outcome.Kind != OutcomeRevert {
		Fail(t, "expected a revert")
	}
	unpacked, err := abi.UnpackRevert(outcome.Output)
	Require(t, err)
	if unpacked != "unknown method selector 0xdeadbeef" {
		Fail(t, "wrong reason", unpacked)
	}
}

func TestDispatchNonPayable(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	sysABI := parseABI(t, templates.TernSysMetaData.ABI)

	input, err := sysABI.Pack("ternBlockNumber")
	Require(t, err)

	outcome := call(t, set, evm, TernSysAddress, testhelpers.RandomAddress(), input, big.NewInt(5), false, 100_000)
	requireRevertReason(t, outcome, reasonNotPayable)
}

func TestDispatchReadOnlyWrite(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	sysABI := parseABI(t, templates.TernSysMetaData.ABI)

	input, err := sysABI.Pack("withdrawEth", testhelpers.RandomAddress())
	Require(t, err)

	outcome := call(t, set, evm, TernSysAddress, testhelpers.RandomAddress(), input, big.NewInt(0), true, 100_000)
	requireRevertReason(t, outcome, reasonReadOnlyWrite)
}

func TestDispatchDelegatecall(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	infoABI := parseABI(t, templates.TernInfoMetaData.ABI)

	input, err := infoABI.Pack("getNonce", testhelpers.RandomAddress())
	Require(t, err)

	// acting as some other contract's address means this is a delegatecall;
	// the set must still route by the address whose code is executing
	actingAs := testhelpers.RandomAddress()
	outcome, ok := set.Run(
		input, TernInfoAddress, actingAs, testhelpers.RandomAddress(),
		big.NewInt(0), false, 100_000, evm,
	)
	if !ok {
		Fail(t, "a delegatecall must still resolve to the precompile")
	}
	requireRevertReason(t, outcome, reasonNotDelegatable)
}

// gauge declares a view method whose body tries to mutate state, for checking
// that view purity holds even when the host's static flag is off.
var gaugeMetaData = &bind.MetaData{
	ABI: "[{\"anonymous\":false,\"inputs\":[],\"name\":\"Sampled\",\"type\":\"event\"},{\"inputs\":[],\"name\":\"sample\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]",
}

type gauge struct {
	Address addr

	Sampled        func(ctx, mech) error
	SampledGasCost func() (uint64, error)
}

func (con *gauge) Sample(c ctx, evm mech) (bool, error) {
	if err := con.Sampled(c, evm); err != nil {
		return false, err
	}
	return true, nil
}

func TestDispatchViewPurityBlocksMutation(t *testing.T) {
	evm := newMockEVM(t)
	gaugeABI := parseABI(t, gaugeMetaData.ABI)

	address := testhelpers.RandomAddress()
	gaugeAddress, impl := makePrecompile(gaugeMetaData, &gauge{Address: address})
	set, err := NewPrecompileSet([]SetEntry{{Address: gaugeAddress, Impl: impl}})
	Require(t, err)

	input, err := gaugeABI.Pack("sample")
	Require(t, err)

	// the host's static flag is off, so only the method's own purity stands
	// between the handler and the log append
	outcome, ok := set.Run(
		input, address, address, testhelpers.RandomAddress(),
		big.NewInt(0), false, 100_000, evm,
	)
	if !ok {
		Fail(t, "the gauge wasn't dispatched")
	}
	requireRevertReason(t, outcome, reasonReadOnlyWrite)

	logs := evm.StateDB.(*state.StateDB).Logs()
	if len(logs) != 0 {
		Fail(t, "a view method appended a log")
	}
}

func TestDispatchOutOfGas(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	testABI := parseABI(t, templates.TernTestMetaData.ABI)

	input, err := testABI.Pack("burnGas", big.NewInt(1_000_000))
	Require(t, err)

	outcome := call(t, set, evm, TernTestAddress, testhelpers.RandomAddress(), input, nil, false, 10_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "burning all gas is not an error", outcome.Kind, outcome.Err)
	}
	if outcome.GasLeft != 0 {
		Fail(t, "the burn must consume everything, have", outcome.GasLeft)
	}
}

func TestDispatchNotAPrecompile(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()

	target := testhelpers.RandomAddress()
	_, ok := set.Run(nil, target, target, testhelpers.RandomAddress(), nil, false, 100_000, evm)
	if ok {
		Fail(t, "dispatched a call to an unregistered address")
	}
}

func TestWithdrawEth(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	sysABI := parseABI(t, templates.TernSysMetaData.ABI)

	caller := testhelpers.RandomAddress()
	destination := testhelpers.RandomAddress()
	payment := big.NewInt(1000)

	// the host credits the precompile before the call, as a real transfer would
	evm.StateDB.AddBalance(TernSysAddress, uint256.MustFromBig(payment), tracing.BalanceChangeTransfer)

	input, err := sysABI.Pack("withdrawEth", destination)
	Require(t, err)

	outcome := call(t, set, evm, TernSysAddress, caller, input, payment, false, 1_000_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "withdrawal failed", outcome.Kind, outcome.Err)
	}

	have := evm.StateDB.GetBalance(destination).ToBig()
	if have.Cmp(payment) != 0 {
		Fail(t, "destination has the wrong balance", have)
	}
	if evm.StateDB.GetBalance(TernSysAddress).Sign() != 0 {
		Fail(t, "the precompile kept the payment")
	}

	outputs, err := sysABI.Methods["withdrawEth"].Outputs.Unpack(outcome.Output)
	Require(t, err)
	if outputs[0].(*big.Int).Cmp(payment) != 0 {
		Fail(t, "wrong reported balance", outputs[0])
	}
}

func TestScratchIsCallScoped(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	testABI := parseABI(t, templates.TernTestMetaData.ABI)

	key := bytes32(testhelpers.RandomHash())
	value := bytes32(testhelpers.RandomHash())

	input, err := testABI.Pack("scratch", key, value)
	Require(t, err)

	run := func() bytes32 {
		outcome := call(t, set, evm, TernTestAddress, testhelpers.RandomAddress(), input, nil, false, 100_000)
		if outcome.Kind != OutcomeSuccess {
			Fail(t, "scratch failed", outcome.Kind, outcome.Err)
		}
		outputs, err := testABI.Methods["scratch"].Outputs.Unpack(outcome.Output)
		Require(t, err)
		return outputs[0].(bytes32)
	}

	// the space starts zeroed and does not survive into the next call
	if run() != (bytes32{}) {
		Fail(t, "scratch space wasn't empty")
	}
	if run() != (bytes32{}) {
		Fail(t, "scratch space leaked across calls")
	}
}

func TestEcho(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	testABI := parseABI(t, templates.TernTestMetaData.ABI)

	data := testhelpers.RandomSlice(100)
	input, err := testABI.Pack("echo", data)
	Require(t, err)

	outcome := call(t, set, evm, TernTestAddress, testhelpers.RandomAddress(), input, nil, false, 100_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "echo failed", outcome.Kind, outcome.Err)
	}
	outputs, err := testABI.Methods["echo"].Outputs.Unpack(outcome.Output)
	Require(t, err)
	if !bytes.Equal(outputs[0].([]byte), data) {
		Fail(t, "echo mangled the data")
	}
}

func TestOwnerGating(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	ownerABI := parseABI(t, templates.TernOwnerMetaData.ABI)

	owner := testhelpers.RandomAddress()
	outsider := testhelpers.RandomAddress()

	// seed the owner set the way chain init would
	owners := openChainOwners(evm.StateDB, storage.NewSystemBurner())
	Require(t, owners.Add(owner))

	input, err := ownerABI.Pack("addChainOwner", outsider)
	Require(t, err)

	outcome := call(t, set, evm, TernOwnerAddress, outsider, input, nil, false, 1_000_000)
	requireRevertReason(t, outcome, reasonNotOwner)

	outcome = call(t, set, evm, TernOwnerAddress, owner, input, nil, false, 1_000_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "owner call failed", outcome.Kind, outcome.Err)
	}

	input, err = ownerABI.Pack("getAllChainOwners")
	Require(t, err)
	outcome = call(t, set, evm, TernOwnerAddress, owner, input, nil, false, 1_000_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "owner listing failed", outcome.Kind, outcome.Err)
	}
	outputs, err := ownerABI.Methods["getAllChainOwners"].Outputs.Unpack(outcome.Output)
	Require(t, err)
	all := outputs[0].([]common.Address)
	if len(all) != 2 {
		Fail(t, "expected 2 owners, have", len(all))
	}

	input, err = ownerABI.Pack("removeChainOwner", owner)
	Require(t, err)
	outcome = call(t, set, evm, TernOwnerAddress, outsider, input, nil, false, 1_000_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "the promoted owner couldn't act", outcome.Kind, outcome.Err)
	}

	// reopen to see past the handle's membership cache
	fresh := openChainOwners(evm.StateDB, storage.NewSystemBurner())
	isOwner, err := fresh.IsMember(owner)
	Require(t, err)
	if isOwner {
		Fail(t, "removal didn't stick")
	}
}

func TestDebugGating(t *testing.T) {
	evm := newMockEVM(t)
	set := DefaultSet()
	debugABI := parseABI(t, templates.TernDebugMetaData.ABI)

	caller := testhelpers.RandomAddress()
	input, err := debugABI.Pack("becomeChainOwner")
	Require(t, err)

	outcome := call(t, set, evm, TernDebugAddress, caller, input, nil, false, 1_000_000)
	requireRevertReason(t, outcome, reasonDebugDisabled)
	if outcome.GasLeft != 0 {
		Fail(t, "a disabled debug call must consume its gas")
	}

	enableDebug(t)
	outcome = call(t, set, evm, TernDebugAddress, caller, input, nil, false, 1_000_000)
	if outcome.Kind != OutcomeSuccess {
		Fail(t, "debug call failed when enabled", outcome.Kind, outcome.Err)
	}

	owners := openChainOwners(evm.StateDB, storage.NewSystemBurner())
	isOwner, err := owners.IsMember(caller)
	Require(t, err)
	if !isOwner {
		Fail(t, "the caller didn't become an owner")
	}
}
