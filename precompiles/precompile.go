// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package precompiles

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	glog "github.com/ethereum/go-ethereum/log"

	templates "github.com/ternchain/precompiles/abis"
)

// The addresses at which the Tern precompiles live.
var (
	TernSysAddress   = common.HexToAddress("0x80")
	TernInfoAddress  = common.HexToAddress("0x81")
	TernTestAddress  = common.HexToAddress("0x82")
	TernOwnerAddress = common.HexToAddress("0x83")
	TernDebugAddress = common.HexToAddress("0xff")
)

// TernPrecompile is what the host engine dispatches to. Call runs the full
// pipeline for one incoming call: guard checks, selector lookup, argument
// decode, handler invocation, and result or revert encoding.
//
// NOTE: if precompileAddress != actingAsAddress, this is a delegatecall or
// callcode, so the caller might be wrong. In that case, unless the method is
// pure, it reverts.
type TernPrecompile interface {
	Call(
		input []byte,
		precompileAddress common.Address,
		actingAsAddress common.Address,
		caller common.Address,
		value *big.Int,
		readOnly bool,
		gasSupplied uint64,
		evm *vm.EVM,
	) (output []byte, gasLeft uint64, err error)

	Precompile() Precompile
}

type purity uint8

const (
	pure purity = iota
	view
	write
	payable
)

// Precompile is one assembled dispatch table: the selector-keyed methods of a
// single precompiled contract, plus its events and declared custom errors.
// Tables are built once at startup and read-only afterwards, so they are
// safely shared across concurrently executing transactions.
type Precompile struct {
	name        string
	methods     map[bytes4]PrecompileMethod
	events      map[string]PrecompileEvent
	errors      map[bytes4]abi.Error
	implementer reflect.Value
	address     common.Address
}

type PrecompileMethod struct {
	name        string
	template    abi.Method
	purity      purity
	handler     reflect.Method
	implementer reflect.Value
}

type PrecompileEvent struct {
	name     string
	template abi.Event
}

// MethodSelector computes the 4-byte discriminant of a canonical method
// signature such as "transfer(address,uint256)". The keccak-truncation
// convention is fixed by the ABI standard, making selectors interoperable
// with externally generated calldata.
func MethodSelector(signature string) bytes4 {
	return *(*bytes4)(crypto.Keccak256([]byte(signature))[:4])
}

// makePrecompile builds the dispatch table for the given ABI metadata,
// ensuring that the implementer supports each method, event, and error the
// ABI declares. Mismatches are programming errors and fail process startup.
func makePrecompile(metadata *bind.MetaData, implementer interface{}) (addr, TernPrecompile) {
	source, err := abi.JSON(strings.NewReader(metadata.ABI))
	if err != nil {
		log.Fatal("Bad ABI")
	}

	implementerType := reflect.TypeOf(implementer)
	contract := implementerType.Elem().Name()

	_, ok := implementerType.Elem().FieldByName("Address")
	if !ok {
		log.Fatal("Implementer for precompile ", contract, " is missing an Address field")
	}

	address, ok := reflect.ValueOf(implementer).Elem().FieldByName("Address").Interface().(addr)
	if !ok {
		log.Fatal("Implementer for precompile ", contract, "'s Address field has the wrong type")
	}

	methods := make(map[bytes4]PrecompileMethod)
	events := make(map[string]PrecompileEvent)
	errorsById := make(map[bytes4]abi.Error)

	for _, method := range source.Methods {

		name := method.RawName
		capitalize := string(unicode.ToUpper(rune(name[0])))
		name = capitalize + name[1:]

		if len(method.ID) != 4 {
			log.Fatal("Method ID isn't 4 bytes")
		}
		id := *(*bytes4)(method.ID)
		if _, ok := methods[id]; ok {
			log.Fatal("Precompile ", contract, " has a selector collision at ", name)
		}

		// check that the implementer has a supporting implementation for this method

		handler, ok := implementerType.MethodByName(name)
		if !ok {
			log.Fatal("Precompile ", contract, " must implement ", name)
		}

		var needs = []reflect.Type{
			implementerType,            // the contract itself
			reflect.TypeOf((ctx)(nil)), // this call's context
		}

		var purity purity

		switch method.StateMutability {
		case "pure":
			purity = pure
		case "view":
			needs = append(needs, reflect.TypeOf(&vm.EVM{}))
			purity = view
		case "nonpayable":
			needs = append(needs, reflect.TypeOf(&vm.EVM{}))
			purity = write
		case "payable":
			needs = append(needs, reflect.TypeOf(&vm.EVM{}))
			needs = append(needs, reflect.TypeOf(&big.Int{}))
			purity = payable
		default:
			log.Fatal("Unknown state mutability ", method.StateMutability)
		}

		for _, arg := range method.Inputs {
			needs = append(needs, arg.Type.GetType())
		}

		var outputs = []reflect.Type{}
		for _, out := range method.Outputs {
			outputs = append(outputs, out.Type.GetType())
		}
		outputs = append(outputs, reflect.TypeOf((*error)(nil)).Elem())

		expectedHandlerType := reflect.FuncOf(needs, outputs, false)

		if handler.Type != expectedHandlerType {
			log.Fatal(
				"Precompile "+contract+"'s "+name+"'s implementer has the wrong type\n",
				"\texpected:\t", expectedHandlerType, "\n\tbut have:\t", handler.Type,
			)
		}

		methods[id] = PrecompileMethod{
			name,
			method,
			purity,
			handler,
			reflect.ValueOf(implementer),
		}
	}

	// provide the implementer mechanisms to emit logs for the solidity events

	supportedIndices := map[string]struct{}{
		// the solidity value types: https://docs.soliditylang.org/en/v0.8.9/types.html
		"address": {},
		"bytes32": {},
		"bool":    {},
	}
	for i := 8; i <= 256; i += 8 {
		supportedIndices["int"+strconv.Itoa(i)] = struct{}{}
		supportedIndices["uint"+strconv.Itoa(i)] = struct{}{}
	}

	for _, event := range source.Events {
		name := event.RawName

		var needs = []reflect.Type{
			reflect.TypeOf((ctx)(nil)), // where the emit goes
			reflect.TypeOf(&vm.EVM{}),  // where the emit goes
		}
		for _, arg := range event.Inputs {
			needs = append(needs, arg.Type.GetType())

			if arg.Indexed {
				_, ok := supportedIndices[arg.Type.String()]
				if !ok {
					log.Fatal(
						"Please change the solidity for precompile ", contract,
						"'s event ", name, ":\n\tEvent indices of type ",
						arg.Type.String(), " are not supported",
					)
				}
			}
		}

		uint64Type := reflect.TypeOf(uint64(0))
		errorType := reflect.TypeOf((*error)(nil)).Elem()
		expectedFieldType := reflect.FuncOf(needs, []reflect.Type{errorType}, false)
		expectedCostType := reflect.FuncOf(needs[2:], []reflect.Type{uint64Type, errorType}, false)

		context := "Precompile " + contract + "'s implementer"
		missing := context + " is missing a field for "

		field, ok := implementerType.Elem().FieldByName(name)
		if !ok {
			log.Fatal(missing, "event ", name, " of type\n\t", expectedFieldType)
		}
		costField, ok := implementerType.Elem().FieldByName(name + "GasCost")
		if !ok {
			log.Fatal(missing, "event ", name, "'s GasCost of type\n\t", expectedCostType)
		}
		if field.Type != expectedFieldType {
			log.Fatal(
				context, "'s field for event ", name, " has the wrong type\n",
				"\texpected:\t", expectedFieldType, "\n\tbut have:\t", field.Type,
			)
		}
		if costField.Type != expectedCostType {
			log.Fatal(
				context, "'s field for event ", name, "GasCost has the wrong type\n",
				"\texpected:\t", expectedCostType, "\n\tbut have:\t", costField.Type,
			)
		}

		structFields := reflect.ValueOf(implementer).Elem()
		fieldPointer := structFields.FieldByName(name)
		costPointer := structFields.FieldByName(name + "GasCost")

		dataInputs := make(abi.Arguments, 0)
		topicInputs := make(abi.Arguments, 0)

		for _, input := range event.Inputs {
			if input.Indexed {
				topicInputs = append(topicInputs, input)
			} else {
				dataInputs = append(dataInputs, input)
			}
		}

		// we can't capture `event` since the for loop will change its value
		capturedEvent := event
		nilError := reflect.Zero(reflect.TypeOf((*error)(nil)).Elem())

		gascost := func(args []reflect.Value) []reflect.Value {

			var dataValues []interface{}

			for i := 0; i < len(args); i++ {
				if !capturedEvent.Inputs[i].Indexed {
					dataValues = append(dataValues, args[i].Interface())
				}
			}

			data, err := dataInputs.PackValues(dataValues)
			if err != nil {
				glog.Error(fmt.Sprintf(
					"Could not pack values for event %s's GasCost\nerror %s", name, err,
				))
				return []reflect.Value{reflect.ValueOf(uint64(0)), reflect.ValueOf(err)}
			}

			cost := logCost(uint64(len(topicInputs)), uint64(len(data)))
			return []reflect.Value{reflect.ValueOf(cost), nilError}
		}

		emit := func(args []reflect.Value) []reflect.Value {

			callerCtx := args[0].Interface().(ctx) //nolint:errcheck
			evm := args[1].Interface().(*vm.EVM)   //nolint:errcheck
			state := evm.StateDB
			args = args[2:]

			if callerCtx.ReadOnly() {
				// a log append is a state mutation
				return []reflect.Value{reflect.ValueOf(vm.ErrWriteProtection)}
			}

			emitCost := gascost(args)
			cost := emitCost[0].Interface().(uint64) //nolint:errcheck
			if !emitCost[1].IsNil() {
				// an error occurred during gascost()
				return []reflect.Value{emitCost[1]}
			}
			if err := callerCtx.Burn(cost); err != nil {
				// the user has run out of gas
				return []reflect.Value{reflect.ValueOf(vm.ErrOutOfGas)}
			}

			// Filter by index'd into data and topics. Indexed values, even if ultimately hashed,
			// aren't supposed to have their contents stored in the general-purpose data portion.
			var dataValues []interface{}
			var topicValues []interface{}

			for i := 0; i < len(args); i++ {
				if capturedEvent.Inputs[i].Indexed {
					topicValues = append(topicValues, args[i].Interface())
				} else {
					dataValues = append(dataValues, args[i].Interface())
				}
			}

			data, err := dataInputs.PackValues(dataValues)
			if err != nil {
				glog.Error(fmt.Sprintf(
					"Couldn't pack values for event %s\nargs %s\nvalues %s\ntopics %s\nerror %s",
					name, args, dataValues, topicValues, err,
				))
				return []reflect.Value{reflect.ValueOf(err)}
			}

			topics := []common.Hash{capturedEvent.ID}

			for i, input := range topicInputs {
				// Geth provides infrastructure for packing arrays of values,
				// so we create an array with just the value we want to pack.

				packable := []interface{}{topicValues[i]}
				bytes, err := abi.Arguments{input}.PackValues(packable)
				if err != nil {
					glog.Error(fmt.Sprintf(
						"Packing error for event %s\nargs %s\nvalues %s\ntopics %s\nerror %s",
						name, args, dataValues, topicValues, err,
					))
					return []reflect.Value{reflect.ValueOf(err)}
				}

				var topic [32]byte

				if len(bytes) > 32 {
					topic = *(*[32]byte)(crypto.Keccak256(bytes))
				} else {
					offset := 32 - len(bytes)
					copy(topic[offset:], bytes)
				}

				topics = append(topics, topic)
			}

			event := &types.Log{
				Address:     address,
				Topics:      topics,
				Data:        data,
				BlockNumber: evm.Context.BlockNumber.Uint64(),
				// Geth will set all other fields, which include
				//   TxHash, TxIndex, Index, and Removed
			}

			state.AddLog(event)
			return []reflect.Value{nilError}
		}

		fieldPointer.Set(reflect.MakeFunc(field.Type, emit))
		costPointer.Set(reflect.MakeFunc(costField.Type, gascost))

		events[name] = PrecompileEvent{
			name,
			event,
		}
	}

	// provide the implementer the means to produce its declared custom errors

	for _, custom := range source.Errors {
		name := custom.Name + "Error"
		id := *(*bytes4)(custom.ID[:4])
		errorsById[id] = custom

		var needs = []reflect.Type{}
		for _, arg := range custom.Inputs {
			needs = append(needs, arg.Type.GetType())
		}
		errorType := reflect.TypeOf((*error)(nil)).Elem()
		expectedFieldType := reflect.FuncOf(needs, []reflect.Type{errorType}, false)

		field, ok := implementerType.Elem().FieldByName(name)
		if !ok {
			log.Fatal(
				"Precompile ", contract, "'s implementer is missing a field for error ",
				custom.Name, " of type\n\t", expectedFieldType,
			)
		}
		if field.Type != expectedFieldType {
			log.Fatal(
				"Precompile ", contract, "'s implementer's field for error ", custom.Name,
				" has the wrong type\n", "\texpected:\t", expectedFieldType,
				"\n\tbut have:\t", field.Type,
			)
		}

		capturedError := custom
		produce := func(args []reflect.Value) []reflect.Value {
			values := make([]interface{}, len(args))
			for i, arg := range args {
				values[i] = arg.Interface()
			}
			packed, err := capturedError.Inputs.PackValues(values)
			if err != nil {
				glog.Error(fmt.Sprintf(
					"Could not pack values for error %s\nerror %s", capturedError.Name, err,
				))
				return []reflect.Value{reflect.ValueOf(err)}
			}
			wrapped := solError{
				name: capturedError.Sig,
				data: append(id[:], packed...),
			}
			return []reflect.Value{reflect.ValueOf(error(wrapped))}
		}

		structFields := reflect.ValueOf(implementer).Elem()
		structFields.FieldByName(name).Set(reflect.MakeFunc(field.Type, produce))
	}

	return address, Precompile{
		name:        contract,
		methods:     methods,
		events:      events,
		errors:      errorsById,
		implementer: reflect.ValueOf(implementer),
		address:     address,
	}
}

// Precompiles assembles the canonical Tern precompile map. The host installs
// these at its call-dispatch point; DefaultSet wraps the same contents in an
// assembly-validated PrecompileSet.
func Precompiles() map[addr]TernPrecompile {

	contracts := make(map[addr]TernPrecompile)

	insert := func(address addr, impl TernPrecompile) Precompile {
		contracts[address] = impl
		return impl.Precompile()
	}

	insert(makePrecompile(templates.TernSysMetaData, &TernSys{Address: TernSysAddress}))
	insert(makePrecompile(templates.TernInfoMetaData, &TernInfo{Address: TernInfoAddress}))
	insert(makePrecompile(templates.TernTestMetaData, &TernTest{Address: TernTestAddress}))

	insert(ownerOnly(makePrecompile(templates.TernOwnerMetaData, &TernOwner{Address: TernOwnerAddress})))
	insert(debugOnly(makePrecompile(templates.TernDebugMetaData, &TernDebug{Address: TernDebugAddress})))

	return contracts
}

// Call a precompile in typed form, deserializing its inputs and serializing
// its outputs. Every failure a caller can trigger comes back as an
// ABI-decodable revert payload alongside vm.ErrExecutionReverted; only
// irrecoverable host failures surface as other errors.
func (p Precompile) Call(
	input []byte,
	precompileAddress common.Address,
	actingAsAddress common.Address,
	caller common.Address,
	value *big.Int,
	readOnly bool,
	gasSupplied uint64,
	evm *vm.EVM,
) (output []byte, gasLeft uint64, err error) {

	if len(input) < 4 {
		// there is no way to dispatch a call without a canonical method selector
		return errorReason(reasonMalformedInput), 0, vm.ErrExecutionReverted
	}
	id := *(*bytes4)(input)
	method, ok := p.methods[id]
	if !ok {
		reason := fmt.Sprintf("unknown method selector 0x%02x%02x%02x%02x", id[0], id[1], id[2], id[3])
		return errorReason(reason), 0, vm.ErrExecutionReverted
	}

	if value == nil {
		value = new(big.Int)
	}

	if method.purity >= view && actingAsAddress != precompileAddress {
		// should not access precompile superpowers when not acting as the precompile
		return errorReason(reasonNotDelegatable), 0, vm.ErrExecutionReverted
	}

	if method.purity >= write && readOnly {
		// tried to write to global state in read-only mode
		return errorReason(reasonReadOnlyWrite), 0, vm.ErrExecutionReverted
	}

	if method.purity < payable && value.Sign() != 0 {
		// tried to pay something that's non-payable
		return errorReason(reasonNotPayable), 0, vm.ErrExecutionReverted
	}

	callerCtx := &Context{
		caller:      caller,
		value:       value,
		gasSupplied: gasSupplied,
		gasLeft:     gasSupplied,
		// methods below write purity may read state but never mutate it,
		// no matter what the host's static flag says
		readOnly: readOnly || method.purity < write,
	}

	argsCost := calldataCost(uint64(len(input) - 4))
	if err := callerCtx.Burn(argsCost); err != nil {
		// user cannot afford the argument data supplied
		return errorReason(reasonOutOfGas), 0, vm.ErrExecutionReverted
	}

	args, err := strictDecode(method.template.Inputs, input[4:])
	if err != nil {
		// calldata does not canonically match the method's signature
		return errorReason(err.Error()), 0, vm.ErrExecutionReverted
	}

	reflectArgs := []reflect.Value{
		method.implementer,
		reflect.ValueOf(callerCtx),
	}

	switch method.purity {
	case pure:
	case view:
		reflectArgs = append(reflectArgs, reflect.ValueOf(evm))
	case write:
		reflectArgs = append(reflectArgs, reflect.ValueOf(evm))
	case payable:
		reflectArgs = append(reflectArgs, reflect.ValueOf(evm))
		reflectArgs = append(reflectArgs, reflect.ValueOf(value))
	default:
		log.Fatal("Unknown state mutability ", method.purity)
	}

	for _, arg := range args {
		reflectArgs = append(reflectArgs, reflect.ValueOf(arg))
	}

	reflectResult := method.handler.Func.Call(reflectArgs)
	resultCount := len(reflectResult) - 1
	if !reflectResult[resultCount].IsNil() {
		// the last arg is always the error status
		errRet := reflectResult[resultCount].Interface().(error) //nolint:errcheck
		return p.revert(errRet, callerCtx)
	}
	result := make([]interface{}, resultCount)
	for i := 0; i < resultCount; i++ {
		result[i] = reflectResult[i].Interface()
	}

	encoded, err := method.template.Outputs.PackValues(result)
	if err != nil {
		glog.Error("could not encode precompile result", "precompile", p.name, "method", method.name, "err", err)
		return errorReason(reasonEncodeFailed), 0, vm.ErrExecutionReverted
	}

	resultCost := returndataCost(uint64(len(encoded)))
	if err := callerCtx.Burn(resultCost); err != nil {
		// user cannot afford the result data returned
		return errorReason(reasonOutOfGas), 0, vm.ErrExecutionReverted
	}

	return encoded, callerCtx.gasLeft, nil
}

// revert converts a handler error into the payload returned to the caller.
func (p Precompile) revert(err error, callerCtx *Context) ([]byte, uint64, error) {
	var fatal FatalError
	if errors.As(err, &fatal) {
		return nil, 0, err
	}
	var structured solError
	if errors.As(err, &structured) {
		return structured.data, callerCtx.gasLeft, vm.ErrExecutionReverted
	}
	if errors.Is(err, vm.ErrOutOfGas) {
		return errorReason(reasonOutOfGas), 0, vm.ErrExecutionReverted
	}
	if errors.Is(err, vm.ErrWriteProtection) {
		return errorReason(reasonReadOnlyWrite), callerCtx.gasLeft, vm.ErrExecutionReverted
	}
	return errorReason(err.Error()), callerCtx.gasLeft, vm.ErrExecutionReverted
}

// strictDecode rebuilds typed arguments from their ABI encoding, rejecting
// any buffer that is not the canonical encoding of the recovered values.
// Trailing bytes, non-minimal offsets, out-of-range static integers, and
// non-canonical booleans all fail here rather than decode ambiguously.
func strictDecode(inputs abi.Arguments, data []byte) ([]interface{}, error) {
	values, err := inputs.Unpack(data)
	if err != nil {
		return nil, err
	}
	repacked, err := inputs.PackValues(values)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(repacked, data) {
		return nil, errors.New("non-canonical argument encoding")
	}
	return values, nil
}

func (p Precompile) Precompile() Precompile {
	return p
}

func (p Precompile) Name() string {
	return p.name
}

func (p Precompile) Address() common.Address {
	return p.address
}

// GetErrorABIs returns the custom error declarations of this precompile, so
// integrators can decode structured revert payloads.
func (p Precompile) GetErrorABIs() []abi.Error {
	errABIs := make([]abi.Error, 0, len(p.errors))
	for _, errABI := range p.errors {
		errABIs = append(errABIs, errABI)
	}
	sort.Slice(errABIs, func(i, j int) bool { return errABIs[i].Sig < errABIs[j].Sig })
	return errABIs
}

// A MethodDoc describes one dispatchable method of an assembled table.
type MethodDoc struct {
	Selector   bytes4
	Signature  string
	Mutability string
}

// MethodDocs lists the dispatch table in selector order.
func (p Precompile) MethodDocs() []MethodDoc {
	docs := make([]MethodDoc, 0, len(p.methods))
	for id, method := range p.methods {
		docs = append(docs, MethodDoc{
			Selector:   id,
			Signature:  method.template.Sig,
			Mutability: method.template.StateMutability,
		})
	}
	sort.Slice(docs, func(i, j int) bool {
		return bytes.Compare(docs[i].Selector[:], docs[j].Selector[:]) < 0
	})
	return docs
}

// EventDocs maps each event name to its log topic identifier.
func (p Precompile) EventDocs() map[string]hash {
	docs := make(map[string]hash, len(p.events))
	for name, event := range p.events {
		docs[name] = event.template.ID
	}
	return docs
}
