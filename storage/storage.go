// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// A Burner meters the gas consumed by storage accesses and knows whether the
// current call is allowed to mutate state. Every storage operation is paid for
// through the burner before it touches the stateDB.
type Burner interface {
	Burn(amount uint64) error
	ReadOnly() bool
}

// SystemBurner tracks machine-initiated work that has no gas budget, such as
// assembly-time checks and ownership lookups that are pre-charged elsewhere.
type SystemBurner struct {
	gasBurnt uint64
}

func NewSystemBurner() *SystemBurner {
	return &SystemBurner{}
}

func (burner *SystemBurner) Burn(amount uint64) error {
	burner.gasBurnt += amount
	return nil
}

func (burner *SystemBurner) Burned() uint64 {
	return burner.gasBurnt
}

func (burner *SystemBurner) ReadOnly() bool {
	return false
}

// Storage gives a precompile a persistent key-value space in the
// Ethereum-compatible stateDB, rooted in the storage of the precompile's own
// account. The space is logically a tree: a child space's storageKey is
// keccak256(parent.storageKey, name), and the contents of key k within a
// space live at keccak256(storageKey, k[:31]) || k[31] in the account's flat
// storage. Distinct spaces cannot collide without a keccak collision.
type Storage struct {
	account    common.Address
	db         vm.StateDB
	storageKey []byte
	burner     Burner
}

const StorageReadCost = params.ColdSloadCostEIP2929
const StorageWriteCost = params.SstoreSetGasEIP2200
const StorageWriteZeroCost = params.SstoreResetGasEIP2200

// NewGeth uses a Geth database to create a metered key-value store rooted in
// the given account's storage.
func NewGeth(statedb vm.StateDB, account common.Address, burner Burner) *Storage {
	statedb.SetNonce(account, 1) // setting the nonce ensures Geth won't treat the account as empty
	return &Storage{
		account:    account,
		db:         statedb,
		storageKey: []byte{},
		burner:     burner,
	}
}

// Open views the given account's storage without touching it, for callers
// that may be running under read-only constraints.
func Open(statedb vm.StateDB, account common.Address, burner Burner) *Storage {
	return &Storage{
		account:    account,
		db:         statedb,
		storageKey: []byte{},
		burner:     burner,
	}
}

// NewMemoryBacked uses Geth's memory-backed database to create a key-value store
func NewMemoryBacked(account common.Address, burner Burner) *Storage {
	return NewGeth(NewMemoryBackedStateDB(), account, burner)
}

// NewMemoryBackedStateDB uses Geth's memory-backed database to create a statedb
func NewMemoryBackedStateDB() vm.StateDB {
	raw := rawdb.NewMemoryDatabase()
	db := state.NewDatabase(raw)
	statedb, err := state.New(types.EmptyRootHash, db, nil)
	if err != nil {
		panic("failed to init empty statedb")
	}
	return statedb
}

// We map keys using "pages" of 256 storage slots, hashing over the page number
// but not the offset within a page, to preserve contiguity within a page.
func mapAddress(storageKey []byte, key common.Hash) common.Hash {
	keyBytes := key.Bytes()
	boundary := common.HashLength - 1
	return common.BytesToHash(
		append(
			crypto.Keccak256(storageKey, keyBytes[:boundary])[:boundary],
			keyBytes[boundary],
		),
	)
}

func (store *Storage) Get(key common.Hash) (common.Hash, error) {
	if err := store.burner.Burn(StorageReadCost); err != nil {
		return common.Hash{}, err
	}
	return store.db.GetState(store.account, mapAddress(store.storageKey, key)), nil
}

func (store *Storage) GetUint64(key common.Hash) (uint64, error) {
	value, err := store.Get(key)
	return value.Big().Uint64(), err
}

func (store *Storage) GetByUint64(key uint64) (common.Hash, error) {
	return store.Get(uintToHash(key))
}

func (store *Storage) GetUint64ByUint64(key uint64) (uint64, error) {
	return store.GetUint64(uintToHash(key))
}

func (store *Storage) Set(key common.Hash, value common.Hash) error {
	if store.burner.ReadOnly() {
		return vm.ErrWriteProtection
	}
	cost := StorageWriteCost
	if value == (common.Hash{}) {
		cost = StorageWriteZeroCost
	}
	if err := store.burner.Burn(cost); err != nil {
		return err
	}
	store.db.SetState(store.account, mapAddress(store.storageKey, key), value)
	return nil
}

func (store *Storage) SetByUint64(key uint64, value common.Hash) error {
	return store.Set(uintToHash(key), value)
}

func (store *Storage) SetUint64ByUint64(key uint64, value uint64) error {
	return store.Set(uintToHash(key), uintToHash(value))
}

func (store *Storage) Clear(key common.Hash) error {
	return store.Set(key, common.Hash{})
}

func (store *Storage) Swap(key common.Hash, newValue common.Hash) (common.Hash, error) {
	oldValue, err := store.Get(key)
	if err != nil {
		return common.Hash{}, err
	}
	return oldValue, store.Set(key, newValue)
}

func (store *Storage) OpenSubStorage(id []byte) *Storage {
	return &Storage{
		store.account,
		store.db,
		crypto.Keccak256(store.storageKey, id),
		store.burner,
	}
}

func (store *Storage) Account() common.Address {
	return store.account
}

func (store *Storage) Burner() Burner {
	return store.burner
}

func uintToHash(value uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(value))
}
