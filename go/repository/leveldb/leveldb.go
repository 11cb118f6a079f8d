// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package leveldb provides a persistent kiln.Repository backed by a LevelDB
// key/value store.
//
// Accounts are stored as RLP encoded records keyed by their address, storage
// slots under the concatenation of address and key, and codes under their
// Keccak256 hash. All modifications are written as single batches and are
// thus atomic.
package leveldb

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/repository"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	accountPrefix byte = 'a'
	codePrefix    byte = 'c'
	storagePrefix byte = 's'
)

const defaultCodeCacheSize = 1 << 10

// Config contains the tuning options of a repository.
type Config struct {
	// CodeCacheSize is the number of codes kept in memory. If 0, a default
	// size is used.
	CodeCacheSize int
}

// Repository is a kiln.Repository persisting its content in LevelDB. Reads
// are lock free, modifications are serialized.
type Repository struct {
	db    *leveldb.DB
	codes *lru.Cache[kiln.Hash, kiln.Code]
	mu    sync.Mutex
}

var (
	_ kiln.Repository      = (*Repository)(nil)
	_ repository.OpApplier = (*Repository)(nil)
)

// Open opens or creates a repository in the given directory.
func Open(path string, config Config) (*Repository, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return newRepository(db, config)
}

// OpenInMemory creates a repository whose content is lost once closed.
func OpenInMemory(config Config) (*Repository, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newRepository(db, config)
}

func newRepository(db *leveldb.DB, config Config) (*Repository, error) {
	size := config.CodeCacheSize
	if size <= 0 {
		size = defaultCodeCacheSize
	}
	codes, err := lru.New[kiln.Hash, kiln.Code](size)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &Repository{db: db, codes: codes}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// accountRecord is the persisted form of an account.
type accountRecord struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash []byte
}

func accountKey(address kiln.Address) []byte {
	return append([]byte{accountPrefix}, address[:]...)
}

func codeKey(hash kiln.Hash) []byte {
	return append([]byte{codePrefix}, hash[:]...)
}

func storageRange(address kiln.Address) []byte {
	return append([]byte{storagePrefix}, address[:]...)
}

func storageKey(address kiln.Address, key kiln.Key) []byte {
	return append(storageRange(address), key[:]...)
}

func (r *Repository) getAccount(address kiln.Address) (*accountRecord, error) {
	data, err := r.db.Get(accountKey(address), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account %v: %w", address, err)
	}
	record := &accountRecord{}
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, fmt.Errorf("invalid record for account %v: %w", address, err)
	}
	return record, nil
}

func (r *Repository) HasAccount(address kiln.Address) (bool, error) {
	record, err := r.getAccount(address)
	return record != nil, err
}

func (r *Repository) GetBalance(address kiln.Address) (kiln.Value, error) {
	record, err := r.getAccount(address)
	if err != nil || record == nil {
		return kiln.Value{}, err
	}
	return kiln.ValueFromUint256(record.Balance), nil
}

func (r *Repository) GetNonce(address kiln.Address) (uint64, error) {
	record, err := r.getAccount(address)
	if err != nil || record == nil {
		return 0, err
	}
	return record.Nonce, nil
}

func (r *Repository) GetCode(address kiln.Address) (kiln.Code, error) {
	record, err := r.getAccount(address)
	if err != nil || record == nil || len(record.CodeHash) == 0 {
		return nil, err
	}
	hash := kiln.Hash(record.CodeHash)
	if code, found := r.codes.Get(hash); found {
		return bytes.Clone(code), nil
	}
	code, err := r.db.Get(codeKey(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read code %v of account %v: %w", hash, address, err)
	}
	r.codes.Add(hash, code)
	return bytes.Clone(code), nil
}

func (r *Repository) GetStorage(address kiln.Address, key kiln.Key) (kiln.Word, error) {
	data, err := r.db.Get(storageKey(address, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return kiln.Word{}, nil
	}
	if err != nil {
		return kiln.Word{}, fmt.Errorf("failed to read storage %v/%v: %w", address, key, err)
	}
	return kiln.WordFromBytes(data), nil
}

func (r *Repository) CreateAccount(address kiln.Address) error {
	return r.apply(repository.Op{Kind: repository.OpCreateAccount, Address: address})
}

func (r *Repository) DeleteAccount(address kiln.Address) error {
	return r.apply(repository.Op{Kind: repository.OpDeleteAccount, Address: address})
}

func (r *Repository) AddBalance(address kiln.Address, delta *big.Int) error {
	return r.apply(repository.Op{Kind: repository.OpAddBalance, Address: address, Delta: delta})
}

func (r *Repository) IncrementNonce(address kiln.Address) error {
	return r.apply(repository.Op{Kind: repository.OpIncrementNonce, Address: address})
}

func (r *Repository) PutCode(address kiln.Address, code kiln.Code) error {
	return r.apply(repository.Op{Kind: repository.OpPutCode, Address: address, Code: code})
}

func (r *Repository) PutStorage(address kiln.Address, key kiln.Key, value kiln.Word) error {
	return r.apply(repository.Op{Kind: repository.OpPutStorage, Address: address, Key: key, Value: value})
}

func (r *Repository) apply(op repository.Op) error {
	return r.ApplyOps([]repository.Op{op})
}

func (r *Repository) StartTracking() kiln.TrackingRepository {
	return repository.NewTracking(r)
}

// ApplyOps applies all given modifications in a single batch or, if any of
// them fails, none.
func (r *Repository) ApplyOps(ops []repository.Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := repository.NewTracking(r)
	if err := repository.Replay(staged, ops); err != nil {
		return err
	}
	return r.write(staged.Changes())
}

// Import writes the given state into the repository, replacing the accounts
// it names.
func (r *Repository) Import(state memory.WorldState) error {
	changes := make([]repository.Change, 0, len(state))
	for address, account := range state {
		changes = append(changes, repository.Change{
			Address:        address,
			Exists:         true,
			Balance:        account.Balance,
			Nonce:          account.Nonce,
			Code:           account.Code,
			StorageCleared: true,
			Storage:        account.Storage,
		})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(changes)
}

func (r *Repository) write(changes []repository.Change) error {
	batch := new(leveldb.Batch)
	codes := map[kiln.Hash]kiln.Code{}
	for _, change := range changes {
		if err := r.stage(batch, change, codes); err != nil {
			return err
		}
	}
	if err := r.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	for hash, code := range codes {
		r.codes.Add(hash, code)
	}
	return nil
}

func (r *Repository) stage(batch *leveldb.Batch, change repository.Change, codes map[kiln.Hash]kiln.Code) error {
	address := change.Address
	if change.StorageCleared || !change.Exists {
		if err := r.clearStorage(batch, address); err != nil {
			return err
		}
	}
	if !change.Exists {
		batch.Delete(accountKey(address))
		return nil
	}

	record := accountRecord{Nonce: change.Nonce, Balance: change.Balance.ToUint256()}
	if len(change.Code) > 0 {
		hash := kiln.Hash(crypto.Keccak256Hash(change.Code))
		record.CodeHash = hash[:]
		batch.Put(codeKey(hash), change.Code)
		codes[hash] = bytes.Clone(change.Code)
	}
	data, err := rlp.EncodeToBytes(&record)
	if err != nil {
		return fmt.Errorf("failed to encode account %v: %w", address, err)
	}
	batch.Put(accountKey(address), data)

	for key, value := range change.Storage {
		if value == (kiln.Word{}) {
			batch.Delete(storageKey(address, key))
		} else {
			batch.Put(storageKey(address, key), value[:])
		}
	}
	return nil
}

func (r *Repository) clearStorage(batch *leveldb.Batch, address kiln.Address) error {
	it := r.db.NewIterator(util.BytesPrefix(storageRange(address)), nil)
	defer it.Release()
	for it.Next() {
		batch.Delete(bytes.Clone(it.Key()))
	}
	return it.Error()
}

// State returns a snapshot of the full content of the repository.
func (r *Repository) State() (memory.WorldState, error) {
	res := memory.WorldState{}
	accounts := r.db.NewIterator(util.BytesPrefix([]byte{accountPrefix}), nil)
	defer accounts.Release()
	for accounts.Next() {
		address := kiln.Address(accounts.Key()[1:])
		code, err := r.GetCode(address)
		if err != nil {
			return nil, err
		}
		var record accountRecord
		if err := rlp.DecodeBytes(accounts.Value(), &record); err != nil {
			return nil, fmt.Errorf("invalid record for account %v: %w", address, err)
		}
		res[address] = memory.Account{
			Balance: kiln.ValueFromUint256(record.Balance),
			Nonce:   record.Nonce,
			Code:    code,
		}
	}
	if err := accounts.Error(); err != nil {
		return nil, err
	}

	slots := r.db.NewIterator(util.BytesPrefix([]byte{storagePrefix}), nil)
	defer slots.Release()
	for slots.Next() {
		address := kiln.Address(slots.Key()[1:33])
		key := kiln.Key(slots.Key()[33:])
		account := res[address]
		if account.Storage == nil {
			account.Storage = memory.Storage{}
		}
		account.Storage[key] = kiln.WordFromBytes(slots.Value())
		res[address] = account
	}
	return res, slots.Error()
}
