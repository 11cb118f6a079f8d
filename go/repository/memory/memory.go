// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package memory provides a thread-safe in-memory kiln.Repository.
package memory

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/repository"
)

const ErrClosed = kiln.ConstError("repository is closed")

// Repository is a kiln.Repository keeping all accounts in memory. All
// operations are safe for concurrent use; modifications buffered in tracking
// views are flushed atomically.
type Repository struct {
	mu       sync.RWMutex
	accounts map[kiln.Address]*Account
	closed   bool
}

var (
	_ kiln.Repository      = (*Repository)(nil)
	_ repository.OpApplier = (*Repository)(nil)
)

func New() *Repository {
	return &Repository{accounts: map[kiln.Address]*Account{}}
}

// NewFromState creates a repository containing a copy of the given state.
func NewFromState(state WorldState) *Repository {
	res := New()
	for address, account := range state {
		account := account.Clone()
		res.accounts[address] = &account
	}
	return res
}

// State returns a copy of the current content of the repository.
func (r *Repository) State() WorldState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make(WorldState, len(r.accounts))
	for address, account := range r.accounts {
		res[address] = account.Clone()
	}
	return res
}

// Close makes all subsequent operations fail with ErrClosed.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Repository) read(op func(*view) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return op(&view{r})
}

func (r *Repository) write(op func(*view) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return op(&view{r})
}

func (r *Repository) HasAccount(address kiln.Address) (exists bool, err error) {
	err = r.read(func(v *view) error {
		exists, err = v.HasAccount(address)
		return err
	})
	return
}

func (r *Repository) CreateAccount(address kiln.Address) error {
	return r.write(func(v *view) error { return v.createAccount(address) })
}

func (r *Repository) DeleteAccount(address kiln.Address) error {
	return r.write(func(v *view) error { return v.deleteAccount(address) })
}

func (r *Repository) GetBalance(address kiln.Address) (balance kiln.Value, err error) {
	err = r.read(func(v *view) error {
		balance, err = v.GetBalance(address)
		return err
	})
	return
}

func (r *Repository) AddBalance(address kiln.Address, delta *big.Int) error {
	return r.write(func(v *view) error { return v.addBalance(address, delta) })
}

func (r *Repository) GetNonce(address kiln.Address) (nonce uint64, err error) {
	err = r.read(func(v *view) error {
		nonce, err = v.GetNonce(address)
		return err
	})
	return
}

func (r *Repository) IncrementNonce(address kiln.Address) error {
	return r.write(func(v *view) error { return v.incrementNonce(address) })
}

func (r *Repository) GetCode(address kiln.Address) (code kiln.Code, err error) {
	err = r.read(func(v *view) error {
		code, err = v.GetCode(address)
		return err
	})
	return
}

func (r *Repository) PutCode(address kiln.Address, code kiln.Code) error {
	return r.write(func(v *view) error { return v.putCode(address, code) })
}

func (r *Repository) GetStorage(address kiln.Address, key kiln.Key) (value kiln.Word, err error) {
	err = r.read(func(v *view) error {
		value, err = v.GetStorage(address, key)
		return err
	})
	return
}

func (r *Repository) PutStorage(address kiln.Address, key kiln.Key, value kiln.Word) error {
	return r.write(func(v *view) error { return v.putStorage(address, key, value) })
}

func (r *Repository) StartTracking() kiln.TrackingRepository {
	return repository.NewTracking(r)
}

// ApplyOps applies all given modifications or, if any of them fails, none.
func (r *Repository) ApplyOps(ops []repository.Op) error {
	return r.write(func(v *view) error {
		staged := repository.NewTracking(readOnly{v})
		if err := repository.Replay(staged, ops); err != nil {
			return err
		}
		for _, change := range staged.Changes() {
			v.apply(change)
		}
		return nil
	})
}

// view implements the repository operations on the unprotected maps. Callers
// must hold the repository lock.
type view struct {
	r *Repository
}

func (v *view) HasAccount(address kiln.Address) (bool, error) {
	_, found := v.r.accounts[address]
	return found, nil
}

func (v *view) GetBalance(address kiln.Address) (kiln.Value, error) {
	if account, found := v.r.accounts[address]; found {
		return account.Balance, nil
	}
	return kiln.Value{}, nil
}

func (v *view) GetNonce(address kiln.Address) (uint64, error) {
	if account, found := v.r.accounts[address]; found {
		return account.Nonce, nil
	}
	return 0, nil
}

func (v *view) GetCode(address kiln.Address) (kiln.Code, error) {
	if account, found := v.r.accounts[address]; found {
		return bytes.Clone(account.Code), nil
	}
	return nil, nil
}

func (v *view) GetStorage(address kiln.Address, key kiln.Key) (kiln.Word, error) {
	if account, found := v.r.accounts[address]; found {
		return account.Storage[key], nil
	}
	return kiln.Word{}, nil
}

func (v *view) getOrCreate(address kiln.Address) *Account {
	account, found := v.r.accounts[address]
	if !found {
		account = &Account{}
		v.r.accounts[address] = account
	}
	return account
}

func (v *view) createAccount(address kiln.Address) error {
	v.getOrCreate(address)
	return nil
}

func (v *view) deleteAccount(address kiln.Address) error {
	delete(v.r.accounts, address)
	return nil
}

func (v *view) addBalance(address kiln.Address, delta *big.Int) error {
	if delta == nil {
		return nil
	}
	current, _ := v.GetBalance(address)
	balance, err := repository.AddToBalance(current, delta)
	if err != nil {
		return fmt.Errorf("account %v: %w", address, err)
	}
	v.getOrCreate(address).Balance = balance
	return nil
}

func (v *view) incrementNonce(address kiln.Address) error {
	v.getOrCreate(address).Nonce++
	return nil
}

func (v *view) putCode(address kiln.Address, code kiln.Code) error {
	v.getOrCreate(address).Code = bytes.Clone(code)
	return nil
}

func (v *view) putStorage(address kiln.Address, key kiln.Key, value kiln.Word) error {
	account := v.getOrCreate(address)
	if account.Storage == nil {
		account.Storage = Storage{}
	}
	if value == (kiln.Word{}) {
		delete(account.Storage, key)
	} else {
		account.Storage[key] = value
	}
	return nil
}

func (v *view) apply(change repository.Change) {
	if !change.Exists {
		delete(v.r.accounts, change.Address)
		return
	}
	account := v.getOrCreate(change.Address)
	account.Balance = change.Balance
	account.Nonce = change.Nonce
	account.Code = bytes.Clone(change.Code)
	if change.StorageCleared {
		account.Storage = nil
	}
	for key, value := range change.Storage {
		v.putStorage(change.Address, key, value)
	}
}

// readOnly exposes a view as a kiln.Repository used as the parent of staging
// overlays; staging overlays never write to their parent.
type readOnly struct {
	*view
}

const errReadOnly = kiln.ConstError("read-only view")

func (readOnly) CreateAccount(kiln.Address) error { return errReadOnly }
func (readOnly) DeleteAccount(kiln.Address) error { return errReadOnly }
func (readOnly) AddBalance(kiln.Address, *big.Int) error { return errReadOnly }
func (readOnly) IncrementNonce(kiln.Address) error { return errReadOnly }
func (readOnly) PutCode(kiln.Address, kiln.Code) error { return errReadOnly }
func (readOnly) PutStorage(kiln.Address, kiln.Key, kiln.Word) error { return errReadOnly }

func (r readOnly) StartTracking() kiln.TrackingRepository {
	return repository.NewTracking(r)
}
