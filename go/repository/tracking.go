// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package repository provides infrastructure shared by Repository
// implementations: a generic tracking overlay buffering modifications on top
// of any kiln.Repository and the means to apply them atomically.
package repository

import (
	"bytes"
	"fmt"
	"maps"
	"math/big"

	"github.com/Fantom-foundation/Kiln/go/kiln"
)

// OpKind enumerates the modifications a Repository supports.
type OpKind int

const (
	OpCreateAccount OpKind = iota
	OpDeleteAccount
	OpAddBalance
	OpIncrementNonce
	OpPutCode
	OpPutStorage
)

func (k OpKind) String() string {
	switch k {
	case OpCreateAccount:
		return "create"
	case OpDeleteAccount:
		return "delete"
	case OpAddBalance:
		return "add_balance"
	case OpIncrementNonce:
		return "increment_nonce"
	case OpPutCode:
		return "put_code"
	case OpPutStorage:
		return "put_storage"
	default:
		return "unknown"
	}
}

// Op is a single recorded repository modification.
type Op struct {
	Kind    OpKind
	Address kiln.Address
	Delta   *big.Int  // < only for OpAddBalance
	Code    kiln.Code // < only for OpPutCode
	Key     kiln.Key  // < only for OpPutStorage
	Value   kiln.Word // < only for OpPutStorage
}

func (o Op) String() string {
	switch o.Kind {
	case OpAddBalance:
		return fmt.Sprintf("%v %v %v", o.Kind, o.Address, o.Delta)
	case OpPutCode:
		return fmt.Sprintf("%v %v %d bytes", o.Kind, o.Address, len(o.Code))
	case OpPutStorage:
		return fmt.Sprintf("%v %v %v=%v", o.Kind, o.Address, o.Key, o.Value)
	default:
		return fmt.Sprintf("%v %v", o.Kind, o.Address)
	}
}

// OpApplier is implemented by repositories that can apply a list of
// modifications atomically: either all or none of them take effect.
type OpApplier interface {
	ApplyOps([]Op) error
}

// Replay applies the given modifications one by one to the given repository.
// It stops at the first failure.
func Replay(repo kiln.Repository, ops []Op) error {
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpCreateAccount:
			err = repo.CreateAccount(op.Address)
		case OpDeleteAccount:
			err = repo.DeleteAccount(op.Address)
		case OpAddBalance:
			err = repo.AddBalance(op.Address, op.Delta)
		case OpIncrementNonce:
			err = repo.IncrementNonce(op.Address)
		case OpPutCode:
			err = repo.PutCode(op.Address, op.Code)
		case OpPutStorage:
			err = repo.PutStorage(op.Address, op.Key, op.Value)
		default:
			err = fmt.Errorf("unknown operation %v", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %v: %w", op, err)
		}
	}
	return nil
}

// Apply applies the modifications to the given repository atomically if the
// repository supports it and one by one otherwise.
func Apply(repo kiln.Repository, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if applier, ok := repo.(OpApplier); ok {
		return applier.ApplyOps(ops)
	}
	return Replay(repo, ops)
}

// Change is the final state of an account modified in a Tracking view.
type Change struct {
	Address kiln.Address
	Exists  bool
	Balance kiln.Value
	Nonce   uint64
	Code    kiln.Code
	// StorageCleared is set if all storage of the account present in the
	// parent repository is to be removed before Storage is applied.
	StorageCleared bool
	Storage        map[kiln.Key]kiln.Word
}

type trackedAccount struct {
	exists         bool
	balance        kiln.Value
	nonce          uint64
	code           kiln.Code
	storage        map[kiln.Key]kiln.Word
	storageCleared bool
}

func (a *trackedAccount) clone() *trackedAccount {
	res := *a
	res.code = bytes.Clone(a.code)
	res.storage = maps.Clone(a.storage)
	return &res
}

// Tracking is a kiln.TrackingRepository buffering all modifications on top
// of a parent repository. Reads consult the buffered state first and fall
// back to the parent. A Tracking view is not safe for concurrent use.
type Tracking struct {
	parent   kiln.Repository
	accounts map[kiln.Address]*trackedAccount
	order    []kiln.Address
	ops      []Op
}

var _ kiln.TrackingRepository = (*Tracking)(nil)

func NewTracking(parent kiln.Repository) *Tracking {
	return &Tracking{
		parent:   parent,
		accounts: map[kiln.Address]*trackedAccount{},
	}
}

// Ops lists the modifications buffered so far.
func (t *Tracking) Ops() []Op {
	return append([]Op(nil), t.ops...)
}

// Changes summarizes the buffered modifications as the final states of the
// modified accounts in the order the accounts were first modified.
func (t *Tracking) Changes() []Change {
	res := make([]Change, 0, len(t.order))
	for _, address := range t.order {
		account := t.accounts[address]
		res = append(res, Change{
			Address:        address,
			Exists:         account.exists,
			Balance:        account.balance,
			Nonce:          account.nonce,
			Code:           bytes.Clone(account.code),
			StorageCleared: account.storageCleared,
			Storage:        maps.Clone(account.storage),
		})
	}
	return res
}

func (t *Tracking) load(address kiln.Address) (*trackedAccount, error) {
	if account, found := t.accounts[address]; found {
		return account, nil
	}
	exists, err := t.parent.HasAccount(address)
	if err != nil {
		return nil, err
	}
	account := &trackedAccount{exists: exists, storage: map[kiln.Key]kiln.Word{}}
	if exists {
		if account.balance, err = t.parent.GetBalance(address); err != nil {
			return nil, err
		}
		if account.nonce, err = t.parent.GetNonce(address); err != nil {
			return nil, err
		}
		if account.code, err = t.parent.GetCode(address); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// modify loads the account, applies the given update and records the
// operation if the update succeeds.
func (t *Tracking) modify(op Op, update func(*trackedAccount) error) error {
	account, err := t.load(op.Address)
	if err != nil {
		return err
	}
	if _, found := t.accounts[op.Address]; !found {
		t.accounts[op.Address] = account
	}
	if err := update(account); err != nil {
		return err
	}
	if !t.isDirty(op.Address) {
		t.order = append(t.order, op.Address)
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *Tracking) isDirty(address kiln.Address) bool {
	for _, cur := range t.order {
		if cur == address {
			return true
		}
	}
	return false
}

func (t *Tracking) HasAccount(address kiln.Address) (bool, error) {
	account, err := t.load(address)
	if err != nil {
		return false, err
	}
	return account.exists, nil
}

func (t *Tracking) CreateAccount(address kiln.Address) error {
	return t.modify(Op{Kind: OpCreateAccount, Address: address}, func(a *trackedAccount) error {
		a.exists = true
		return nil
	})
}

func (t *Tracking) DeleteAccount(address kiln.Address) error {
	return t.modify(Op{Kind: OpDeleteAccount, Address: address}, func(a *trackedAccount) error {
		*a = trackedAccount{storage: map[kiln.Key]kiln.Word{}, storageCleared: true}
		return nil
	})
}

func (t *Tracking) GetBalance(address kiln.Address) (kiln.Value, error) {
	account, err := t.load(address)
	if err != nil {
		return kiln.Value{}, err
	}
	return account.balance, nil
}

func (t *Tracking) AddBalance(address kiln.Address, delta *big.Int) error {
	if delta == nil {
		delta = new(big.Int)
	}
	delta = new(big.Int).Set(delta)
	return t.modify(Op{Kind: OpAddBalance, Address: address, Delta: delta}, func(a *trackedAccount) error {
		balance, err := AddToBalance(a.balance, delta)
		if err != nil {
			return fmt.Errorf("account %v: %w", address, err)
		}
		a.balance = balance
		a.exists = true
		return nil
	})
}

func (t *Tracking) GetNonce(address kiln.Address) (uint64, error) {
	account, err := t.load(address)
	if err != nil {
		return 0, err
	}
	return account.nonce, nil
}

func (t *Tracking) IncrementNonce(address kiln.Address) error {
	return t.modify(Op{Kind: OpIncrementNonce, Address: address}, func(a *trackedAccount) error {
		a.nonce++
		a.exists = true
		return nil
	})
}

func (t *Tracking) GetCode(address kiln.Address) (kiln.Code, error) {
	account, err := t.load(address)
	if err != nil {
		return nil, err
	}
	return account.code, nil
}

func (t *Tracking) PutCode(address kiln.Address, code kiln.Code) error {
	code = bytes.Clone(code)
	return t.modify(Op{Kind: OpPutCode, Address: address, Code: code}, func(a *trackedAccount) error {
		a.code = code
		a.exists = true
		return nil
	})
}

func (t *Tracking) GetStorage(address kiln.Address, key kiln.Key) (kiln.Word, error) {
	if account, found := t.accounts[address]; found {
		if value, found := account.storage[key]; found {
			return value, nil
		}
		if account.storageCleared {
			return kiln.Word{}, nil
		}
	}
	return t.parent.GetStorage(address, key)
}

func (t *Tracking) PutStorage(address kiln.Address, key kiln.Key, value kiln.Word) error {
	return t.modify(Op{Kind: OpPutStorage, Address: address, Key: key, Value: value}, func(a *trackedAccount) error {
		a.storage[key] = value
		a.exists = true
		return nil
	})
}

func (t *Tracking) StartTracking() kiln.TrackingRepository {
	return NewTracking(t)
}

// ApplyOps replays the given modifications on this view. If any of them
// fails, the view remains unchanged.
func (t *Tracking) ApplyOps(ops []Op) error {
	child := NewTracking(t)
	if err := Replay(child, ops); err != nil {
		return err
	}
	for _, address := range child.order {
		update := child.accounts[address]
		current, found := t.accounts[address]
		if !found || update.storageCleared {
			t.accounts[address] = update.clone()
		} else {
			current.exists = update.exists
			current.balance = update.balance
			current.nonce = update.nonce
			current.code = bytes.Clone(update.code)
			for key, value := range update.storage {
				current.storage[key] = value
			}
		}
		if !t.isDirty(address) {
			t.order = append(t.order, address)
		}
	}
	t.ops = append(t.ops, child.ops...)
	return nil
}

// Flush applies all buffered modifications to the parent repository and
// resets this view. On failure the buffered modifications are retained.
func (t *Tracking) Flush() error {
	if err := Apply(t.parent, t.ops); err != nil {
		return err
	}
	t.Rollback()
	return nil
}

func (t *Tracking) Rollback() {
	t.accounts = map[kiln.Address]*trackedAccount{}
	t.order = nil
	t.ops = nil
}

// AddToBalance computes balance+delta, failing if the result is negative or
// exceeds the range of a kiln.Value.
func AddToBalance(balance kiln.Value, delta *big.Int) (kiln.Value, error) {
	sum := new(big.Int).Add(balance.ToBig(), delta)
	if sum.Sign() < 0 {
		return kiln.Value{}, fmt.Errorf("%w: %v + %v", kiln.ErrInsufficientBalance, balance, delta)
	}
	res, ok := kiln.ValueFromBig(sum)
	if !ok {
		return kiln.Value{}, fmt.Errorf("%w: %v + %v", kiln.ErrBalanceOverflow, balance, delta)
	}
	return res, nil
}
