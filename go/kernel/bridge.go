// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kernel implements the kiln.StateBridge offered to interpreters. A
// Bridge records all modifications of a call in an ordered log, buffers them
// in a tracking view of the repository and opens child scopes for nested
// calls. Child scopes are merged into their parent on Commit and dropped on
// Discard.
package kernel

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/crypto"
)

// MutationKind enumerates the kinds of tracked modifications.
type MutationKind int

const (
	MutationAccountCreation MutationKind = iota
	MutationBalanceDelta
	MutationNonceIncrement
	MutationCodeDeployment
	MutationStorageWrite
	MutationDeletionMark
	MutationAccountDeletion
)

func (k MutationKind) String() string {
	switch k {
	case MutationAccountCreation:
		return "account_creation"
	case MutationBalanceDelta:
		return "balance_delta"
	case MutationNonceIncrement:
		return "nonce_increment"
	case MutationCodeDeployment:
		return "code_deployment"
	case MutationStorageWrite:
		return "storage_write"
	case MutationDeletionMark:
		return "deletion_mark"
	case MutationAccountDeletion:
		return "account_deletion"
	default:
		return "unknown"
	}
}

// Mutation is a single entry of the modification log of a Bridge.
type Mutation struct {
	Kind    MutationKind
	Owner   *kiln.ExecutionContext // < the call that performed the modification
	Address kiln.Address
	Delta   *big.Int  // < only for balance deltas
	Key     kiln.Key  // < only for storage writes
	Value   kiln.Word // < only for storage writes
	Code    kiln.Code // < only for code deployments
}

// CallHandler runs nested calls issued through a bridge.
type CallHandler func(bridge *Bridge, ctx kiln.ExecutionContext) *kiln.ExecutionResult

const ErrScopeClosed = kiln.ConstError("bridge scope is closed")

// Bridge is the kiln.StateBridge implementation. A Bridge is used by a
// single execution and is not safe for concurrent use.
//
// Repository failures do not surface through the kiln.StateBridge methods.
// Instead, the first failure is recorded in the bridge and all its ancestors
// and is reported by Err; executions observing a non-nil Err must be
// aborted.
type Bridge struct {
	repo    kiln.TrackingRepository
	parent  *Bridge
	ctx     *kiln.ExecutionContext
	local   bool
	handler CallHandler
	closed  bool

	mutations []Mutation
	logs      []kiln.Log
	deleted   []kiln.Address
	err       error
}

var _ kiln.StateBridge = (*Bridge)(nil)

// New creates the root scope of an execution on top of the given repository.
// In local mode, committing the root scope does not modify the repository.
func New(repo kiln.Repository, ctx kiln.ExecutionContext, local bool) *Bridge {
	return &Bridge{
		repo:  repo.StartTracking(),
		ctx:   &ctx,
		local: local,
	}
}

// SetCallHandler installs the handler used for nested calls of this scope
// and all scopes derived from it afterwards.
func (b *Bridge) SetCallHandler(handler CallHandler) {
	b.handler = handler
}

// Track opens a child scope for the call described by the given context.
func (b *Bridge) Track(ctx kiln.ExecutionContext) *Bridge {
	return &Bridge{
		repo:    b.repo.StartTracking(),
		parent:  b,
		ctx:     &ctx,
		local:   b.local,
		handler: b.handler,
	}
}

func (b *Bridge) Context() kiln.ExecutionContext {
	return *b.ctx
}

func (b *Bridge) Parent() *Bridge {
	return b.parent
}

func (b *Bridge) IsLocal() bool {
	return b.local
}

// Err returns the first repository failure observed in this scope or any of
// its children.
func (b *Bridge) Err() error {
	return b.err
}

// Mutations returns the ordered log of modifications of this scope,
// including those of committed child scopes.
func (b *Bridge) Mutations() []Mutation {
	return slices.Clone(b.mutations)
}

// Logs returns the logs emitted in this scope and committed child scopes.
func (b *Bridge) Logs() []kiln.Log {
	return slices.Clone(b.logs)
}

// DeletedAccounts lists the accounts marked for deletion in this scope and
// committed child scopes, in the order they were first marked.
func (b *Bridge) DeletedAccounts() []kiln.Address {
	return slices.Clone(b.deleted)
}

// Commit makes the modifications of this scope permanent. For child scopes,
// modifications are merged into the parent scope. For the root scope, they
// are written to the repository unless the bridge is in local mode, in which
// case they are dropped.
func (b *Bridge) Commit() error {
	if b.closed {
		return ErrScopeClosed
	}
	if b.err != nil {
		return fmt.Errorf("cannot commit failed scope: %w", b.err)
	}
	if b.parent == nil && b.local {
		b.Discard()
		return nil
	}
	if err := b.repo.Flush(); err != nil {
		b.fail(err)
		return err
	}
	if p := b.parent; p != nil {
		p.mutations = append(p.mutations, b.mutations...)
		p.logs = append(p.logs, b.logs...)
		for _, address := range b.deleted {
			p.markDeleted(address)
		}
	}
	b.close()
	return nil
}

// Discard drops all modifications of this scope.
func (b *Bridge) Discard() {
	b.repo.Rollback()
	b.close()
}

func (b *Bridge) close() {
	b.mutations = nil
	b.logs = nil
	b.deleted = nil
	b.closed = true
}

// fail records a repository failure in this scope and all its ancestors.
func (b *Bridge) fail(err error) {
	for cur := b; cur != nil; cur = cur.parent {
		if cur.err == nil {
			cur.err = err
		}
	}
}

func (b *Bridge) check(err error) bool {
	if err != nil {
		b.fail(err)
		return false
	}
	return true
}

func (b *Bridge) record(m Mutation) {
	m.Owner = b.ctx
	b.mutations = append(b.mutations, m)
}

func (b *Bridge) markDeleted(address kiln.Address) {
	if !slices.Contains(b.deleted, address) {
		b.deleted = append(b.deleted, address)
	}
}

func (b *Bridge) AccountExists(address kiln.Address) bool {
	exists, err := b.repo.HasAccount(address)
	return b.check(err) && exists
}

func (b *Bridge) CreateAccount(address kiln.Address) {
	if b.check(b.repo.CreateAccount(address)) {
		b.record(Mutation{Kind: MutationAccountCreation, Address: address})
	}
}

func (b *Bridge) GetBalance(address kiln.Address) kiln.Value {
	balance, err := b.repo.GetBalance(address)
	if !b.check(err) {
		return kiln.Value{}
	}
	return balance
}

func (b *Bridge) AddBalance(address kiln.Address, delta *big.Int) bool {
	if delta == nil || delta.Sign() == 0 {
		return true
	}
	err := b.repo.AddBalance(address, delta)
	if errors.Is(err, kiln.ErrInsufficientBalance) || errors.Is(err, kiln.ErrBalanceOverflow) {
		return false
	}
	if !b.check(err) {
		return false
	}
	b.record(Mutation{Kind: MutationBalanceDelta, Address: address, Delta: new(big.Int).Set(delta)})
	return true
}

func (b *Bridge) Transfer(from, to kiln.Address, value kiln.Value) bool {
	if value.IsZero() || from == to {
		return b.GetBalance(from).Cmp(value) >= 0
	}
	amount := value.ToBig()
	if !b.AddBalance(from, new(big.Int).Neg(amount)) {
		return false
	}
	if !b.AddBalance(to, amount) {
		b.AddBalance(from, amount)
		return false
	}
	return true
}

func (b *Bridge) GetNonce(address kiln.Address) uint64 {
	nonce, err := b.repo.GetNonce(address)
	if !b.check(err) {
		return 0
	}
	return nonce
}

func (b *Bridge) IncrementNonce(address kiln.Address) {
	if b.check(b.repo.IncrementNonce(address)) {
		b.record(Mutation{Kind: MutationNonceIncrement, Address: address})
	}
}

func (b *Bridge) GetCode(address kiln.Address) kiln.Code {
	code, err := b.repo.GetCode(address)
	if !b.check(err) {
		return nil
	}
	return code
}

// GetCodeHash returns the Keccak256 hash of the code of an account. The hash
// of missing accounts is zero.
func (b *Bridge) GetCodeHash(address kiln.Address) kiln.Hash {
	if !b.AccountExists(address) {
		return kiln.Hash{}
	}
	return kiln.Hash(crypto.Keccak256Hash(b.GetCode(address)))
}

func (b *Bridge) DeployCode(address kiln.Address, code kiln.Code) {
	code = bytes.Clone(code)
	if b.check(b.repo.PutCode(address, code)) {
		b.record(Mutation{Kind: MutationCodeDeployment, Address: address, Code: code})
	}
}

func (b *Bridge) GetStorage(address kiln.Address, key kiln.Key) kiln.Word {
	value, err := b.repo.GetStorage(address, key)
	if !b.check(err) {
		return kiln.Word{}
	}
	return value
}

func (b *Bridge) SetStorage(address kiln.Address, key kiln.Key, value kiln.Word) {
	if b.check(b.repo.PutStorage(address, key, value)) {
		b.record(Mutation{Kind: MutationStorageWrite, Address: address, Key: key, Value: value})
	}
}

// MarkForDeletion registers an account to be deleted once the transaction
// completes successfully. The account remains accessible until then.
func (b *Bridge) MarkForDeletion(address kiln.Address) {
	b.markDeleted(address)
	b.record(Mutation{Kind: MutationDeletionMark, Address: address})
}

// DeleteAccount removes an account and all its state.
func (b *Bridge) DeleteAccount(address kiln.Address) {
	if b.check(b.repo.DeleteAccount(address)) {
		b.record(Mutation{Kind: MutationAccountDeletion, Address: address})
	}
}

func (b *Bridge) EmitLog(log kiln.Log) {
	b.logs = append(b.logs, kiln.Log{
		Address: log.Address,
		Topics:  slices.Clone(log.Topics),
		Data:    bytes.Clone(log.Data),
	})
}

// Call runs a nested call through the installed call handler. Without a
// handler, nested calls fail and return all energy.
func (b *Bridge) Call(ctx kiln.ExecutionContext) *kiln.ExecutionResult {
	if b.handler == nil {
		return kiln.MustNewExecutionResult(kiln.ResultFailure, ctx.EnergyLimit(), nil)
	}
	return b.handler(b, ctx)
}
