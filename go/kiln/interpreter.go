// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kiln

import "math/big"

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package kiln

// Interpreter is a component capable of executing contract byte code.
// To obtain an Interpreter instance, client code should use NewInterpreter()
// provided by the registry file in this package.
type Interpreter interface {
	// Run executes the given code in the given context. All state accesses
	// must be conducted through the given bridge. Code-internal issues like
	// running out of energy or invalid instructions are reported through the
	// result code; a non-nil error signals a fault of the interpreter itself.
	// Interpreters are required to be thread-safe.
	Run(code Code, ctx ExecutionContext, bridge StateBridge) (*ExecutionResult, error)
}

// PrecompiledContract is a natively implemented contract located at a fixed
// address. Malformed inputs are reported through the result code.
type PrecompiledContract interface {
	Execute(input Data, energyLimit Energy) *ExecutionResult
}

// StateBridge is the view of the world state offered to interpreters. All
// modifications are tracked in the scope of the current call and are only
// made permanent if the call succeeds.
type StateBridge interface {
	AccountExists(Address) bool
	CreateAccount(Address)

	GetBalance(Address) Value
	// AddBalance adds a possibly negative delta to the balance of an account.
	// It reports false and leaves the state untouched if the resulting
	// balance would be out of range.
	AddBalance(Address, *big.Int) bool
	// Transfer moves the given value between accounts. It reports false if
	// the sender's balance is insufficient.
	Transfer(from, to Address, value Value) bool

	GetNonce(Address) uint64
	IncrementNonce(Address)

	GetCode(Address) Code
	GetCodeHash(Address) Hash
	DeployCode(Address, Code)

	GetStorage(Address, Key) Word
	SetStorage(Address, Key, Word)

	MarkForDeletion(Address)
	EmitLog(Log)

	// Call runs a nested call described by the given context and returns
	// its result. Modifications of failed nested calls are discarded.
	Call(ExecutionContext) *ExecutionResult
}
