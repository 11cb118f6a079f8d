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

//go:generate mockgen -source repository.go -destination repository_mock.go -package kiln

// Repository is the interface of the world state backing the execution of
// transactions. Reads of accounts that do not exist report zero values.
// Errors are reported for unreachable or inconsistent backing stores and for
// balance updates that would leave the range of a Value.
type Repository interface {
	HasAccount(Address) (bool, error)
	CreateAccount(Address) error
	DeleteAccount(Address) error

	GetBalance(Address) (Value, error)
	// AddBalance adds the given, possibly negative, delta to the balance of
	// the account. The account is created if needed.
	AddBalance(Address, *big.Int) error

	GetNonce(Address) (uint64, error)
	IncrementNonce(Address) error

	GetCode(Address) (Code, error)
	PutCode(Address, Code) error

	GetStorage(Address, Key) (Word, error)
	PutStorage(Address, Key, Word) error

	// StartTracking creates an isolated child view of this repository.
	// Modifications of the child are only visible in this repository once
	// the child is flushed.
	StartTracking() TrackingRepository
}

// TrackingRepository is a child view of a Repository buffering all
// modifications until they are flushed to the parent or rolled back.
type TrackingRepository interface {
	Repository

	// Flush applies all buffered modifications to the parent repository in
	// the order they were made and clears the buffer.
	Flush() error
	// Rollback drops all buffered modifications.
	Rollback()
}

const (
	ErrInsufficientBalance = ConstError("insufficient balance")
	ErrBalanceOverflow     = ConstError("balance overflow")
)
