// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kiln defines the data model shared by all parts of the transaction
// execution harness: execution contexts, results and their canonical encoding,
// receipts, logs and the capability interfaces of the collaborators (repository,
// state bridge, interpreter and precompiled contracts).
package kiln

// Address is a 32-byte account address.
type Address [32]byte

// Key is the address of a storage slot within an account.
type Key [32]byte

// Word is the unit of storage and the width of block level words like the
// difficulty.
type Word [32]byte

// Hash is a 32-byte hash value.
type Hash [32]byte

// Value is an unsigned 256-bit amount, used for balances, energy prices and
// call values.
type Value [32]byte

// Energy is the metered resource consumed by executions.
type Energy int64

// Code is the byte code of a contract.
type Code []byte

// Data represents the input or output of contract invocations.
type Data []byte

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}
