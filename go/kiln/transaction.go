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

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// ContractAddressPrefix is the leading byte of all addresses of contracts
// created by transactions.
const ContractAddressPrefix = 0xA0

// Transaction summarizes the parameters of a signed transaction. Signature
// checks are performed before a transaction reaches this package.
type Transaction struct {
	Hash        Hash     `json:"hash"`
	Sender      Address  `json:"sender"`
	Recipient   *Address `json:"recipient,omitempty"` // nil for contract creations
	Nonce       uint64   `json:"nonce"`
	Value       Value    `json:"value"`
	Data        Data     `json:"data,omitempty"`
	EnergyLimit Energy   `json:"energyLimit"`
	EnergyPrice Value    `json:"energyPrice"`
}

func (t *Transaction) IsContractCreation() bool {
	return t.Recipient == nil
}

// ContractAddress is the address of the contract created by this transaction.
func (t *Transaction) ContractAddress() Address {
	return NewContractAddress(t.Sender, t.Nonce)
}

// NewContractAddress derives the address of a contract created by the given
// account when its nonce had the given value.
func NewContractAddress(creator Address, nonce uint64) Address {
	var buffer [len(Address{}) + 8]byte
	copy(buffer[:], creator[:])
	binary.BigEndian.PutUint64(buffer[len(Address{}):], nonce)
	res := Address(blake2b.Sum256(buffer[:]))
	res[0] = ContractAddressPrefix
	return res
}

// Destination is the account targeted by the transaction: the contract address
// for creations, the recipient otherwise.
func (t *Transaction) Destination() Address {
	if t.Recipient == nil {
		return t.ContractAddress()
	}
	return *t.Recipient
}

type hashedTransaction struct {
	Sender      Address
	Recipient   []byte
	Nonce       uint64
	Value       Value
	Data        []byte
	EnergyLimit uint64
	EnergyPrice Value
}

// ComputeHash derives a hash of the transaction fields. The Hash field itself
// is not included.
func (t *Transaction) ComputeHash() Hash {
	enc := hashedTransaction{
		Sender:      t.Sender,
		Nonce:       t.Nonce,
		Value:       t.Value,
		Data:        t.Data,
		EnergyLimit: uint64(t.EnergyLimit),
		EnergyPrice: t.EnergyPrice,
	}
	if t.Recipient != nil {
		enc.Recipient = t.Recipient[:]
	}
	data, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		// All fields are plain byte arrays and integers.
		panic(err)
	}
	return blake2b.Sum256(data)
}
