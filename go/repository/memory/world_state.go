// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// WorldState is a snapshot of the content of a repository, used to describe
// the states before and after test scenarios. Empty accounts are considered
// equal to missing accounts and zero storage slots to missing slots.
type WorldState map[kiln.Address]Account

// Account is the content of a single account. The zero value is an empty
// account.
type Account struct {
	Balance kiln.Value `json:"balance"`
	Nonce   uint64     `json:"nonce"`
	Code    kiln.Code  `json:"code,omitempty"`
	Storage Storage    `json:"storage,omitempty"`
}

// Storage maps keys to the values of an account's storage slots.
type Storage map[kiln.Key]kiln.Word

func (s WorldState) Equal(other WorldState) bool {
	return len(s.Diff(other)) == 0
}

func (s WorldState) Clone() WorldState {
	if s == nil {
		return nil
	}
	res := make(WorldState, len(s))
	for address, account := range s {
		res[address] = account.Clone()
	}
	return res
}

// Diff lists the differences to the given state, sorted by address.
func (s WorldState) Diff(other WorldState) []string {
	var res []string
	for _, address := range unionOfKeys(s, other, func(a, b kiln.Address) int { return bytes.Compare(a[:], b[:]) }) {
		mine, theirs := s[address], other[address]
		for _, diff := range mine.Diff(&theirs) {
			res = append(res, fmt.Sprintf("%v: %s", address, diff))
		}
	}
	return res
}

func (a *Account) IsEmpty() bool {
	return a.Balance.IsZero() && a.Nonce == 0 && len(a.Code) == 0 && a.Storage.IsEmpty()
}

func (a *Account) Equal(other *Account) bool {
	return len(a.Diff(other)) == 0
}

func (a *Account) Clone() Account {
	res := *a
	res.Code = bytes.Clone(a.Code)
	res.Storage = maps.Clone(a.Storage)
	return res
}

// Diff lists the fields in which the given account differs from this one.
func (a *Account) Diff(other *Account) []string {
	var res []string
	if a.Balance != other.Balance {
		res = append(res, fmt.Sprintf("balance %v vs %v", a.Balance, other.Balance))
	}
	if a.Nonce != other.Nonce {
		res = append(res, fmt.Sprintf("nonce %d vs %d", a.Nonce, other.Nonce))
	}
	if !bytes.Equal(a.Code, other.Code) {
		res = append(res, fmt.Sprintf("code %v vs %v", kiln.Data(a.Code), kiln.Data(other.Code)))
	}
	for _, key := range unionOfKeys(a.Storage, other.Storage, func(a, b kiln.Key) int { return bytes.Compare(a[:], b[:]) }) {
		if mine, theirs := a.Storage[key], other.Storage[key]; mine != theirs {
			res = append(res, fmt.Sprintf("storage %v: %v vs %v", key, mine, theirs))
		}
	}
	return res
}

func (s Storage) IsEmpty() bool {
	for _, value := range s {
		if value != (kiln.Word{}) {
			return false
		}
	}
	return true
}

// unionOfKeys returns the keys present in any of the given maps in the order
// defined by cmp.
func unionOfKeys[K comparable, V any](a, b map[K]V, cmp func(K, K) int) []K {
	res := maps.Keys(a)
	for key := range b {
		if _, found := a[key]; !found {
			res = append(res, key)
		}
	}
	slices.SortFunc(res, cmp)
	return res
}
