// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package dispatch

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"golang.org/x/exp/maps"
)

const ErrAlreadyRegistered = kiln.ConstError("precompiled contract already registered")

// Registry maps addresses to precompiled contracts. A registry must not be
// modified while it is used by a Dispatcher.
type Registry struct {
	contracts map[kiln.Address]kiln.PrecompiledContract
}

func NewRegistry() *Registry {
	return &Registry{contracts: map[kiln.Address]kiln.PrecompiledContract{}}
}

// DefaultRegistry creates a registry with the Istanbul set of precompiled
// contracts of go-ethereum at the addresses 0x00..01 to 0x00..09.
func DefaultRegistry() *Registry {
	res := NewRegistry()
	for address, contract := range geth.PrecompiledContractsIstanbul {
		res.contracts[AddressFromEthereum(address)] = FromEthereum(contract)
	}
	return res
}

// AddressFromEthereum widens a 20 byte address into a kiln.Address by padding
// it with leading zeros.
func AddressFromEthereum(address common.Address) kiln.Address {
	var res kiln.Address
	copy(res[len(res)-common.AddressLength:], address[:])
	return res
}

func (r *Registry) Register(address kiln.Address, contract kiln.PrecompiledContract) error {
	if _, found := r.contracts[address]; found {
		return fmt.Errorf("%w: %v", ErrAlreadyRegistered, address)
	}
	r.contracts[address] = contract
	return nil
}

// Lookup returns the contract registered for exactly the given address.
func (r *Registry) Lookup(address kiln.Address) (kiln.PrecompiledContract, bool) {
	if r == nil {
		return nil, false
	}
	contract, found := r.contracts[address]
	return contract, found
}

// Addresses lists all registered addresses in ascending order.
func (r *Registry) Addresses() []kiln.Address {
	if r == nil {
		return nil
	}
	res := maps.Keys(r.contracts)
	slices.SortFunc(res, func(a, b kiln.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return res
}

// FromEthereum adapts a go-ethereum precompiled contract. Insufficient
// energy is reported as OUT_OF_NRG, rejected inputs as FAILURE. In both cases
// all energy is consumed.
func FromEthereum(contract geth.PrecompiledContract) kiln.PrecompiledContract {
	return &ethereumContract{contract: contract}
}

type ethereumContract struct {
	contract geth.PrecompiledContract
}

func (c *ethereumContract) Execute(input kiln.Data, energyLimit kiln.Energy) *kiln.ExecutionResult {
	cost := c.contract.RequiredGas(input)
	if energyLimit < 0 || cost > uint64(energyLimit) {
		return kiln.MustNewExecutionResult(kiln.ResultOutOfEnergy, 0, nil)
	}
	output, err := c.contract.Run(input)
	if err != nil {
		return kiln.MustNewExecutionResult(kiln.ResultFailure, 0, nil)
	}
	return kiln.MustNewExecutionResult(kiln.ResultSuccess, energyLimit-kiln.Energy(cost), output)
}

// PrecompiledFunc adapts a plain function into a precompiled contract.
type PrecompiledFunc func(input kiln.Data, energyLimit kiln.Energy) *kiln.ExecutionResult

func (f PrecompiledFunc) Execute(input kiln.Data, energyLimit kiln.Energy) *kiln.ExecutionResult {
	return f(input, energyLimit)
}
