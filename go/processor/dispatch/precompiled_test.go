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
	"errors"
	"slices"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/common"
)

func TestRegistry_DefaultRegistryContainsIstanbulContracts(t *testing.T) {
	registry := DefaultRegistry()
	want := []kiln.Address{}
	for i := byte(1); i <= 9; i++ {
		want = append(want, AddressFromEthereum(common.BytesToAddress([]byte{i})))
	}
	if got := registry.Addresses(); !slices.Equal(want, got) {
		t.Errorf("unexpected addresses, wanted %v, got %v", want, got)
	}
	if _, found := registry.Lookup(AddressFromEthereum(common.BytesToAddress([]byte{10}))); found {
		t.Errorf("unexpected contract at address 10")
	}
}

func TestRegistry_LookupRequiresExactMatch(t *testing.T) {
	registry := NewRegistry()
	address := kiln.Address{31: 0x42}
	contract := PrecompiledFunc(func(kiln.Data, kiln.Energy) *kiln.ExecutionResult { return nil })
	if err := registry.Register(address, contract); err != nil {
		t.Fatalf("failed to register contract: %v", err)
	}
	if _, found := registry.Lookup(address); !found {
		t.Errorf("registered contract not found")
	}
	if _, found := registry.Lookup(kiln.Address{30: 0x42}); found {
		t.Errorf("lookup should not match other addresses")
	}
	if err := registry.Register(address, contract); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("unexpected error, wanted %v, got %v", ErrAlreadyRegistered, err)
	}
}

func TestRegistry_NilRegistryIsEmpty(t *testing.T) {
	var registry *Registry
	if _, found := registry.Lookup(kiln.Address{}); found {
		t.Errorf("nil registry should be empty")
	}
	if len(registry.Addresses()) != 0 {
		t.Errorf("nil registry should have no addresses")
	}
}

func TestEthereumContract_ResultsDependOnEnergyAndInput(t *testing.T) {
	registry := DefaultRegistry()
	identity, _ := registry.Lookup(AddressFromEthereum(common.BytesToAddress([]byte{4})))
	bn256Add, _ := registry.Lookup(AddressFromEthereum(common.BytesToAddress([]byte{6})))

	input := bytes.Repeat([]byte{0x01}, 32)
	invalidPoints := bytes.Repeat([]byte{0xff}, 128)

	tests := map[string]struct {
		contract   kiln.PrecompiledContract
		input      kiln.Data
		energy     kiln.Energy
		code       kiln.ResultCode
		energyLeft kiln.Energy
		output     kiln.Data
	}{
		"identity-success":     {identity, input, 100, kiln.ResultSuccess, 100 - 18, input},
		"identity-exact":       {identity, input, 18, kiln.ResultSuccess, 0, input},
		"identity-out-of-nrg":  {identity, input, 17, kiln.ResultOutOfEnergy, 0, nil},
		"bn256-invalid-input":  {bn256Add, invalidPoints, 1000, kiln.ResultFailure, 0, nil},
		"bn256-out-of-nrg":     {bn256Add, invalidPoints, 10, kiln.ResultOutOfEnergy, 0, nil},
		"negative-energy":      {identity, input, -1, kiln.ResultOutOfEnergy, 0, nil},
		"identity-empty-input": {identity, nil, 15, kiln.ResultSuccess, 0, nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			res := test.contract.Execute(test.input, test.energy)
			if want, got := test.code, res.Code(); want != got {
				t.Errorf("unexpected result code, wanted %v, got %v", want, got)
			}
			if want, got := test.energyLeft, res.EnergyLeft(); want != got {
				t.Errorf("unexpected energy left, wanted %d, got %d", want, got)
			}
			if want, got := test.output, res.Output(); !bytes.Equal(want, got) {
				t.Errorf("unexpected output, wanted %x, got %x", want, got)
			}
		})
	}
}
