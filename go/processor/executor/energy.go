// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package executor

import (
	"fmt"

	"github.com/Fantom-foundation/Kiln/go/kiln"
)

const (
	TxEnergy            = 21_000
	TxCreateEnergy      = 200_000
	TxDataZeroEnergy    = 4
	TxDataNonZeroEnergy = 64
)

const ErrFeeOverflow = kiln.ConstError("fee overflow")

// IntrinsicCost is the energy charged for a transaction before any code is
// executed. It depends on the kind of the transaction and its data.
func IntrinsicCost(isContractCreation bool, data []byte) kiln.Energy {
	energy := kiln.Energy(TxEnergy)
	if isContractCreation {
		energy += TxCreateEnergy
	}
	nonZeroBytes := kiln.Energy(0)
	for _, cur := range data {
		if cur != 0 {
			nonZeroBytes++
		}
	}
	zeroBytes := kiln.Energy(len(data)) - nonZeroBytes
	// Data would need to exceed 2^63/64 bytes to overflow.
	energy += zeroBytes * TxDataZeroEnergy
	energy += nonZeroBytes * TxDataNonZeroEnergy
	return energy
}

// CoinbaseFee is the amount credited to the coinbase of a block for the
// energy used by a transaction.
func CoinbaseFee(energyUsed kiln.Energy, energyPrice kiln.Value) (kiln.Value, error) {
	fee, overflow := energyPrice.Scale(energyUsed)
	if overflow {
		return kiln.Value{}, fmt.Errorf("%w: %d * %v", ErrFeeOverflow, energyUsed, energyPrice)
	}
	return fee, nil
}

// Refund is the amount returned to the sender for the energy not used by a
// transaction.
func Refund(energyLimit, energyUsed kiln.Energy, energyPrice kiln.Value) (kiln.Value, error) {
	if energyUsed > energyLimit {
		return kiln.Value{}, fmt.Errorf("energy used %d exceeds limit %d", energyUsed, energyLimit)
	}
	refund, overflow := energyPrice.Scale(energyLimit - energyUsed)
	if overflow {
		return kiln.Value{}, fmt.Errorf("%w: %d * %v", ErrFeeOverflow, energyLimit-energyUsed, energyPrice)
	}
	return refund, nil
}
