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
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Receipt is the durable record of the outcome of a transaction. Receipts are
// immutable and created through a ReceiptBuilder.
type Receipt struct {
	transaction          *Transaction
	energyUsed           Energy
	cumulativeEnergyUsed Energy
	bloom                Bloom
	logs                 []Log
	output               Data
	err                  string
}

func (r *Receipt) Transaction() *Transaction {
	return r.transaction
}

func (r *Receipt) EnergyUsed() Energy {
	return r.energyUsed
}

// CumulativeEnergyUsed is the energy used by this and all previous
// transactions of the same block. It equals EnergyUsed for transactions
// executed on their own.
func (r *Receipt) CumulativeEnergyUsed() Energy {
	return r.cumulativeEnergyUsed
}

func (r *Receipt) Bloom() Bloom {
	return r.bloom
}

func (r *Receipt) Logs() []Log {
	return slices.Clone(r.logs)
}

func (r *Receipt) Output() Data {
	return bytes.Clone(r.output)
}

func (r *Receipt) Error() string {
	return r.err
}

// IsValid reports whether the receipt describes an execution without error.
// Only an empty error string counts as success; any other string, including
// one consisting of whitespace only, marks a failure.
func (r *Receipt) IsValid() bool {
	return r.err == ""
}

// IsSuccessful is an alias of IsValid.
func (r *Receipt) IsSuccessful() bool {
	return r.IsValid()
}

// WithCumulativeEnergyUsed creates a copy of the receipt with the given
// cumulative energy.
func (r *Receipt) WithCumulativeEnergyUsed(energy Energy) *Receipt {
	res := *r
	res.cumulativeEnergyUsed = energy
	return &res
}

type receiptJSON struct {
	TransactionHash      Hash   `json:"transactionHash"`
	EnergyUsed           Energy `json:"energyUsed"`
	CumulativeEnergyUsed Energy `json:"cumulativeEnergyUsed"`
	Bloom                Bloom  `json:"bloom"`
	Logs                 []Log  `json:"logs"`
	Output               Data   `json:"output"`
	Error                string `json:"error"`
	Success              bool   `json:"success"`
}

func (r *Receipt) MarshalJSON() ([]byte, error) {
	logs := r.logs
	if logs == nil {
		logs = []Log{}
	}
	return json.Marshal(receiptJSON{
		TransactionHash:      r.transaction.Hash,
		EnergyUsed:           r.energyUsed,
		CumulativeEnergyUsed: r.cumulativeEnergyUsed,
		Bloom:                r.bloom,
		Logs:                 logs,
		Output:               r.Output(),
		Error:                r.err,
		Success:              r.IsSuccessful(),
	})
}

const ErrIncompleteReceipt = ConstError("incomplete receipt")

// ReceiptBuilder collects the parts of a receipt. The receipt bloom is derived
// from the logs when Build is called.
type ReceiptBuilder struct {
	transaction *Transaction
	energyUsed  Energy
	logs        []Log
	output      Data
	err         string
}

func NewReceiptBuilder() *ReceiptBuilder {
	return &ReceiptBuilder{}
}

func (b *ReceiptBuilder) Transaction(tx *Transaction) *ReceiptBuilder {
	b.transaction = tx
	return b
}

func (b *ReceiptBuilder) EnergyUsed(energy Energy) *ReceiptBuilder {
	b.energyUsed = energy
	return b
}

func (b *ReceiptBuilder) Logs(logs []Log) *ReceiptBuilder {
	b.logs = logs
	return b
}

func (b *ReceiptBuilder) Output(output Data) *ReceiptBuilder {
	b.output = output
	return b
}

func (b *ReceiptBuilder) Error(err string) *ReceiptBuilder {
	b.err = err
	return b
}

// ErrorFromCode sets the error string derived from a result code: the name of
// the code for every code but ResultSuccess, the empty string otherwise.
func (b *ReceiptBuilder) ErrorFromCode(code ResultCode) *ReceiptBuilder {
	if code.IsSuccess() {
		return b.Error("")
	}
	return b.Error(code.String())
}

func (b *ReceiptBuilder) Build() (*Receipt, error) {
	if b.transaction == nil {
		return nil, fmt.Errorf("%w: missing transaction", ErrIncompleteReceipt)
	}
	if b.energyUsed < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeEnergy, b.energyUsed)
	}
	return &Receipt{
		transaction:          b.transaction,
		energyUsed:           b.energyUsed,
		cumulativeEnergyUsed: b.energyUsed,
		bloom:                LogsBloom(b.logs),
		logs:                 slices.Clone(b.logs),
		output:               bytes.Clone(b.output),
		err:                  b.err,
	}, nil
}
