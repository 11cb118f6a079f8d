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
	"fmt"
	"slices"
)

// TxSummary bundles the receipt of a transaction with the bookkeeping needed
// to apply its effects to a repository.
type TxSummary struct {
	receipt  *Receipt
	result   *ExecutionResult
	deleted  []Address
	refund   Value
	fee      Value
	rejected bool
}

func (s *TxSummary) Receipt() *Receipt {
	return s.receipt
}

// Result is the final execution result, nil for summaries of transactions
// rejected before execution.
func (s *TxSummary) Result() *ExecutionResult {
	return s.result
}

func (s *TxSummary) Transaction() *Transaction {
	return s.receipt.Transaction()
}

func (s *TxSummary) EnergyUsed() Energy {
	return s.receipt.EnergyUsed()
}

func (s *TxSummary) Logs() []Log {
	return s.receipt.Logs()
}

// DeletedAccounts lists the accounts marked for deletion during a successful
// execution in the order they were marked.
func (s *TxSummary) DeletedAccounts() []Address {
	return slices.Clone(s.deleted)
}

// Refund is the amount returned to the sender for unspent energy.
func (s *TxSummary) Refund() Value {
	return s.refund
}

// Fee is the amount credited to the block coinbase.
func (s *TxSummary) Fee() Value {
	return s.fee
}

// IsRejected reports whether the transaction was refused. The effects of
// rejected transactions are never applied to a repository.
func (s *TxSummary) IsRejected() bool {
	return s.rejected
}

// WithReceipt creates a copy of the summary referencing the given receipt.
func (s *TxSummary) WithReceipt(receipt *Receipt) *TxSummary {
	res := *s
	res.receipt = receipt
	return &res
}

// SummaryBuilder assembles a TxSummary around a finished receipt.
type SummaryBuilder struct {
	summary TxSummary
}

func NewSummaryBuilder(receipt *Receipt) *SummaryBuilder {
	return &SummaryBuilder{summary: TxSummary{receipt: receipt}}
}

func (b *SummaryBuilder) Result(result *ExecutionResult) *SummaryBuilder {
	b.summary.result = result
	return b
}

func (b *SummaryBuilder) DeletedAccounts(accounts []Address) *SummaryBuilder {
	b.summary.deleted = slices.Clone(accounts)
	return b
}

func (b *SummaryBuilder) Refund(refund Value) *SummaryBuilder {
	b.summary.refund = refund
	return b
}

func (b *SummaryBuilder) Fee(fee Value) *SummaryBuilder {
	b.summary.fee = fee
	return b
}

func (b *SummaryBuilder) MarkAsRejected() *SummaryBuilder {
	b.summary.rejected = true
	return b
}

func (b *SummaryBuilder) Build() (*TxSummary, error) {
	if b.summary.receipt == nil {
		return nil, fmt.Errorf("%w: summary without receipt", ErrIncompleteReceipt)
	}
	res := b.summary
	return &res, nil
}
