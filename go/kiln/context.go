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
	"strings"
)

// CallKind is an enum enabling the differentiation of the different types
// of calls an execution context may describe.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	CallCode
	Create
)

func (k CallKind) IsValid() bool {
	return k >= Call && k <= Create
}

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case DelegateCall:
		return "delegate_call"
	case CallCode:
		return "call_code"
	case Create:
		return "create"
	default:
		return "unknown"
	}
}

func (k CallKind) MarshalJSON() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("invalid call kind: %v", int(k))
	}
	return json.Marshal(k.String())
}

func (k *CallKind) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch strings.ToLower(kind) {
	case "call":
		*k = Call
	case "delegate_call":
		*k = DelegateCall
	case "call_code":
		*k = CallCode
	case "create":
		*k = Create
	default:
		return fmt.Errorf("unknown call kind: %s", kind)
	}
	return nil
}

// Flags is a bit set of call properties.
type Flags uint32

const (
	// FlagStatic marks read-only calls; state modifications fail with
	// ResultStaticModeError.
	FlagStatic Flags = 1 << iota
)

func (f Flags) IsStatic() bool {
	return f&FlagStatic != 0
}

// MaxCallDepth is the default bound for nested calls.
const MaxCallDepth = 1024

const (
	ErrInvalidCallKind = ConstError("invalid call kind")
	ErrInvalidDepth    = ConstError("invalid call depth")
)

// BlockParameters contains information about the block a transaction is
// executed in.
type BlockParameters struct {
	Coinbase    Address `json:"coinbase"`
	Number      int64   `json:"number"`
	Timestamp   int64   `json:"timestamp"`
	EnergyLimit Energy  `json:"energyLimit"`
	// Difficulty is the raw big-endian difficulty; it may be wider than a Word.
	Difficulty []byte `json:"difficulty,omitempty"`
}

// ContextParams lists the inputs of NewExecutionContext.
type ContextParams struct {
	TxHash      Hash
	Recipient   Address
	CodeAddress *Address // < nil if the code of the recipient is executed
	Origin      Address
	Caller      Address
	EnergyPrice Value
	EnergyLimit Energy
	CallValue   Value
	CallData    Data
	Depth       int
	Kind        CallKind
	Flags       Flags
	Block       BlockParameters
}

// ExecutionContext describes a single invocation of contract code. It is an
// immutable value; derived frames are created through Child.
type ExecutionContext struct {
	txHash      Hash
	recipient   Address
	codeAddress Address
	origin      Address
	caller      Address
	energyPrice Value
	energyLimit Energy
	callValue   Value
	callData    Data
	depth       int
	kind        CallKind
	flags       Flags

	coinbase         Address
	blockNumber      int64
	blockTimestamp   int64
	blockEnergyLimit Energy
	blockDifficulty  Word
}

// NewExecutionContext validates the given parameters and creates a context.
// A nil call data is normalized to an empty one and the block difficulty is
// truncated to a Word.
func NewExecutionContext(p ContextParams) (ExecutionContext, error) {
	if p.EnergyLimit < 0 {
		return ExecutionContext{}, fmt.Errorf("%w: energy limit %d", ErrNegativeEnergy, p.EnergyLimit)
	}
	if p.Block.EnergyLimit < 0 {
		return ExecutionContext{}, fmt.Errorf("%w: block energy limit %d", ErrNegativeEnergy, p.Block.EnergyLimit)
	}
	if !p.Kind.IsValid() {
		return ExecutionContext{}, fmt.Errorf("%w: %d", ErrInvalidCallKind, int(p.Kind))
	}
	if p.Depth < 0 || p.Depth > MaxCallDepth {
		return ExecutionContext{}, fmt.Errorf("%w: %d", ErrInvalidDepth, p.Depth)
	}
	data := Data{}
	if p.CallData != nil {
		data = bytes.Clone(p.CallData)
	}
	codeAddress := p.Recipient
	if p.CodeAddress != nil {
		codeAddress = *p.CodeAddress
	}
	return ExecutionContext{
		txHash:           p.TxHash,
		recipient:        p.Recipient,
		codeAddress:      codeAddress,
		origin:           p.Origin,
		caller:           p.Caller,
		energyPrice:      p.EnergyPrice,
		energyLimit:      p.EnergyLimit,
		callValue:        p.CallValue,
		callData:         data,
		depth:            p.Depth,
		kind:             p.Kind,
		flags:            p.Flags,
		coinbase:         p.Block.Coinbase,
		blockNumber:      p.Block.Number,
		blockTimestamp:   p.Block.Timestamp,
		blockEnergyLimit: p.Block.EnergyLimit,
		blockDifficulty:  WordFromBytes(p.Block.Difficulty),
	}, nil
}

func (c ExecutionContext) TxHash() Hash { return c.txHash }
func (c ExecutionContext) Recipient() Address { return c.recipient }
func (c ExecutionContext) CodeAddress() Address { return c.codeAddress }
func (c ExecutionContext) Origin() Address { return c.origin }
func (c ExecutionContext) Caller() Address { return c.caller }
func (c ExecutionContext) EnergyPrice() Value { return c.energyPrice }
func (c ExecutionContext) EnergyLimit() Energy { return c.energyLimit }
func (c ExecutionContext) CallValue() Value { return c.callValue }
func (c ExecutionContext) Depth() int { return c.depth }
func (c ExecutionContext) Kind() CallKind { return c.kind }
func (c ExecutionContext) Flags() Flags { return c.flags }
func (c ExecutionContext) Coinbase() Address { return c.coinbase }
func (c ExecutionContext) BlockNumber() int64 { return c.blockNumber }
func (c ExecutionContext) BlockTimestamp() int64 { return c.blockTimestamp }
func (c ExecutionContext) BlockEnergyLimit() Energy { return c.blockEnergyLimit }
func (c ExecutionContext) BlockDifficulty() Word { return c.blockDifficulty }

// CallData returns a copy of the input of the call, never nil.
func (c ExecutionContext) CallData() Data {
	if c.callData == nil {
		return Data{}
	}
	return bytes.Clone(c.callData)
}

// ChildParams describes a nested call derived from an existing context.
type ChildParams struct {
	Kind        CallKind
	Recipient   Address
	CodeAddress *Address // < nil if the code of the recipient is executed
	Caller      Address
	EnergyLimit Energy
	CallValue   Value
	CallData    Data
	Static      bool
}

// Child derives the context of a nested call. Transaction and block properties
// as well as the origin are inherited, the depth is incremented and the static
// flag is sticky.
func (c ExecutionContext) Child(p ChildParams) (ExecutionContext, error) {
	flags := c.flags
	if p.Static {
		flags |= FlagStatic
	}
	return NewExecutionContext(ContextParams{
		TxHash:      c.txHash,
		Recipient:   p.Recipient,
		CodeAddress: p.CodeAddress,
		Origin:      c.origin,
		Caller:      p.Caller,
		EnergyPrice: c.energyPrice,
		EnergyLimit: p.EnergyLimit,
		CallValue:   p.CallValue,
		CallData:    p.CallData,
		Depth:       c.depth + 1,
		Kind:        p.Kind,
		Flags:       flags,
		Block: BlockParameters{
			Coinbase:    c.coinbase,
			Number:      c.blockNumber,
			Timestamp:   c.blockTimestamp,
			EnergyLimit: c.blockEnergyLimit,
			Difficulty:  c.blockDifficulty[:],
		},
	})
}

func (c ExecutionContext) String() string {
	return fmt.Sprintf("%v@%d %v->%v energy=%d value=%v data=0x%x",
		c.kind, c.depth, c.caller, c.recipient, c.energyLimit, c.callValue, []byte(c.callData))
}
