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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// ResultCode classifies the outcome of an execution. The integer value of each
// code is part of the canonical result encoding and must not be changed.
type ResultCode int32

const (
	ResultInternalError       ResultCode = -1
	ResultSuccess             ResultCode = 0
	ResultFailure             ResultCode = 1
	ResultOutOfEnergy         ResultCode = 2
	ResultBadInstruction      ResultCode = 3
	ResultBadJumpDestination  ResultCode = 4
	ResultStackOverflow       ResultCode = 5
	ResultStackUnderflow      ResultCode = 6
	ResultRevert              ResultCode = 7
	ResultStaticModeError     ResultCode = 8
	ResultInvalidNonce        ResultCode = 9
	ResultInvalidEnergy       ResultCode = 10
	ResultInsufficientBalance ResultCode = 11
)

var resultCodeNames = map[ResultCode]string{
	ResultInternalError:       "INTERNAL_ERROR",
	ResultSuccess:             "SUCCESS",
	ResultFailure:             "FAILURE",
	ResultOutOfEnergy:         "OUT_OF_NRG",
	ResultBadInstruction:      "BAD_INSTRUCTION",
	ResultBadJumpDestination:  "BAD_JUMP_DESTINATION",
	ResultStackOverflow:       "STACK_OVERFLOW",
	ResultStackUnderflow:      "STACK_UNDERFLOW",
	ResultRevert:              "REVERT",
	ResultStaticModeError:     "STATIC_MODE_ERROR",
	ResultInvalidNonce:        "INVALID_NONCE",
	ResultInvalidEnergy:       "INVALID_NRG",
	ResultInsufficientBalance: "INSUFFICIENT_BALANCE",
}

// AllResultCodes lists every defined result code in ascending order.
func AllResultCodes() []ResultCode {
	res := make([]ResultCode, 0, len(resultCodeNames))
	for c := ResultInternalError; c <= ResultInsufficientBalance; c++ {
		res = append(res, c)
	}
	return res
}

// ResultCodeFromInt is the inverse of ResultCode.ToInt. Integers outside of
// the defined range produce an error wrapping ErrDecode.
func ResultCodeFromInt(code int64) (ResultCode, error) {
	if code < math.MinInt32 || code > math.MaxInt32 || !ResultCode(code).IsValid() {
		return 0, fmt.Errorf("%w: unknown result code %d", ErrDecode, code)
	}
	return ResultCode(code), nil
}

func (c ResultCode) ToInt() int32 {
	return int32(c)
}

func (c ResultCode) IsValid() bool {
	_, found := resultCodeNames[c]
	return found
}

func (c ResultCode) IsSuccess() bool {
	return c == ResultSuccess
}

func (c ResultCode) IsRevert() bool {
	return c == ResultRevert
}

// IsRejected reports whether the code signals a transaction refused by the
// validation performed before any code is executed.
func (c ResultCode) IsRejected() bool {
	switch c {
	case ResultInvalidNonce, ResultInvalidEnergy, ResultInsufficientBalance:
		return true
	}
	return false
}

// IsFailed reports whether the code is neither a success nor a revert.
func (c ResultCode) IsFailed() bool {
	return !c.IsSuccess() && !c.IsRevert()
}

func (c ResultCode) String() string {
	if name, found := resultCodeNames[c]; found {
		return name
	}
	return fmt.Sprintf("RESULT_CODE(%d)", int32(c))
}

func (c ResultCode) MarshalJSON() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid result code: %d", int32(c))
	}
	return json.Marshal(c.String())
}

func (c *ResultCode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for code, cur := range resultCodeNames {
		if cur == name {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown result code: %s", name)
}

const (
	// ErrDecode is the root of all errors produced when parsing a malformed
	// canonical result encoding.
	ErrDecode = ConstError("malformed execution result encoding")

	ErrInvalidResultCode = ConstError("invalid result code")
	ErrNegativeEnergy    = ConstError("negative energy")
)

// ExecutionResult is the outcome of a single execution attempt: a result code,
// the energy left over and the produced output. The fields are validated on
// construction and on every mutation; a failed mutation leaves the result
// unchanged.
type ExecutionResult struct {
	code       ResultCode
	energyLeft Energy
	output     Data
}

// NewExecutionResult creates a validated result. The output may be nil, in
// which case it is reported as empty.
func NewExecutionResult(code ResultCode, energyLeft Energy, output Data) (*ExecutionResult, error) {
	if err := checkResultFields(code, energyLeft); err != nil {
		return nil, err
	}
	return &ExecutionResult{code: code, energyLeft: energyLeft, output: output}, nil
}

// MustNewExecutionResult is like NewExecutionResult but panics on invalid
// inputs. It is intended for constant results in implementation code.
func MustNewExecutionResult(code ResultCode, energyLeft Energy, output Data) *ExecutionResult {
	res, err := NewExecutionResult(code, energyLeft, output)
	if err != nil {
		panic(err)
	}
	return res
}

func checkResultFields(code ResultCode, energyLeft Energy) error {
	if !code.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidResultCode, int32(code))
	}
	if energyLeft < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeEnergy, energyLeft)
	}
	return nil
}

func (r *ExecutionResult) Code() ResultCode {
	return r.code
}

func (r *ExecutionResult) EnergyLeft() Energy {
	return r.energyLeft
}

// Output returns the produced output, never nil.
func (r *ExecutionResult) Output() Data {
	if r.output == nil {
		return Data{}
	}
	return r.output
}

func (r *ExecutionResult) SetCode(code ResultCode) error {
	return r.SetCodeAndEnergyLeft(code, r.energyLeft)
}

func (r *ExecutionResult) SetEnergyLeft(energyLeft Energy) error {
	return r.SetCodeAndEnergyLeft(r.code, energyLeft)
}

// SetCodeAndEnergyLeft updates both fields at once or none at all.
func (r *ExecutionResult) SetCodeAndEnergyLeft(code ResultCode, energyLeft Energy) error {
	if err := checkResultFields(code, energyLeft); err != nil {
		return err
	}
	r.code = code
	r.energyLeft = energyLeft
	return nil
}

func (r *ExecutionResult) SetOutput(output Data) {
	r.output = output
}

// Clone creates an independent copy of the result.
func (r *ExecutionResult) Clone() *ExecutionResult {
	return &ExecutionResult{
		code:       r.code,
		energyLeft: r.energyLeft,
		output:     bytes.Clone(r.output),
	}
}

// Equal compares results by value. Nil and empty outputs are equal.
func (r *ExecutionResult) Equal(other *ExecutionResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.code == other.code &&
		r.energyLeft == other.energyLeft &&
		bytes.Equal(r.output, other.output)
}

func (r *ExecutionResult) String() string {
	return fmt.Sprintf("[code = %v, energy left = %d, output = 0x%x]", r.code, r.energyLeft, []byte(r.output))
}

// resultHeaderSize is the size of the fixed part of the encoding: the code
// (int32), the energy left (int64) and the output length (int32).
const resultHeaderSize = 4 + 8 + 4

// Encode produces the canonical big-endian encoding of the result.
func (r *ExecutionResult) Encode() []byte {
	res := make([]byte, resultHeaderSize+len(r.output))
	binary.BigEndian.PutUint32(res[0:4], uint32(r.code))
	binary.BigEndian.PutUint64(res[4:12], uint64(r.energyLeft))
	binary.BigEndian.PutUint32(res[12:16], uint32(len(r.output)))
	copy(res[resultHeaderSize:], r.output)
	return res
}

// DecodeExecutionResult parses the canonical encoding produced by Encode. All
// failures wrap ErrDecode; no partially decoded result is ever returned.
func DecodeExecutionResult(data []byte) (*ExecutionResult, error) {
	if len(data) < resultHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte header", ErrDecode, len(data), resultHeaderSize)
	}
	code, err := ResultCodeFromInt(int64(int32(binary.BigEndian.Uint32(data[0:4]))))
	if err != nil {
		return nil, err
	}
	energy := int64(binary.BigEndian.Uint64(data[4:12]))
	if energy < 0 {
		return nil, fmt.Errorf("%w: negative energy %d", ErrDecode, energy)
	}
	length := int64(int32(binary.BigEndian.Uint32(data[12:16])))
	if length < 0 {
		return nil, fmt.Errorf("%w: negative output length %d", ErrDecode, length)
	}
	if want, got := length, int64(len(data)-resultHeaderSize); want != got {
		return nil, fmt.Errorf("%w: output length %d does not match the %d remaining bytes", ErrDecode, want, got)
	}
	var output Data
	if length > 0 {
		output = bytes.Clone(data[resultHeaderSize:])
	}
	return &ExecutionResult{code: code, energyLeft: Energy(energy), output: output}, nil
}
