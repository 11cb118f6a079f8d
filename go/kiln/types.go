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
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (k Key) MarshalText() ([]byte, error) {
	return bytesToText(k[:])
}

func (k *Key) UnmarshalText(data []byte) error {
	return textToBytes(k[:], data)
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (w Word) MarshalText() ([]byte, error) {
	return bytesToText(w[:])
}

func (w *Word) UnmarshalText(data []byte) error {
	return textToBytes(w[:], data)
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

func (d Data) String() string {
	return fmt.Sprintf("0x%x", []byte(d))
}

func (d Data) MarshalText() ([]byte, error) {
	return hexutil.Bytes(d).MarshalText()
}

func (d *Data) UnmarshalText(data []byte) error {
	return (*hexutil.Bytes)(d).UnmarshalText(data)
}

func (c Code) MarshalText() ([]byte, error) {
	return hexutil.Bytes(c).MarshalText()
}

func (c *Code) UnmarshalText(data []byte) error {
	return (*hexutil.Bytes)(c).UnmarshalText(data)
}

// WordFromBytes converts a big-endian encoded value into a Word. Inputs longer
// than a word are truncated by keeping the least-significant 32 bytes, shorter
// inputs are padded with leading zeros.
func WordFromBytes(data []byte) (w Word) {
	if len(data) > len(w) {
		data = data[len(data)-len(w):]
	}
	copy(w[len(w)-len(data):], data)
	return w
}

func (v Value) ToBig() *big.Int {
	return new(big.Int).SetBytes(v[:])
}

func (v Value) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(v[:])
}

func (v Value) String() string {
	return v.ToUint256().String()
}

func (v Value) Cmp(o Value) int {
	return bytes.Compare(v[:], o[:])
}

func (v Value) IsZero() bool {
	return v == Value{}
}

func (v Value) MarshalText() ([]byte, error) {
	return bytesToText(v[:])
}

func (v *Value) UnmarshalText(data []byte) error {
	return textToBytes(v[:], data)
}

// NewValue creates a new Value instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a value of zero.
func NewValue(args ...uint64) (result Value) {
	if len(args) > 4 {
		panic("too many arguments")
	}
	offset := 4 - len(args)
	for i, arg := range args {
		start := (offset + i) * 8
		binary.BigEndian.PutUint64(result[start:start+8], arg)
	}
	return
}

// ValueFromUint256 converts a *uint256.Int to a Value. A nil input yields 0.
func ValueFromUint256(value *uint256.Int) (result Value) {
	if value == nil {
		return result
	}
	return value.Bytes32()
}

// ValueFromBig converts a non-negative big integer of at most 256 bits into a
// Value. The second result is false if the input does not fit.
func ValueFromBig(value *big.Int) (Value, bool) {
	if value == nil {
		return Value{}, true
	}
	res, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		return Value{}, false
	}
	return res.Bytes32(), true
}

// Add computes a+b. The second result reports an overflow beyond 256 bits.
func Add(a, b Value) (Value, bool) {
	res, overflow := new(uint256.Int).AddOverflow(a.ToUint256(), b.ToUint256())
	return res.Bytes32(), overflow
}

// Sub computes a-b. The second result reports an underflow below zero.
func Sub(a, b Value) (Value, bool) {
	res, underflow := new(uint256.Int).SubOverflow(a.ToUint256(), b.ToUint256())
	return res.Bytes32(), underflow
}

// Scale multiplies the value by the given energy amount. The second result
// reports an overflow beyond 256 bits or a negative factor.
func (v Value) Scale(e Energy) (Value, bool) {
	if e < 0 {
		return Value{}, true
	}
	res, overflow := new(uint256.Int).MulOverflow(v.ToUint256(), uint256.NewInt(uint64(e)))
	return res.Bytes32(), overflow
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}
