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

	"github.com/ethereum/go-ethereum/core/types"
)

// Log is the type summarizing a log message emitted as a side effect of a
// contract execution.
type Log struct {
	Address Address `json:"address"`
	Topics  []Hash  `json:"topics"`
	Data    Data    `json:"data"`
}

// Bloom returns the filter covering the log's address and topics.
func (l Log) Bloom() Bloom {
	var res Bloom
	res.Add(l.Address[:])
	for _, topic := range l.Topics {
		res.Add(topic[:])
	}
	return res
}

// BloomByteLength is the size of a bloom filter in bytes.
const BloomByteLength = types.BloomByteLength

// Bloom is a 2048-bit filter summarizing the addresses and topics of logs.
// Each entry sets three bits derived from its Keccak256 hash.
type Bloom [BloomByteLength]byte

func (b *Bloom) Add(data []byte) {
	filter := types.Bloom(*b)
	filter.Add(data)
	*b = Bloom(filter)
}

// Test reports whether the given entry may be included in the filter.
func (b Bloom) Test(data []byte) bool {
	return types.Bloom(b).Test(data)
}

// Or merges the other filter into this one.
func (b *Bloom) Or(other Bloom) {
	for i := range b {
		b[i] |= other[i]
	}
}

func (b Bloom) IsEmpty() bool {
	return b == Bloom{}
}

func (b Bloom) String() string {
	return fmt.Sprintf("0x%x", b[:])
}

func (b Bloom) MarshalText() ([]byte, error) {
	return bytesToText(b[:])
}

func (b *Bloom) UnmarshalText(data []byte) error {
	return textToBytes(b[:], data)
}

// LogsBloom combines the filters of all given logs.
func LogsBloom(logs []Log) Bloom {
	var res Bloom
	for _, log := range logs {
		res.Or(log.Bloom())
	}
	return res
}
