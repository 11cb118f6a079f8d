// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tiny

import (
	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/holiman/uint256"
)

// maxMemorySize bounds the memory of a frame. Accesses beyond it can never
// be paid for and are reported as running out of energy.
const maxMemorySize = 1 << 32

type memory struct {
	data []byte
}

// memoryCost is the total energy charged for a memory of the given size.
func memoryCost(size uint64) kiln.Energy {
	words := (size + 31) / 32
	return kiln.Energy(3*words + words*words/512)
}

// expansionCost computes the energy required to make the given range
// accessible. The second result is false if the range can never be covered.
func (m *memory) expansionCost(offset, size uint64) (kiln.Energy, bool) {
	if size == 0 {
		return 0, true
	}
	end := offset + size
	if offset >= maxMemorySize || size >= maxMemorySize || end > maxMemorySize {
		return 0, false
	}
	if end <= uint64(len(m.data)) {
		return 0, true
	}
	return memoryCost(end) - memoryCost(uint64(len(m.data))), true
}

// expand grows the memory to cover the given range, rounded up to words.
func (m *memory) expand(offset, size uint64) {
	if size == 0 {
		return
	}
	end := (offset + size + 31) / 32 * 32
	if end > uint64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-uint64(len(m.data)))...)
	}
}

func (m *memory) slice(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.data[offset : offset+size]
}

func (m *memory) set(offset uint64, data []byte) {
	copy(m.data[offset:], data)
}

func (m *memory) setWord(offset uint64, value *uint256.Int) {
	word := value.Bytes32()
	copy(m.data[offset:offset+32], word[:])
}

func (m *memory) len() int {
	return len(m.data)
}

// copyPadded copies data[offset:offset+size] into the memory at the given
// position. Bytes beyond the end of data are written as zeros.
func (m *memory) copyPadded(position uint64, data []byte, offset *uint256.Int, size uint64) {
	trg := m.data[position : position+size]
	clear(trg)
	if !offset.IsUint64() || offset.Uint64() >= uint64(len(data)) {
		return
	}
	copy(trg, data[offset.Uint64():])
}
