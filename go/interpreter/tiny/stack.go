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
	"sync"

	"github.com/holiman/uint256"
)

const maxStackSize = 1024

// stack is the fixed-size 256-bit word stack of a frame. Bounds are not
// checked; the interpreter verifies the stack requirements of each
// instruction before executing it.
type stack struct {
	data [maxStackSize]uint256.Int
	size int
}

func (s *stack) push(v *uint256.Int) {
	s.data[s.size] = *v
	s.size++
}

func (s *stack) pushUint64(v uint64) {
	s.data[s.size].SetUint64(v)
	s.size++
}

func (s *stack) pushBytes32(v [32]byte) {
	s.data[s.size].SetBytes32(v[:])
	s.size++
}

// pop removes the top element. The returned pointer is only valid until the
// next push.
func (s *stack) pop() *uint256.Int {
	s.size--
	return &s.data[s.size]
}

func (s *stack) peek() *uint256.Int {
	return &s.data[s.size-1]
}

func (s *stack) peekN(n int) *uint256.Int {
	return &s.data[s.size-n-1]
}

func (s *stack) dup(n int) {
	s.data[s.size] = s.data[s.size-n]
	s.size++
}

func (s *stack) swap(n int) {
	s.data[s.size-1], s.data[s.size-n-1] = s.data[s.size-n-1], s.data[s.size-1]
}

func (s *stack) len() int {
	return s.size
}

var stackPool = sync.Pool{
	New: func() any {
		return &stack{}
	},
}

func newStack() *stack {
	return stackPool.Get().(*stack)
}

func returnStack(s *stack) {
	s.size = 0
	stackPool.Put(s)
}
