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
	"testing"

	"github.com/holiman/uint256"
)

func TestOpCode_Names(t *testing.T) {
	tests := map[OpCode]string{
		STOP:         "STOP",
		PUSH(1):      "PUSH1",
		PUSH(32):     "PUSH32",
		DUP(16):      "DUP16",
		SWAP(1):      "SWAP1",
		LOG(4):       "LOG4",
		SELFDESTRUCT: "SELFDESTRUCT",
		INVALID:      "op(0xfe)",
		OpCode(0x0c): "op(0x0c)",
	}
	for op, want := range tests {
		if got := op.String(); want != got {
			t.Errorf("unexpected name, wanted %s, got %s", want, got)
		}
	}
}

func TestOpCode_PushSize(t *testing.T) {
	if want, got := 0, PUSH0.pushSize(); want != got {
		t.Errorf("unexpected push size, wanted %d, got %d", want, got)
	}
	for i := 1; i <= 32; i++ {
		if want, got := i, PUSH(i).pushSize(); want != got {
			t.Errorf("unexpected push size, wanted %d, got %d", want, got)
		}
	}
}

func TestMemory_ExpansionIsChargedOnce(t *testing.T) {
	m := memory{}
	cost, ok := m.expansionCost(0, 64)
	if !ok {
		t.Fatalf("expansion should be possible")
	}
	if want, got := memoryCost(64), cost; want != got {
		t.Errorf("unexpected cost, wanted %d, got %d", want, got)
	}
	m.expand(0, 64)
	if cost, _ := m.expansionCost(10, 20); cost != 0 {
		t.Errorf("accessing expanded memory should be free, got %d", cost)
	}
	if _, ok := m.expansionCost(maxMemorySize, 1); ok {
		t.Errorf("accessing beyond the maximum size should fail")
	}
}

func TestMemory_CopyPaddedFillsWithZeros(t *testing.T) {
	m := memory{}
	m.expand(0, 8)
	m.set(0, []byte{9, 9, 9, 9, 9, 9, 9, 9})
	m.copyPadded(0, []byte{1, 2, 3}, uint256.NewInt(1), 4)
	if want, got := []byte{2, 3, 0, 0, 9}, m.slice(0, 5); string(want) != string(got) {
		t.Errorf("unexpected memory content, wanted %v, got %v", want, got)
	}
}

func TestStack_DupAndSwap(t *testing.T) {
	s := newStack()
	defer returnStack(s)
	s.pushUint64(1)
	s.pushUint64(2)
	s.dup(2)
	if want, got := uint64(1), s.peek().Uint64(); want != got {
		t.Errorf("unexpected top, wanted %d, got %d", want, got)
	}
	s.swap(1)
	if want, got := uint64(2), s.peek().Uint64(); want != got {
		t.Errorf("unexpected top, wanted %d, got %d", want, got)
	}
	if want, got := 3, s.len(); want != got {
		t.Errorf("unexpected size, wanted %d, got %d", want, got)
	}
}
