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

import "fmt"

// OpCode is a single instruction of the supported subset of the EVM
// instruction set.
type OpCode byte

const (
	STOP   OpCode = 0x00
	ADD    OpCode = 0x01
	MUL    OpCode = 0x02
	SUB    OpCode = 0x03
	DIV    OpCode = 0x04
	MOD    OpCode = 0x06
	LT     OpCode = 0x10
	GT     OpCode = 0x11
	EQ     OpCode = 0x14
	ISZERO OpCode = 0x15
	AND    OpCode = 0x16
	OR     OpCode = 0x17
	XOR    OpCode = 0x18
	NOT    OpCode = 0x19
	SHL    OpCode = 0x1b
	SHR    OpCode = 0x1c
	SHA3   OpCode = 0x20

	ADDRESS        OpCode = 0x30
	BALANCE        OpCode = 0x31
	ORIGIN         OpCode = 0x32
	CALLER         OpCode = 0x33
	CALLVALUE      OpCode = 0x34
	CALLDATALOAD   OpCode = 0x35
	CALLDATASIZE   OpCode = 0x36
	CALLDATACOPY   OpCode = 0x37
	CODESIZE       OpCode = 0x38
	CODECOPY       OpCode = 0x39
	GASPRICE       OpCode = 0x3a
	RETURNDATASIZE OpCode = 0x3d
	RETURNDATACOPY OpCode = 0x3e
	EXTCODEHASH    OpCode = 0x3f

	COINBASE    OpCode = 0x41
	TIMESTAMP   OpCode = 0x42
	NUMBER      OpCode = 0x43
	DIFFICULTY  OpCode = 0x44
	GASLIMIT    OpCode = 0x45
	SELFBALANCE OpCode = 0x47

	POP      OpCode = 0x50
	MLOAD    OpCode = 0x51
	MSTORE   OpCode = 0x52
	MSTORE8  OpCode = 0x53
	SLOAD    OpCode = 0x54
	SSTORE   OpCode = 0x55
	JUMP     OpCode = 0x56
	JUMPI    OpCode = 0x57
	PC       OpCode = 0x58
	MSIZE    OpCode = 0x59
	GAS      OpCode = 0x5a
	JUMPDEST OpCode = 0x5b
	PUSH0    OpCode = 0x5f
	PUSH1    OpCode = 0x60
	PUSH32   OpCode = 0x7f
	DUP1     OpCode = 0x80
	DUP16    OpCode = 0x8f
	SWAP1    OpCode = 0x90
	SWAP16   OpCode = 0x9f
	LOG0     OpCode = 0xa0
	LOG4     OpCode = 0xa4

	CREATE       OpCode = 0xf0
	CALL         OpCode = 0xf1
	CALLCODE     OpCode = 0xf2
	RETURN       OpCode = 0xf3
	DELEGATECALL OpCode = 0xf4
	STATICCALL   OpCode = 0xfa
	REVERT       OpCode = 0xfd
	INVALID      OpCode = 0xfe
	SELFDESTRUCT OpCode = 0xff
)

// PUSH returns the opcode pushing n bytes, for 0 <= n <= 32.
func PUSH(n int) OpCode {
	if n == 0 {
		return PUSH0
	}
	return PUSH1 + OpCode(n-1)
}

func DUP(n int) OpCode {
	return DUP1 + OpCode(n-1)
}

func SWAP(n int) OpCode {
	return SWAP1 + OpCode(n-1)
}

func LOG(n int) OpCode {
	return LOG0 + OpCode(n)
}

func (op OpCode) isPush() bool {
	return PUSH1 <= op && op <= PUSH32
}

func (op OpCode) pushSize() int {
	if !op.isPush() {
		return 0
	}
	return int(op-PUSH1) + 1
}

// writes reports whether the instruction modifies the world state and is
// thus forbidden in static calls.
func (op OpCode) writes() bool {
	switch op {
	case SSTORE, CREATE, SELFDESTRUCT:
		return true
	}
	return LOG0 <= op && op <= LOG4
}

func (op OpCode) String() string {
	if info := &opInfos[op]; info.valid {
		return info.name
	}
	return fmt.Sprintf("op(0x%02x)", byte(op))
}

// opInfo describes the static properties of an instruction.
type opInfo struct {
	name   string
	valid  bool
	pops   int
	pushes int
	energy int64 // < static part of the costs
}

var opInfos = [256]opInfo{}

func def(op OpCode, name string, pops, pushes int, energy int64) {
	opInfos[op] = opInfo{name: name, valid: true, pops: pops, pushes: pushes, energy: energy}
}

func init() {
	def(STOP, "STOP", 0, 0, 0)
	def(ADD, "ADD", 2, 1, 3)
	def(MUL, "MUL", 2, 1, 5)
	def(SUB, "SUB", 2, 1, 3)
	def(DIV, "DIV", 2, 1, 5)
	def(MOD, "MOD", 2, 1, 5)
	def(LT, "LT", 2, 1, 3)
	def(GT, "GT", 2, 1, 3)
	def(EQ, "EQ", 2, 1, 3)
	def(ISZERO, "ISZERO", 1, 1, 3)
	def(AND, "AND", 2, 1, 3)
	def(OR, "OR", 2, 1, 3)
	def(XOR, "XOR", 2, 1, 3)
	def(NOT, "NOT", 1, 1, 3)
	def(SHL, "SHL", 2, 1, 3)
	def(SHR, "SHR", 2, 1, 3)
	def(SHA3, "SHA3", 2, 1, 30)

	def(ADDRESS, "ADDRESS", 0, 1, 2)
	def(BALANCE, "BALANCE", 1, 1, 400)
	def(ORIGIN, "ORIGIN", 0, 1, 2)
	def(CALLER, "CALLER", 0, 1, 2)
	def(CALLVALUE, "CALLVALUE", 0, 1, 2)
	def(CALLDATALOAD, "CALLDATALOAD", 1, 1, 3)
	def(CALLDATASIZE, "CALLDATASIZE", 0, 1, 2)
	def(CALLDATACOPY, "CALLDATACOPY", 3, 0, 3)
	def(CODESIZE, "CODESIZE", 0, 1, 2)
	def(CODECOPY, "CODECOPY", 3, 0, 3)
	def(GASPRICE, "GASPRICE", 0, 1, 2)
	def(RETURNDATASIZE, "RETURNDATASIZE", 0, 1, 2)
	def(RETURNDATACOPY, "RETURNDATACOPY", 3, 0, 3)
	def(EXTCODEHASH, "EXTCODEHASH", 1, 1, 400)

	def(COINBASE, "COINBASE", 0, 1, 2)
	def(TIMESTAMP, "TIMESTAMP", 0, 1, 2)
	def(NUMBER, "NUMBER", 0, 1, 2)
	def(DIFFICULTY, "DIFFICULTY", 0, 1, 2)
	def(GASLIMIT, "GASLIMIT", 0, 1, 2)
	def(SELFBALANCE, "SELFBALANCE", 0, 1, 5)

	def(POP, "POP", 1, 0, 2)
	def(MLOAD, "MLOAD", 1, 1, 3)
	def(MSTORE, "MSTORE", 2, 0, 3)
	def(MSTORE8, "MSTORE8", 2, 0, 3)
	def(SLOAD, "SLOAD", 1, 1, 200)
	def(SSTORE, "SSTORE", 2, 0, 0)
	def(JUMP, "JUMP", 1, 0, 8)
	def(JUMPI, "JUMPI", 2, 0, 10)
	def(PC, "PC", 0, 1, 2)
	def(MSIZE, "MSIZE", 0, 1, 2)
	def(GAS, "GAS", 0, 1, 2)
	def(JUMPDEST, "JUMPDEST", 0, 0, 1)
	def(PUSH0, "PUSH0", 0, 1, 2)
	for i := 1; i <= 32; i++ {
		def(PUSH(i), fmt.Sprintf("PUSH%d", i), 0, 1, 3)
	}
	for i := 1; i <= 16; i++ {
		def(DUP(i), fmt.Sprintf("DUP%d", i), i, i+1, 3)
		def(SWAP(i), fmt.Sprintf("SWAP%d", i), i+1, i+1, 3)
	}
	for i := 0; i <= 4; i++ {
		def(LOG(i), fmt.Sprintf("LOG%d", i), i+2, 0, int64(375*(i+1)))
	}

	def(CREATE, "CREATE", 3, 1, 32000)
	def(CALL, "CALL", 7, 1, 700)
	def(CALLCODE, "CALLCODE", 7, 1, 700)
	def(RETURN, "RETURN", 2, 0, 0)
	def(DELEGATECALL, "DELEGATECALL", 6, 1, 700)
	def(STATICCALL, "STATICCALL", 6, 1, 700)
	def(REVERT, "REVERT", 2, 0, 0)
	def(SELFDESTRUCT, "SELFDESTRUCT", 1, 0, 5000)
}
