// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tiny provides a small reference interpreter for a subset of the
// EVM instruction set operating on 32 byte addresses. It covers arithmetic,
// memory, storage, logs, nested calls and contract creation and is mainly
// intended for tests and tooling.
package tiny

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

func init() {
	kiln.MustRegisterInterpreterFactory("tiny", func(config any) (kiln.Interpreter, error) {
		if config == nil {
			return New(Config{})
		}
		c, ok := config.(Config)
		if !ok {
			return nil, fmt.Errorf("unsupported configuration type %T", config)
		}
		return New(c)
	})
}

// Config contains the configuration options of the interpreter.
type Config struct {
	// AnalysisCacheSize is the number of codes for which the jump destination
	// analysis is retained. If set to 0, a default size is used. If negative,
	// no cache is used.
	AnalysisCacheSize int
}

const defaultAnalysisCacheSize = 1 << 12

// Interpreter is a kiln.Interpreter. It is safe for concurrent use.
type Interpreter struct {
	analysis *lru.Cache[kiln.Hash, jumpDests]
}

var _ kiln.Interpreter = (*Interpreter)(nil)

func New(config Config) (*Interpreter, error) {
	size := config.AnalysisCacheSize
	if size == 0 {
		size = defaultAnalysisCacheSize
	}
	res := &Interpreter{}
	if size > 0 {
		cache, err := lru.New[kiln.Hash, jumpDests](size)
		if err != nil {
			return nil, err
		}
		res.analysis = cache
	}
	return res, nil
}

// jumpDests marks the positions of JUMPDEST instructions in a code.
// Positions inside of push data are never marked.
type jumpDests []bool

func (d jumpDests) contains(pos *uint256.Int) bool {
	return pos.IsUint64() && pos.Uint64() < uint64(len(d)) && d[pos.Uint64()]
}

func analyse(code kiln.Code) jumpDests {
	res := make(jumpDests, len(code))
	for pc := 0; pc < len(code); pc++ {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			res[pc] = true
		}
		pc += op.pushSize()
	}
	return res
}

func (i *Interpreter) jumpDests(code kiln.Code) jumpDests {
	if i.analysis == nil {
		return analyse(code)
	}
	hash := kiln.Hash(crypto.Keccak256Hash(code))
	if res, found := i.analysis.Get(hash); found {
		return res
	}
	res := analyse(code)
	i.analysis.Add(hash, res)
	return res
}

func (i *Interpreter) Run(code kiln.Code, ctx kiln.ExecutionContext, bridge kiln.StateBridge) (*kiln.ExecutionResult, error) {
	f := frame{
		code:      code,
		ctx:       ctx,
		bridge:    bridge,
		self:      ctx.Recipient(),
		jumpDests: i.jumpDests(code),
		energy:    ctx.EnergyLimit(),
		stack:     newStack(),
		static:    ctx.Flags().IsStatic(),
	}
	defer returnStack(f.stack)
	return f.result(f.run())
}

type status int

const (
	statusRunning status = iota
	statusStopped
	statusReturned
	statusReverted
	statusSelfDestructed
	statusFailed
	statusOutOfEnergy
	statusBadInstruction
	statusBadJump
	statusStackOverflow
	statusStackUnderflow
	statusStaticViolation
)

var statusCodes = map[status]kiln.ResultCode{
	statusFailed:          kiln.ResultFailure,
	statusOutOfEnergy:     kiln.ResultOutOfEnergy,
	statusBadInstruction:  kiln.ResultBadInstruction,
	statusBadJump:         kiln.ResultBadJumpDestination,
	statusStackOverflow:   kiln.ResultStackOverflow,
	statusStackUnderflow:  kiln.ResultStackUnderflow,
	statusStaticViolation: kiln.ResultStaticModeError,
}

type frame struct {
	code       kiln.Code
	ctx        kiln.ExecutionContext
	bridge     kiln.StateBridge
	self       kiln.Address
	jumpDests  jumpDests
	pc         int
	energy     kiln.Energy
	stack      *stack
	memory     memory
	returnData []byte
	output     []byte
	static     bool
}

func (f *frame) result(s status) (*kiln.ExecutionResult, error) {
	switch s {
	case statusStopped, statusReturned, statusSelfDestructed:
		return kiln.NewExecutionResult(kiln.ResultSuccess, f.energy, f.output)
	case statusReverted:
		return kiln.NewExecutionResult(kiln.ResultRevert, f.energy, f.output)
	}
	code, found := statusCodes[s]
	if !found {
		return nil, fmt.Errorf("unexpected execution status %d", s)
	}
	return kiln.NewExecutionResult(code, 0, nil)
}

func (f *frame) useEnergy(amount kiln.Energy) bool {
	if amount < 0 || f.energy < amount {
		return false
	}
	f.energy -= amount
	return true
}

func (f *frame) run() status {
	for {
		if f.pc >= len(f.code) {
			return statusStopped
		}
		op := OpCode(f.code[f.pc])
		info := &opInfos[op]
		if !info.valid {
			return statusBadInstruction
		}
		if f.stack.len() < info.pops {
			return statusStackUnderflow
		}
		if f.stack.len()-info.pops+info.pushes > maxStackSize {
			return statusStackOverflow
		}
		if f.static && op.writes() {
			return statusStaticViolation
		}
		if !f.useEnergy(kiln.Energy(info.energy)) {
			return statusOutOfEnergy
		}
		if s := f.execute(op); s != statusRunning {
			return s
		}
	}
}

// access makes a memory range accessible and charges the expansion costs.
func (f *frame) access(offset, size *uint256.Int) (uint64, uint64, bool) {
	if size.IsZero() {
		return 0, 0, true
	}
	if !offset.IsUint64() || !size.IsUint64() {
		return 0, 0, false
	}
	o, s := offset.Uint64(), size.Uint64()
	cost, ok := f.memory.expansionCost(o, s)
	if !ok || !f.useEnergy(cost) {
		return 0, 0, false
	}
	f.memory.expand(o, s)
	return o, s, true
}

func wordCost(size uint64, perWord kiln.Energy) kiln.Energy {
	return kiln.Energy((size+31)/32) * perWord
}

func toAddress(v *uint256.Int) kiln.Address {
	return kiln.Address(v.Bytes32())
}

func boolToWord(v *uint256.Int, b bool) {
	if b {
		v.SetOne()
	} else {
		v.Clear()
	}
}

func (f *frame) execute(op OpCode) status {
	s := f.stack
	switch {
	case op.isPush():
		n := op.pushSize()
		var data [32]byte
		start := f.pc + 1
		// Truncated push data at the end of the code is padded with zeros.
		if start < len(f.code) {
			copy(data[32-n:], f.code[start:min(start+n, len(f.code))])
		}
		s.pushBytes32(data)
		f.pc += n + 1
		return statusRunning
	case DUP1 <= op && op <= DUP16:
		s.dup(int(op-DUP1) + 1)
		f.pc++
		return statusRunning
	case SWAP1 <= op && op <= SWAP16:
		s.swap(int(op-SWAP1) + 1)
		f.pc++
		return statusRunning
	case LOG0 <= op && op <= LOG4:
		if st := f.log(int(op - LOG0)); st != statusRunning {
			return st
		}
		f.pc++
		return statusRunning
	}

	switch op {
	case STOP:
		return statusStopped
	case ADD:
		a := s.pop()
		b := s.peek()
		b.Add(a, b)
	case MUL:
		a := s.pop()
		b := s.peek()
		b.Mul(a, b)
	case SUB:
		a := s.pop()
		b := s.peek()
		b.Sub(a, b)
	case DIV:
		a := s.pop()
		b := s.peek()
		b.Div(a, b)
	case MOD:
		a := s.pop()
		b := s.peek()
		b.Mod(a, b)
	case LT:
		a := s.pop()
		b := s.peek()
		boolToWord(b, a.Lt(b))
	case GT:
		a := s.pop()
		b := s.peek()
		boolToWord(b, a.Gt(b))
	case EQ:
		a := s.pop()
		b := s.peek()
		boolToWord(b, a.Eq(b))
	case ISZERO:
		a := s.peek()
		boolToWord(a, a.IsZero())
	case AND:
		a := s.pop()
		b := s.peek()
		b.And(a, b)
	case OR:
		a := s.pop()
		b := s.peek()
		b.Or(a, b)
	case XOR:
		a := s.pop()
		b := s.peek()
		b.Xor(a, b)
	case NOT:
		a := s.peek()
		a.Not(a)
	case SHL:
		shift := s.pop()
		value := s.peek()
		if shift.LtUint64(256) {
			value.Lsh(value, uint(shift.Uint64()))
		} else {
			value.Clear()
		}
	case SHR:
		shift := s.pop()
		value := s.peek()
		if shift.LtUint64(256) {
			value.Rsh(value, uint(shift.Uint64()))
		} else {
			value.Clear()
		}
	case SHA3:
		offset := *s.pop()
		size := s.peek()
		o, n, ok := f.access(&offset, size)
		if !ok || !f.useEnergy(wordCost(n, 6)) {
			return statusOutOfEnergy
		}
		size.SetBytes(crypto.Keccak256(f.memory.slice(o, n)))

	case ADDRESS:
		s.pushBytes32(f.self)
	case BALANCE:
		a := s.peek()
		balance := f.bridge.GetBalance(toAddress(a))
		a.SetBytes32(balance[:])
	case ORIGIN:
		s.pushBytes32(f.ctx.Origin())
	case CALLER:
		s.pushBytes32(f.ctx.Caller())
	case CALLVALUE:
		s.pushBytes32(f.ctx.CallValue())
	case CALLDATALOAD:
		a := s.peek()
		var word [32]byte
		data := f.ctx.CallData()
		if a.IsUint64() && a.Uint64() < uint64(len(data)) {
			copy(word[:], data[a.Uint64():])
		}
		a.SetBytes32(word[:])
	case CALLDATASIZE:
		s.pushUint64(uint64(len(f.ctx.CallData())))
	case CALLDATACOPY:
		if st := f.copyToMemory(f.ctx.CallData()); st != statusRunning {
			return st
		}
	case CODESIZE:
		s.pushUint64(uint64(len(f.code)))
	case CODECOPY:
		if st := f.copyToMemory(f.code); st != statusRunning {
			return st
		}
	case GASPRICE:
		s.pushBytes32(f.ctx.EnergyPrice())
	case RETURNDATASIZE:
		s.pushUint64(uint64(len(f.returnData)))
	case RETURNDATACOPY:
		offset, size := s.peekN(1), s.peekN(2)
		end := new(uint256.Int)
		if _, overflow := end.AddOverflow(offset, size); overflow || !end.IsUint64() || end.Uint64() > uint64(len(f.returnData)) {
			return statusFailed
		}
		if st := f.copyToMemory(f.returnData); st != statusRunning {
			return st
		}
	case EXTCODEHASH:
		a := s.peek()
		hash := f.bridge.GetCodeHash(toAddress(a))
		a.SetBytes32(hash[:])

	case COINBASE:
		s.pushBytes32(f.ctx.Coinbase())
	case TIMESTAMP:
		s.pushUint64(uint64(f.ctx.BlockTimestamp()))
	case NUMBER:
		s.pushUint64(uint64(f.ctx.BlockNumber()))
	case DIFFICULTY:
		s.pushBytes32(f.ctx.BlockDifficulty())
	case GASLIMIT:
		s.pushUint64(uint64(f.ctx.BlockEnergyLimit()))
	case SELFBALANCE:
		s.pushBytes32(f.bridge.GetBalance(f.self))

	case POP:
		s.pop()
	case MLOAD:
		a := s.peek()
		o, _, ok := f.access(a, uint256.NewInt(32))
		if !ok {
			return statusOutOfEnergy
		}
		a.SetBytes(f.memory.slice(o, 32))
	case MSTORE:
		offset := *s.pop()
		value := *s.pop()
		o, _, ok := f.access(&offset, uint256.NewInt(32))
		if !ok {
			return statusOutOfEnergy
		}
		f.memory.setWord(o, &value)
	case MSTORE8:
		offset := *s.pop()
		value := *s.pop()
		o, _, ok := f.access(&offset, uint256.NewInt(1))
		if !ok {
			return statusOutOfEnergy
		}
		f.memory.set(o, []byte{byte(value.Uint64())})
	case SLOAD:
		a := s.peek()
		value := f.bridge.GetStorage(f.self, kiln.Key(a.Bytes32()))
		a.SetBytes32(value[:])
	case SSTORE:
		key := kiln.Key(s.pop().Bytes32())
		value := kiln.Word(s.pop().Bytes32())
		cost := kiln.Energy(5000)
		if f.bridge.GetStorage(f.self, key) == (kiln.Word{}) && value != (kiln.Word{}) {
			cost = 20000
		}
		if !f.useEnergy(cost) {
			return statusOutOfEnergy
		}
		f.bridge.SetStorage(f.self, key, value)
	case JUMP:
		target := s.pop()
		if !f.jumpDests.contains(target) {
			return statusBadJump
		}
		f.pc = int(target.Uint64())
		return statusRunning
	case JUMPI:
		target := *s.pop()
		condition := s.pop()
		if !condition.IsZero() {
			if !f.jumpDests.contains(&target) {
				return statusBadJump
			}
			f.pc = int(target.Uint64())
			return statusRunning
		}
	case PC:
		s.pushUint64(uint64(f.pc))
	case MSIZE:
		s.pushUint64(uint64(f.memory.len()))
	case GAS:
		s.pushUint64(uint64(f.energy))
	case JUMPDEST:
	case PUSH0:
		s.pushUint64(0)

	case CREATE:
		if st := f.create(); st != statusRunning {
			return st
		}
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		if st := f.call(op); st != statusRunning {
			return st
		}
	case RETURN, REVERT:
		offset := *s.pop()
		size := *s.pop()
		o, n, ok := f.access(&offset, &size)
		if !ok {
			return statusOutOfEnergy
		}
		f.output = bytes.Clone(f.memory.slice(o, n))
		if op == REVERT {
			return statusReverted
		}
		return statusReturned
	case SELFDESTRUCT:
		beneficiary := toAddress(s.pop())
		if beneficiary != f.self {
			f.bridge.Transfer(f.self, beneficiary, f.bridge.GetBalance(f.self))
		}
		f.bridge.MarkForDeletion(f.self)
		return statusSelfDestructed
	default:
		return statusBadInstruction
	}
	f.pc++
	return statusRunning
}

// copyToMemory implements the copy instructions taking a memory offset, a
// source offset and a size from the stack.
func (f *frame) copyToMemory(source []byte) status {
	memOffset := *f.stack.pop()
	srcOffset := *f.stack.pop()
	size := *f.stack.pop()
	o, n, ok := f.access(&memOffset, &size)
	if !ok || !f.useEnergy(wordCost(n, 3)) {
		return statusOutOfEnergy
	}
	if n > 0 {
		f.memory.copyPadded(o, source, &srcOffset, n)
	}
	return statusRunning
}

func (f *frame) log(numTopics int) status {
	offset := *f.stack.pop()
	size := *f.stack.pop()
	topics := make([]kiln.Hash, numTopics)
	for i := range topics {
		topics[i] = kiln.Hash(f.stack.pop().Bytes32())
	}
	o, n, ok := f.access(&offset, &size)
	if !ok || !f.useEnergy(kiln.Energy(n)*8) {
		return statusOutOfEnergy
	}
	f.bridge.EmitLog(kiln.Log{
		Address: f.self,
		Topics:  topics,
		Data:    bytes.Clone(f.memory.slice(o, n)),
	})
	return statusRunning
}

// childEnergy reserves the energy for a nested call. At most all but one
// 64th of the remaining energy is passed on.
func (f *frame) childEnergy(requested *uint256.Int) kiln.Energy {
	available := f.energy - f.energy/64
	limit := available
	if requested != nil && requested.IsUint64() && requested.Uint64() < uint64(available) {
		limit = kiln.Energy(requested.Uint64())
	}
	f.energy -= limit
	return limit
}

func (f *frame) create() status {
	s := f.stack
	value := kiln.Value(s.pop().Bytes32())
	offset := *s.pop()
	size := *s.pop()
	o, n, ok := f.access(&offset, &size)
	if !ok {
		return statusOutOfEnergy
	}
	initCode := bytes.Clone(f.memory.slice(o, n))
	f.returnData = nil

	if f.bridge.GetBalance(f.self).Cmp(value) < 0 {
		s.pushUint64(0)
		return statusRunning
	}
	nonce := f.bridge.GetNonce(f.self)
	f.bridge.IncrementNonce(f.self)
	address := kiln.NewContractAddress(f.self, nonce)

	limit := f.childEnergy(nil)
	child, err := f.ctx.Child(kiln.ChildParams{
		Kind:        kiln.Create,
		Recipient:   address,
		Caller:      f.self,
		EnergyLimit: limit,
		CallValue:   value,
		CallData:    initCode,
	})
	if err != nil {
		f.energy += limit
		s.pushUint64(0)
		return statusRunning
	}

	res := f.bridge.Call(child)
	f.energy += res.EnergyLeft()
	switch {
	case res.Code().IsSuccess():
		s.pushBytes32(address)
	case res.Code().IsRevert():
		f.returnData = res.Output()
		s.pushUint64(0)
	default:
		s.pushUint64(0)
	}
	return statusRunning
}

func (f *frame) call(op OpCode) status {
	s := f.stack
	requested := *s.pop()
	target := toAddress(s.pop())
	var value kiln.Value
	if op == CALL || op == CALLCODE {
		value = kiln.Value(s.pop().Bytes32())
	}
	inOffset, inSize := *s.pop(), *s.pop()
	outOffset, outSize := *s.pop(), *s.pop()

	if op == CALL && f.static && !value.IsZero() {
		return statusStaticViolation
	}
	in, inLen, ok := f.access(&inOffset, &inSize)
	if !ok {
		return statusOutOfEnergy
	}
	out, outLen, ok := f.access(&outOffset, &outSize)
	if !ok {
		return statusOutOfEnergy
	}
	if !value.IsZero() && !f.useEnergy(9000) {
		return statusOutOfEnergy
	}

	params := kiln.ChildParams{
		Kind:      kiln.Call,
		Recipient: target,
		Caller:    f.self,
		CallValue: value,
		CallData:  bytes.Clone(f.memory.slice(in, inLen)),
	}
	switch op {
	case CALLCODE:
		params.Kind = kiln.CallCode
		params.Recipient = f.self
		params.CodeAddress = &target
	case DELEGATECALL:
		params.Kind = kiln.DelegateCall
		params.Recipient = f.self
		params.CodeAddress = &target
		params.Caller = f.ctx.Caller()
		params.CallValue = f.ctx.CallValue()
	case STATICCALL:
		params.Static = true
	}

	params.EnergyLimit = f.childEnergy(&requested)
	child, err := f.ctx.Child(params)
	if err != nil {
		f.energy += params.EnergyLimit
		f.returnData = nil
		s.pushUint64(0)
		return statusRunning
	}

	res := f.bridge.Call(child)
	f.energy += res.EnergyLeft()
	f.returnData = res.Output()
	if outLen > 0 {
		f.memory.set(out, f.returnData[:min(uint64(len(f.returnData)), outLen)])
	}
	if res.Code().IsSuccess() {
		s.pushUint64(1)
	} else {
		s.pushUint64(0)
	}
	return statusRunning
}
