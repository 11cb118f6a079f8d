// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package executor

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/interpreter/tiny"
	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/processor/dispatch"
	"github.com/Fantom-foundation/Kiln/go/processor/executor"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
	"go.uber.org/mock/gomock"
)

var (
	sender   = kiln.Address{1}
	receiver = kiln.Address{2}
	contract = kiln.Address{3}
	coinbase = kiln.Address{0xc0}
)

const initialBalance = 1_000_000

var block = kiln.BlockParameters{
	Coinbase:    coinbase,
	Number:      12,
	Timestamp:   1_700_000_000,
	EnergyLimit: 10_000_000,
}

func code(parts ...any) kiln.Code {
	res := kiln.Code{}
	for _, part := range parts {
		switch p := part.(type) {
		case tiny.OpCode:
			res = append(res, byte(p))
		case int:
			res = append(res, byte(p))
		case []byte:
			res = append(res, p...)
		default:
			panic(fmt.Sprintf("unsupported code part %T", part))
		}
	}
	return res
}

func call(recipient kiln.Address, limit kiln.Energy, value uint64, data kiln.Data) kiln.Transaction {
	tx := kiln.Transaction{
		Sender:      sender,
		Recipient:   &recipient,
		Value:       kiln.NewValue(value),
		Data:        data,
		EnergyLimit: limit,
		EnergyPrice: kiln.NewValue(1),
	}
	tx.Hash = tx.ComputeHash()
	return tx
}

// settled is the state of the sender and coinbase after paying for the given
// amount of energy and transferring the given value.
func settled(state memory.WorldState, energyUsed kiln.Energy, value uint64) memory.WorldState {
	res := state.Clone()
	account := res[sender]
	account.Balance = kiln.NewValue(initialBalance - uint64(energyUsed) - value)
	account.Nonce++
	res[sender] = account
	res[coinbase] = memory.Account{Balance: kiln.NewValue(uint64(energyUsed))}
	return res
}

var storingContract = code(
	tiny.PUSH1, 0x2a, tiny.PUSH1, 1, tiny.SSTORE,
	tiny.PUSH1, 0x07, tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.LOG(1),
)

func storingState() memory.WorldState {
	return memory.WorldState{
		sender:   {Balance: kiln.NewValue(initialBalance)},
		contract: {Code: storingContract},
	}
}

func TestExecutor_Scenarios(t *testing.T) {
	// SSTORE of a new value, 5 pushes and LOG1 without data
	const storingEnergy = 20_000 + 5*3 + 750

	reverting := code(
		tiny.PUSH1, 1, tiny.PUSH1, 1, tiny.SSTORE,
		tiny.PUSH1, 0xee, tiny.PUSH1, 0, tiny.MSTORE8,
		tiny.PUSH1, 1, tiny.PUSH1, 0, tiny.REVERT,
	)
	// SSTORE, 6 pushes, MSTORE8 and one word of memory
	const revertingEnergy = 20_000 + 6*3 + 3 + 3

	initCode := code(
		tiny.PUSH1, 0xfe, tiny.PUSH1, 0, tiny.MSTORE8,
		tiny.PUSH1, 1, tiny.PUSH1, 0, tiny.RETURN,
	)
	// 8 non-zero and 2 zero bytes, 4 pushes, MSTORE8 and one word of memory
	const creationEnergy = 21_000 + 200_000 + 8*64 + 2*4 + 4*3 + 3 + 3
	created := kiln.NewContractAddress(sender, 0)

	base := memory.WorldState{sender: {Balance: kiln.NewValue(initialBalance)}}

	scenarios := map[string]func() Scenario{
		"value transfer": func() Scenario {
			after := settled(base, 21_000, 10)
			after[receiver] = memory.Account{Balance: kiln.NewValue(10)}
			return Scenario{
				Before:      base,
				After:       after,
				Transaction: call(receiver, 21_000, 10, nil),
				Result:      kiln.ResultSuccess,
				EnergyUsed:  21_000,
			}
		},
		"storing contract": func() Scenario {
			after := settled(storingState(), 21_000+storingEnergy, 0)
			account := after[contract]
			account.Storage = memory.Storage{{31: 1}: {31: 0x2a}}
			after[contract] = account
			return Scenario{
				Before:      storingState(),
				After:       after,
				Transaction: call(contract, 50_000, 0, nil),
				Result:      kiln.ResultSuccess,
				EnergyUsed:  21_000 + storingEnergy,
				Logs:        []kiln.Log{{Address: contract, Topics: []kiln.Hash{{31: 0x07}}, Data: kiln.Data{}}},
			}
		},
		"revert keeps remaining energy": func() Scenario {
			before := memory.WorldState{
				sender:   {Balance: kiln.NewValue(initialBalance)},
				contract: {Code: reverting},
			}
			return Scenario{
				Before:      before,
				After:       settled(before, 21_000+revertingEnergy, 0),
				Transaction: call(contract, 50_000, 5, nil),
				Result:      kiln.ResultRevert,
				EnergyUsed:  21_000 + revertingEnergy,
				Output:      kiln.Data{0xee},
			}
		},
		"out of energy consumes the limit": func() Scenario {
			return Scenario{
				Before:      storingState(),
				After:       settled(storingState(), 30_000, 0),
				Transaction: call(contract, 30_000, 0, nil),
				Result:      kiln.ResultOutOfEnergy,
				EnergyUsed:  30_000,
			}
		},
		"contract creation": func() Scenario {
			tx := call(receiver, 300_000, 0, kiln.Data(initCode))
			tx.Recipient = nil
			after := settled(base, creationEnergy, 0)
			after[created] = memory.Account{Code: kiln.Code{0xfe}}
			return Scenario{
				Before:      base,
				After:       after,
				Transaction: tx,
				Result:      kiln.ResultSuccess,
				EnergyUsed:  creationEnergy,
				Output:      kiln.Data{0xfe},
			}
		},
		"energy limit below intrinsic costs": func() Scenario {
			return Scenario{
				Before:      base,
				After:       base,
				Transaction: call(receiver, 20_000, 10, nil),
				Result:      kiln.ResultInvalidEnergy,
				Rejected:    true,
			}
		},
		"energy limit above block limit": func() Scenario {
			return Scenario{
				Before:      base,
				After:       base,
				Transaction: call(receiver, block.EnergyLimit+1, 10, nil),
				Result:      kiln.ResultInvalidEnergy,
				Rejected:    true,
			}
		},
		"nonce mismatch": func() Scenario {
			tx := call(receiver, 21_000, 10, nil)
			tx.Nonce = 3
			return Scenario{
				Before:      base,
				After:       base,
				Transaction: tx,
				Result:      kiln.ResultInvalidNonce,
				Rejected:    true,
			}
		},
		"insufficient balance": func() Scenario {
			return Scenario{
				Before:      base,
				After:       base,
				Transaction: call(receiver, 21_000, initialBalance, nil),
				Result:      kiln.ResultInsufficientBalance,
				Rejected:    true,
			}
		},
		"local call leaves no trace": func() Scenario {
			tx := call(contract, 50_000, 0, nil)
			tx.Nonce = 17
			return Scenario{
				Before:      storingState(),
				After:       storingState(),
				Transaction: tx,
				Local:       true,
				Result:      kiln.ResultSuccess,
				EnergyUsed:  21_000 + storingEnergy,
				Logs:        []kiln.Log{{Address: contract, Topics: []kiln.Hash{{31: 0x07}}, Data: kiln.Data{}}},
			}
		},
	}

	for repoName, factory := range getRepositories() {
		for name, scenario := range scenarios {
			t.Run(fmt.Sprintf("%s/%s", repoName, name), func(t *testing.T) {
				s := scenario()
				s.Block = block
				s.Run(t, factory)
			})
		}
	}
}

func TestExecutor_PrecompiledContractsAreReachable(t *testing.T) {
	echo := kiln.Address(bytes.Repeat([]byte{0x99}, 32))
	registry := dispatch.NewRegistry()
	err := registry.Register(echo, dispatch.PrecompiledFunc(func(input kiln.Data, energyLimit kiln.Energy) *kiln.ExecutionResult {
		return kiln.MustNewExecutionResult(kiln.ResultSuccess, energyLimit-100, append(kiln.Data("echo: "), input...))
	}))
	if err != nil {
		t.Fatalf("failed to register contract: %v", err)
	}

	input := kiln.Data("hi")
	energyUsed := kiln.Energy(21_000 + 2*64 + 100)
	base := memory.WorldState{sender: {Balance: kiln.NewValue(initialBalance)}}
	scenario := Scenario{
		Before:      base,
		After:       settled(base, energyUsed, 0),
		Block:       block,
		Transaction: call(echo, 50_000, 0, input),
		Result:      kiln.ResultSuccess,
		EnergyUsed:  energyUsed,
		Output:      kiln.Data("echo: hi"),
	}
	for name, factory := range getRepositories() {
		t.Run(name, func(t *testing.T) {
			dispatcher := dispatch.New(newInterpreter(t), dispatch.WithRegistry(registry))
			scenario.Run(t, factory, executor.WithDispatcher(dispatcher))
		})
	}
}

func TestExecutor_InterpreterPanicsAreContained(t *testing.T) {
	for name, factory := range getRepositories() {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := kiln.NewMockInterpreter(ctrl)
			interpreter.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ kiln.Code, ctx kiln.ExecutionContext, bridge kiln.StateBridge) (*kiln.ExecutionResult, error) {
					bridge.SetStorage(ctx.Recipient(), kiln.Key{1}, kiln.Word{1})
					panic("interpreter failure")
				})

			repo, state := factory(t, storingState())
			tx := call(contract, 50_000, 0, nil)
			summary, err := executor.New(&tx, block, repo, executor.Config{Interpreter: interpreter}).Execute()
			if err != nil {
				t.Fatalf("failed to execute transaction: %v", err)
			}
			if want, got := kiln.ResultInternalError, summary.Result().Code(); want != got {
				t.Errorf("unexpected result code, wanted %v, got %v", want, got)
			}
			if want, got := kiln.Energy(50_000), summary.EnergyUsed(); want != got {
				t.Errorf("unexpected energy used, wanted %d, got %d", want, got)
			}
			if want, got := settled(storingState(), 50_000, 0), state(); !want.Equal(got) {
				t.Errorf("unexpected world state: %v", got.Diff(want))
			}
		})
	}
}

func TestExecutor_NestedCallsCommitOnlySuccessfulFrames(t *testing.T) {
	callee := kiln.Address{4}
	failing := kiln.Address{5}

	// Calls the callee and the failing contract and stores both success flags.
	caller := code(
		tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0,
		tiny.PUSH1, 4, tiny.PUSH(2), []byte{0x80, 0x00}, tiny.CALL,
		tiny.PUSH1, 1, tiny.SSTORE,
		tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0, tiny.PUSH1, 0,
		tiny.PUSH1, 5, tiny.PUSH(2), []byte{0x80, 0x00}, tiny.CALL,
		tiny.PUSH1, 2, tiny.SSTORE,
	)
	writer := code(tiny.PUSH1, 0x11, tiny.PUSH1, 1, tiny.SSTORE)
	writeAndFail := code(tiny.PUSH1, 0x22, tiny.PUSH1, 1, tiny.SSTORE, tiny.INVALID)

	before := memory.WorldState{
		sender:   {Balance: kiln.NewValue(initialBalance)},
		contract: {Code: caller},
		callee:   {Code: writer},
		failing:  {Code: writeAndFail},
	}

	for name, factory := range getRepositories() {
		t.Run(name, func(t *testing.T) {
			repo, state := factory(t, before)
			tx := call(contract, 200_000, 0, nil)
			summary, err := executor.New(&tx, block, repo, executor.Config{Interpreter: newInterpreter(t)}).Execute()
			if err != nil {
				t.Fatalf("failed to execute transaction: %v", err)
			}
			if want, got := kiln.ResultSuccess, summary.Result().Code(); want != got {
				t.Fatalf("unexpected result code, wanted %v, got %v", want, got)
			}

			after := state()
			if want, got := (memory.Storage{{31: 1}: {31: 1}}), after[contract].Storage; !want.Equal(got) {
				t.Errorf("unexpected caller storage: %v", got)
			}
			if want, got := (memory.Storage{{31: 1}: {31: 0x11}}), after[callee].Storage; !want.Equal(got) {
				t.Errorf("unexpected callee storage: %v", got)
			}
			if !after[failing].Storage.IsEmpty() {
				t.Errorf("storage of failed call should be discarded, got %v", after[failing].Storage)
			}

			// Energy is paid by the sender and received by the coinbase.
			want := settled(before, summary.EnergyUsed(), 0)
			want[contract] = after[contract]
			want[callee] = after[callee]
			if !want.Equal(after) {
				t.Errorf("unexpected world state: %v", after.Diff(want))
			}
		})
	}
}

func TestExecutor_ExecuteBlockAccumulatesEnergy(t *testing.T) {
	for name, factory := range getRepositories() {
		t.Run(name, func(t *testing.T) {
			repo, state := factory(t, storingState())

			first := call(receiver, 21_000, 1, nil)
			second := call(contract, 50_000, 0, nil)
			second.Nonce = 1
			replay := first

			summaries, err := executor.ExecuteBlock(
				[]*kiln.Transaction{&first, &second, &replay},
				block, repo, executor.Config{Interpreter: newInterpreter(t)},
			)
			if err != nil {
				t.Fatalf("failed to execute block: %v", err)
			}
			if want, got := 3, len(summaries); want != got {
				t.Fatalf("unexpected number of summaries, wanted %d, got %d", want, got)
			}

			total := kiln.Energy(0)
			for i, summary := range summaries {
				total += summary.EnergyUsed()
				if want, got := total, summary.Receipt().CumulativeEnergyUsed(); want != got {
					t.Errorf("unexpected cumulative energy of transaction %d, wanted %d, got %d", i, want, got)
				}
			}
			if !summaries[2].IsRejected() {
				t.Errorf("replayed transaction should be rejected")
			}

			after := state()
			if want, got := uint64(2), after[sender].Nonce; want != got {
				t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
			}
			if want, got := kiln.NewValue(1), after[receiver].Balance; want != got {
				t.Errorf("unexpected receiver balance, wanted %v, got %v", want, got)
			}
			if want, got := kiln.NewValue(uint64(total)), after[coinbase].Balance; want != got {
				t.Errorf("unexpected coinbase balance, wanted %v, got %v", want, got)
			}
		})
	}
}
