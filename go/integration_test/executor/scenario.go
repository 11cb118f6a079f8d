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
	"slices"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Kiln/go/interpreter/tiny"
	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/processor/executor"
	"github.com/Fantom-foundation/Kiln/go/repository/leveldb"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
)

// Scenario describes a single transaction executed on a given world state
// together with the expected outcome.
type Scenario struct {
	Before      memory.WorldState
	After       memory.WorldState
	Block       kiln.BlockParameters
	Transaction kiln.Transaction
	Local       bool

	Result     kiln.ResultCode
	Rejected   bool
	EnergyUsed kiln.Energy
	Output     kiln.Data
	Logs       []kiln.Log
}

// repositoryFactory creates a repository holding the given state and a
// function retrieving its content.
type repositoryFactory func(t *testing.T, state memory.WorldState) (kiln.Repository, func() memory.WorldState)

func getRepositories() map[string]repositoryFactory {
	return map[string]repositoryFactory{
		"memory": func(t *testing.T, state memory.WorldState) (kiln.Repository, func() memory.WorldState) {
			repo := memory.NewFromState(state)
			return repo, repo.State
		},
		"leveldb": func(t *testing.T, state memory.WorldState) (kiln.Repository, func() memory.WorldState) {
			repo, err := leveldb.OpenInMemory(leveldb.Config{})
			if err != nil {
				t.Fatalf("failed to open repository: %v", err)
			}
			t.Cleanup(func() {
				repo.Close()
			})
			if err := repo.Import(state); err != nil {
				t.Fatalf("failed to import state: %v", err)
			}
			return repo, func() memory.WorldState {
				res, err := repo.State()
				if err != nil {
					t.Fatalf("failed to read state: %v", err)
				}
				return res
			}
		},
	}
}

func newInterpreter(t *testing.T) kiln.Interpreter {
	t.Helper()
	interpreter, err := tiny.New(tiny.Config{})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	return interpreter
}

// Run executes the scenario on a repository created by the given factory and
// checks the outcome.
func (s *Scenario) Run(t *testing.T, factory repositoryFactory, options ...executor.Option) *kiln.TxSummary {
	t.Helper()
	repo, state := factory(t, s.Before)

	tx := s.Transaction
	config := executor.Config{Local: s.Local, Interpreter: newInterpreter(t)}
	summary, err := executor.New(&tx, s.Block, repo, config, options...).Execute()
	if err != nil {
		t.Fatalf("failed to execute transaction: %v", err)
	}

	if want, got := s.Result, summary.Result().Code(); want != got {
		t.Errorf("unexpected result code, wanted %v, got %v", want, got)
	}
	if want, got := s.Rejected, summary.IsRejected(); want != got {
		t.Errorf("unexpected rejection, wanted %t, got %t", want, got)
	}
	if want, got := s.EnergyUsed, summary.EnergyUsed(); want != got {
		t.Errorf("unexpected energy used, wanted %d, got %d", want, got)
	}
	if want, got := s.Output, summary.Receipt().Output(); !bytes.Equal(want, got) {
		t.Errorf("unexpected output, wanted %x, got %x", want, got)
	}

	logs := summary.Receipt().Logs()
	if len(logs) != len(s.Logs) {
		t.Errorf("unexpected logs, wanted %v, got %v", s.Logs, logs)
	} else {
		for i, want := range s.Logs {
			got := logs[i]
			if want.Address != got.Address || !slices.Equal(want.Topics, got.Topics) || !bytes.Equal(want.Data, got.Data) {
				t.Errorf("unexpected log %d, wanted %v, got %v", i, want, got)
			}
		}
	}

	if want, got := s.After, state(); !want.Equal(got) {
		diff := strings.Join(got.Diff(want), "\n\t")
		t.Errorf("unexpected world state after the transaction:\n\t%v", diff)
	}
	return summary
}
