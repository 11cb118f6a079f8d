// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/repository/leveldb"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
)

// scenario is the content of an input file of the run command: a block of
// transactions and the world state they are executed on.
type scenario struct {
	Block        kiln.BlockParameters `json:"block"`
	State        memory.WorldState    `json:"state"`
	Transactions []*kiln.Transaction  `json:"transactions"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*scenario, error) {
	res := &scenario{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	for i, tx := range res.Transactions {
		if tx == nil {
			return nil, fmt.Errorf("invalid scenario: transaction %d is empty", i)
		}
		if tx.Hash == (kiln.Hash{}) {
			tx.Hash = tx.ComputeHash()
		}
	}
	if res.State == nil {
		res.State = memory.WorldState{}
	}
	return res, nil
}

// stateRepository is a repository whose content can be listed.
type stateRepository struct {
	kiln.Repository
	state func() (memory.WorldState, error)
	close func() error
}

// openRepository creates the repository transactions are executed on. If no
// directory is given, an in-memory repository is used.
func openRepository(directory string, initial memory.WorldState) (*stateRepository, error) {
	if directory == "" {
		repo := memory.NewFromState(initial)
		return &stateRepository{
			Repository: repo,
			state:      func() (memory.WorldState, error) { return repo.State(), nil },
			close:      func() error { repo.Close(); return nil },
		}, nil
	}

	repo, err := leveldb.Open(directory, leveldb.Config{})
	if err != nil {
		return nil, err
	}
	if len(initial) > 0 {
		if err := repo.Import(initial); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return &stateRepository{
		Repository: repo,
		state:      repo.State,
		close:      repo.Close,
	}, nil
}
