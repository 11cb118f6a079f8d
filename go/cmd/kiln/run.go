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
	"strings"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/processor/executor"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Executes the transactions of a scenario file and prints their receipts",
	ArgsUsage: "<scenario.json>",
	Flags: []cli.Flag{
		interpreterFlag,
		databaseFlag,
		localFlag,
		showStateFlag,
	},
}

// report is the printed outcome of a single transaction.
type report struct {
	Hash     kiln.Hash       `json:"hash"`
	Result   kiln.ResultCode `json:"result"`
	Rejected bool            `json:"rejected,omitempty"`
	Fee      kiln.Value      `json:"fee"`
	Refund   kiln.Value      `json:"refund"`
	Deleted  []kiln.Address  `json:"deleted,omitempty"`
	Encoded  kiln.Data       `json:"encodedResult"`
	Receipt  *kiln.Receipt   `json:"receipt"`
}

func newReport(summary *kiln.TxSummary) report {
	return report{
		Hash:     summary.Transaction().Hash,
		Result:   summary.Result().Code(),
		Rejected: summary.IsRejected(),
		Fee:      summary.Fee(),
		Refund:   summary.Refund(),
		Deleted:  summary.DeletedAccounts(),
		Encoded:  summary.Result().Encode(),
		Receipt:  summary.Receipt(),
	}
}

func doRun(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one scenario file, got %d arguments", context.Args().Len())
	}
	scenario, err := loadScenario(context.Args().First())
	if err != nil {
		return err
	}

	interpreter, err := kiln.NewInterpreter(context.String(interpreterFlag.Name))
	if err != nil {
		return err
	}

	repo, err := openRepository(context.String(databaseFlag.Name), scenario.State)
	if err != nil {
		return err
	}
	defer repo.close()

	before, err := repo.state()
	if err != nil {
		return err
	}

	config := executor.Config{
		Local:       context.Bool(localFlag.Name),
		Interpreter: interpreter,
	}
	logger := log.Root()
	logger.Info("Executing block", "number", scenario.Block.Number, "transactions", len(scenario.Transactions))
	summaries, err := executor.ExecuteBlock(scenario.Transactions, scenario.Block, repo, config, executor.WithLogger(logger))
	if err != nil {
		return err
	}

	reports := make([]report, 0, len(summaries))
	for _, summary := range summaries {
		reports = append(reports, newReport(summary))
	}
	encoder := json.NewEncoder(context.App.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reports); err != nil {
		return err
	}

	if context.Bool(showStateFlag.Name) {
		after, err := repo.state()
		if err != nil {
			return err
		}
		diff := before.Diff(after)
		if len(diff) == 0 {
			fmt.Fprintln(context.App.Writer, "world state unchanged")
		} else {
			fmt.Fprintf(context.App.Writer, "world state changes:\n\t%s\n", strings.Join(diff, "\n\t"))
		}
	}
	return nil
}
