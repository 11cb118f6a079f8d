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
	"context"
	"fmt"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"golang.org/x/sync/errgroup"
)

// ExecuteBlock executes the given transactions one after another on the
// given repository. The receipts of the resulting summaries carry the energy
// used by all transactions up to and including their own. Transactions
// interrupted by infrastructure failures are recorded with INTERNAL_ERROR
// receipts and do not stop the block.
func ExecuteBlock(txs []*kiln.Transaction, block kiln.BlockParameters, repo kiln.Repository, config Config, options ...Option) ([]*kiln.TxSummary, error) {
	res := make([]*kiln.TxSummary, 0, len(txs))
	cumulative := kiln.Energy(0)
	for i, tx := range txs {
		summary, err := New(tx, block, repo, config, options...).Execute()
		if summary == nil {
			return res, fmt.Errorf("transaction %d (%v): %w", i, tx.Hash, err)
		}
		cumulative += summary.EnergyUsed()
		res = append(res, summary.WithReceipt(summary.Receipt().WithCumulativeEnergyUsed(cumulative)))
	}
	return res, nil
}

// CallAll runs the given transactions as local calls on up to the given
// number of workers. Local calls never modify the repository, so the results
// are independent of the order in which they are processed. A non-positive
// number of workers imposes no limit.
func CallAll(ctx context.Context, txs []*kiln.Transaction, block kiln.BlockParameters, repo kiln.Repository, config Config, workers int, options ...Option) ([]*kiln.TxSummary, error) {
	config.Local = true
	res := make([]*kiln.TxSummary, len(txs))

	errs, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		errs.SetLimit(workers)
	}
	for i, tx := range txs {
		i, tx := i, tx
		errs.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, err := New(tx, block, repo, config, options...).Execute()
			if summary == nil {
				return fmt.Errorf("call %d (%v): %w", i, tx.Hash, err)
			}
			res[i] = summary
			return nil
		})
	}
	if err := errs.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
