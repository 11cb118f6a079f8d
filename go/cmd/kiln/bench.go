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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/Fantom-foundation/Kiln/go/processor/executor"
	"github.com/Fantom-foundation/Kiln/go/repository/memory"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"pgregory.net/rand"
)

var BenchCmd = cli.Command{
	Action: doBench,
	Name:   "bench",
	Usage:  "Measures the throughput of local calls executed in parallel",
	Flags: []cli.Flag{
		interpreterFlag,
		jobsFlag,
		transactionsFlag,
		seedFlag,
		metricsAddrFlag,
	},
}

var (
	benchSender   = kiln.Address{0x01}
	benchContract = kiln.Address{0x02}
)

// benchCode hashes the call data and stores the hash under the first word of
// the call data.
var benchCode = kiln.Code{
	0x36,       // CALLDATASIZE
	0x60, 0x00, // PUSH1 0
	0x60, 0x00, // PUSH1 0
	0x37,       // CALLDATACOPY
	0x36,       // CALLDATASIZE
	0x60, 0x00, // PUSH1 0
	0x20,       // SHA3
	0x60, 0x00, // PUSH1 0
	0x35,       // CALLDATALOAD
	0x55,       // SSTORE
}

// newBenchTransactions creates calls of the bench contract with random inputs.
func newBenchTransactions(count int, seed uint64) []*kiln.Transaction {
	rnd := rand.New(seed)
	res := make([]*kiln.Transaction, count)
	for i := range res {
		data := make([]byte, 32+rnd.Intn(96))
		rnd.Read(data)
		tx := &kiln.Transaction{
			Sender:      benchSender,
			Recipient:   &benchContract,
			Nonce:       uint64(i),
			Data:        data,
			EnergyLimit: 100_000,
			EnergyPrice: kiln.NewValue(1),
		}
		tx.Hash = tx.ComputeHash()
		res[i] = tx
	}
	return res
}

func doBench(context *cli.Context) error {
	interpreter, err := kiln.NewInterpreter(context.String(interpreterFlag.Name))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector := executor.NewCollector(registry)
	if addr := context.String(metricsAddrFlag.Name); addr != "" {
		server := &http.Server{
			Addr:    addr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "err", err)
			}
		}()
		defer server.Close()
		log.Info("Serving metrics", "addr", addr)
	}

	repo := memory.NewFromState(memory.WorldState{
		benchSender:   {Balance: kiln.NewValue(1 << 62)},
		benchContract: {Code: benchCode},
	})
	defer repo.Close()

	txs := newBenchTransactions(context.Int(transactionsFlag.Name), context.Uint64(seedFlag.Name))
	block := kiln.BlockParameters{Number: 1, EnergyLimit: 1 << 40}
	jobs := context.Int(jobsFlag.Name)

	start := time.Now()
	summaries, err := executor.CallAll(
		context.Context, txs, block, repo,
		executor.Config{Interpreter: interpreter}, jobs,
		executor.WithMetrics(collector),
	)
	if err != nil {
		return err
	}
	duration := time.Since(start)

	failed := 0
	energy := kiln.Energy(0)
	for _, summary := range summaries {
		if !summary.Receipt().IsSuccessful() {
			failed++
		}
		energy += summary.EnergyUsed()
	}
	rate := float64(len(summaries)) / duration.Seconds()
	fmt.Fprintf(context.App.Writer,
		"executed %d transactions (%d failed) in %v using %d jobs: %stx/s, %senergy/s\n",
		len(summaries), failed, duration.Round(time.Millisecond), jobs,
		unitconv.FormatPrefix(rate, unitconv.SI, 0),
		unitconv.FormatPrefix(float64(energy)/duration.Seconds(), unitconv.SI, 0),
	)
	return nil
}
