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
	"runtime"

	"github.com/urfave/cli/v2"
)

var (
	interpreterFlag = &cli.StringFlag{
		Name:    "interpreter",
		Aliases: []string{"i"},
		Usage:   "name of the interpreter running contract code",
		Value:   "tiny",
	}
	databaseFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "directory of a LevelDB repository; an in-memory repository is used if empty",
	}
	localFlag = &cli.BoolFlag{
		Name:  "local",
		Usage: "run transactions as local calls without modifying the repository",
	}
	showStateFlag = &cli.BoolFlag{
		Name:  "show-state",
		Usage: "print the changes of the world state after the execution",
	}
	jobsFlag = &cli.IntFlag{
		Name:    "jobs",
		Aliases: []string{"j"},
		Usage:   "number of transactions executed simultaneously",
		Value:   runtime.NumCPU(),
	}
	transactionsFlag = &cli.IntFlag{
		Name:    "transactions",
		Aliases: []string{"n"},
		Usage:   "number of transactions to execute",
		Value:   10_000,
	}
	seedFlag = &cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for the random number generator",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve Prometheus metrics on, e.g. localhost:9090; disabled if empty",
	}
)
