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
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	_ "github.com/Fantom-foundation/Kiln/go/interpreter/tiny"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "kiln",
		Usage:     "Kiln transaction execution tool",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			verbosityFlag,
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			&RunCmd,
			&BenchCmd,
			&DecodeCmd,
		},
	}
}

var verbosityFlag = &cli.IntFlag{
	Name:  "verbosity",
	Usage: "log level, from 0 (silent) to 5 (trace)",
	Value: 3,
}

func setupLogging(context *cli.Context) error {
	verbosity := context.Int(verbosityFlag.Name)
	if verbosity <= 0 {
		log.SetDefault(log.NewLogger(log.DiscardHandler()))
		return nil
	}
	level := log.FromLegacyLevel(verbosity)
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(context.App.ErrWriter, level, false)))
	return nil
}
