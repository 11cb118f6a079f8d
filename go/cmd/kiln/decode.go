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

	"github.com/Fantom-foundation/Kiln/go/kiln"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

var DecodeCmd = cli.Command{
	Action:    doDecode,
	Name:      "decode",
	Usage:     "Decodes a hex encoded execution result",
	ArgsUsage: "<0x...>",
}

func doDecode(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one encoded result, got %d arguments", context.Args().Len())
	}
	data, err := hexutil.Decode(context.Args().First())
	if err != nil {
		return fmt.Errorf("invalid hex input: %w", err)
	}
	result, err := kiln.DecodeExecutionResult(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "code:        %v\n", result.Code())
	fmt.Fprintf(context.App.Writer, "energy left: %d\n", result.EnergyLeft())
	fmt.Fprintf(context.App.Writer, "output:      %v\n", result.Output())
	return nil
}
