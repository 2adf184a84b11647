// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"

	"github.com/blinklabs-io/tally"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type balanceResult struct {
	Account     string `json:"account"`
	Balance     uint64 `json:"balance"`
	TotalSupply uint64 `json:"total_supply"`
	Symbol      string `json:"symbol"`
}

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Vote token operations",
	}
	cmd.AddCommand(
		tokenOpCommand(
			"mint <to> <amount>",
			"Mint tokens (token owner only)",
			(*tally.Node).Mint,
		),
		tokenOpCommand(
			"burn <from> <amount>",
			"Burn tokens (token owner only)",
			(*tally.Node).Burn,
		),
		tokenOpCommand(
			"transfer <to> <amount>",
			"Transfer tokens from the sender",
			(*tally.Node).Transfer,
		),
		tokenOpCommand(
			"approve <spender> <amount>",
			"Allow spender to move the sender's tokens",
			(*tally.Node).Approve,
		),
		tokenBalanceCommand(),
	)
	return cmd
}

// tokenOpCommand builds a command calling op with the sender, an account
// argument and an amount, then prints the account balance
func tokenOpCommand(
	use string,
	short string,
	op func(*tally.Node, context.Context, common.Address, common.Address, uint64) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := sender(cmd)
			if err != nil {
				return err
			}
			account, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
				if err := op(n, ctx, caller, account, amount); err != nil {
					return err
				}
				return printJSON(cmd, balanceOf(n, account))
			})
		},
	}
}

func tokenBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show the token balance of an account, the sender by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				account common.Address
				err     error
			)
			if len(args) == 1 {
				account, err = parseAddress(args[0])
			} else {
				account, err = sender(cmd)
			}
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				return printJSON(cmd, balanceOf(n, account))
			})
		},
	}
}

func balanceOf(n *tally.Node, account common.Address) balanceResult {
	token := n.Token()
	return balanceResult{
		Account:     account.Hex(),
		Balance:     token.BalanceOf(account),
		TotalSupply: token.TotalSupply(),
		Symbol:      token.Symbol(),
	}
}
