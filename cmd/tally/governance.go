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
	"errors"
	"fmt"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/api"
	"github.com/blinklabs-io/tally/call"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

func depositCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit vote tokens into governance",
		Long: "Deposit vote tokens into governance. The sender must first approve " +
			"the governance account for the amount.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAmount(cmd, args[0], (*tally.Node).Deposit)
		},
	}
}

func withdrawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw deposited vote tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAmount(cmd, args[0], (*tally.Node).Withdraw)
		},
	}
}

func runAmount(
	cmd *cobra.Command,
	rawAmount string,
	op func(*tally.Node, context.Context, common.Address, uint64) error,
) error {
	account, err := sender(cmd)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return err
	}
	return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
		if err := op(n, ctx, account, amount); err != nil {
			return err
		}
		return printJSON(cmd, depositResponse(n.Engine(), account))
	})
}

func depositResponse(engine *governance.Engine, account common.Address) api.DepositResponse {
	resp := api.DepositResponse{
		Account: account.Hex(),
		Amount:  engine.DepositOf(account),
	}
	if until, frozen := engine.FrozenUntil(account); frozen {
		resp.FrozenUntil = &until
	}
	return resp
}

func proposeCommand() *cobra.Command {
	var (
		recipient   string
		signature   string
		callArgs    []string
		description string
	)
	cmd := &cobra.Command{
		Use:   "propose [payload-hex]",
		Short: "Create a proposal (chairman only)",
		Long: "Create a proposal. The call is given either as a hex payload or as " +
			"a method signature with --call and its arguments with --arg. The " +
			"recipient defaults to the vote token.",
		Example: "  tally propose --sender 0x... --call 'governedDemoFunction()' " +
			"--description 'run the demo'",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := sender(cmd)
			if err != nil {
				return err
			}
			var payload []byte
			switch {
			case len(args) == 1 && signature != "":
				return errors.New("give either a payload or --call, not both")
			case len(args) == 1:
				if payload, err = hexutil.Decode(args[0]); err != nil {
					return fmt.Errorf("invalid payload: %w", err)
				}
			case signature != "":
				if payload, err = call.EncodeStrings(signature, callArgs); err != nil {
					return err
				}
			default:
				return errors.New("a payload or --call is required")
			}
			return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
				target := n.Engine().VoteToken()
				if recipient != "" {
					if target, err = parseAddress(recipient); err != nil {
						return err
					}
				}
				id, err := n.Propose(ctx, caller, payload, target, description)
				if err != nil {
					return err
				}
				p, err := n.Engine().Proposal(id)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewProposalResponse(p, n.Now()))
			})
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "account the call is made on")
	cmd.Flags().StringVar(&signature, "call", "", "method signature, such as 'mint(address,uint256)'")
	cmd.Flags().StringArrayVar(&callArgs, "arg", nil, "method argument, repeat for each argument")
	cmd.Flags().StringVar(&description, "description", "", "proposal description")
	return cmd
}

func voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <proposal-id> <yes|no|abstain>",
		Short: "Vote on a proposal with the sender's full deposit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := sender(cmd)
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			decision, err := governance.ParseDecision(args[1])
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
				if err := n.CastVote(ctx, caller, id, decision); err != nil {
					return err
				}
				return printVote(cmd, n.Engine(), id, caller)
			})
		},
	}
}

func printVote(
	cmd *cobra.Command,
	engine *governance.Engine,
	id uint64,
	voter common.Address,
) error {
	vote, err := engine.VoteRecord(id, voter)
	if err != nil {
		return err
	}
	resp := api.VoteResponse{
		ProposalID: id,
		Voter:      voter.Hex(),
		Decision:   vote.Decision.String(),
		Weight:     vote.Weight,
	}
	if vote.Decision != governance.DecisionNone {
		resp.CastAt = &vote.CastAt
	}
	return printJSON(cmd, resp)
}

func executeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <proposal-id>",
		Short: "Finish a proposal whose voting period is over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := sender(cmd)
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
				outcome, err := n.Execute(ctx, caller, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.ExecuteResponse{
					ProposalID: id,
					Outcome:    outcome.String(),
				})
			})
		},
	}
}

func proposalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proposal <proposal-id>",
		Short: "Show a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				p, err := n.Engine().Proposal(id)
				if err != nil {
					return err
				}
				return printJSON(cmd, api.NewProposalResponse(p, n.Now()))
			})
		},
	}
}

func proposalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proposals",
		Short: "List all proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				now := n.Now()
				proposals := n.Engine().Proposals()
				resp := make([]api.ProposalResponse, 0, len(proposals))
				for _, p := range proposals {
					resp = append(resp, api.NewProposalResponse(p, now))
				}
				return printJSON(cmd, resp)
			})
		},
	}
}

type statusResult struct {
	api.GovernanceResponse
	ClockOffset   string               `json:"clock_offset"`
	GovernedValue uint64               `json:"governed_value"`
	Sender        *api.DepositResponse `json:"sender,omitempty"`
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the governance configuration and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var account *common.Address
			if flagsFromContext(cmd.Context()).sender != "" {
				addr, err := sender(cmd)
				if err != nil {
					return err
				}
				account = &addr
			}
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				engine := n.Engine()
				cfg := engine.Config()
				resp := statusResult{
					GovernanceResponse: api.GovernanceResponse{
						Chairman:          cfg.Governor.Hex(),
						VoteToken:         cfg.VoteToken.Hex(),
						GovernanceAccount: cfg.GovernanceAccount.Hex(),
						MinimumQuorum:     cfg.MinimumQuorum,
						VotingPeriod:      int64(cfg.VotingPeriod.Seconds()),
						TotalDeposits:     engine.TotalDeposits(),
						ProposalCount:     engine.ProposalCount(),
						Time:              n.Now(),
					},
					ClockOffset:   n.ClockOffset().String(),
					GovernedValue: n.Token().GovernedValue(),
				}
				if account != nil {
					deposit := depositResponse(engine, *account)
					resp.Sender = &deposit
				}
				return printJSON(cmd, resp)
			})
		},
	}
}

func voteOfCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote-of <proposal-id> [account]",
		Short: "Show the vote of an account, the sender by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			var voter common.Address
			if len(args) == 2 {
				voter, err = parseAddress(args[1])
			} else {
				voter, err = sender(cmd)
			}
			if err != nil {
				return err
			}
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				return printVote(cmd, n.Engine(), id, voter)
			})
		},
	}
}
