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
	"log/slog"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type initResult struct {
	Chairman          string `json:"chairman"`
	VoteToken         string `json:"vote_token"`
	GovernanceAccount string `json:"governance_account"`
	MinimumQuorum     uint64 `json:"minimum_quorum"`
	VotingPeriod      string `json:"voting_period"`
	InitialSupply     uint64 `json:"initial_supply"`
}

func initCommand() *cobra.Command {
	var (
		quorum       uint64
		supply       uint64
		votingPeriod time.Duration
		tokenName    string
		tokenSymbol  string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Deploy the vote token and governance",
		Long: "Deploy the vote token and governance. The sender, or the configured " +
			"chairman, becomes the chairman and receives the initial supply.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			var deployer common.Address
			if flagsFromContext(cmd.Context()).sender != "" {
				var err error
				if deployer, err = sender(cmd); err != nil {
					return err
				}
			}
			deployment, err := cfg.Deployment.ToDeployment(deployer)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("quorum") {
				deployment.MinimumQuorum = quorum
			}
			if flags.Changed("supply") {
				deployment.InitialSupply = supply
			}
			if flags.Changed("voting-period") {
				deployment.VotingPeriod = votingPeriod
			}
			if flags.Changed("name") {
				deployment.TokenName = tokenName
			}
			if flags.Changed("symbol") {
				deployment.TokenSymbol = tokenSymbol
			}
			return withNode(cmd, func(ctx context.Context, n *tally.Node, logger *slog.Logger) error {
				govCfg, err := n.Init(ctx, deployment)
				if err != nil {
					return err
				}
				logger.Info(
					"deployed governance",
					"component", programName,
					"token", govCfg.VoteToken.Hex(),
					"governance_account", govCfg.GovernanceAccount.Hex(),
				)
				return printJSON(cmd, initResult{
					Chairman:          govCfg.Governor.Hex(),
					VoteToken:         govCfg.VoteToken.Hex(),
					GovernanceAccount: govCfg.GovernanceAccount.Hex(),
					MinimumQuorum:     govCfg.MinimumQuorum,
					VotingPeriod:      govCfg.VotingPeriod.String(),
					InitialSupply:     deployment.InitialSupply,
				})
			})
		},
	}
	cmd.Flags().Uint64Var(&quorum, "quorum", tally.DefaultMinimumQuorum, "minimum total vote weight")
	cmd.Flags().Uint64Var(&supply, "supply", tally.DefaultInitialSupply, "initial token supply minted to the chairman")
	cmd.Flags().DurationVar(&votingPeriod, "voting-period", tally.DefaultVotingPeriod, "voting period of new proposals")
	cmd.Flags().StringVar(&tokenName, "name", "", "token name")
	cmd.Flags().StringVar(&tokenSymbol, "symbol", "", "token symbol")
	return cmd
}
