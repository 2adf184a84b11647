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

package tally

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultInitialSupply uint64 = 10000
	DefaultMinimumQuorum uint64 = 7000
	DefaultVotingPeriod         = 72 * time.Hour
)

// Deployment holds the parameters of Init
type Deployment struct {
	// Deployer becomes the chairman and receives the initial supply
	Deployer      common.Address
	TokenName     string
	TokenSymbol   string
	InitialSupply uint64
	MinimumQuorum uint64
	VotingPeriod  time.Duration
}

// DefaultDeployment returns the parameters used by the reference deployment
func DefaultDeployment(deployer common.Address) Deployment {
	return Deployment{
		Deployer:      deployer,
		TokenName:     asset.DefaultName,
		TokenSymbol:   asset.DefaultSymbol,
		InitialSupply: DefaultInitialSupply,
		MinimumQuorum: DefaultMinimumQuorum,
		VotingPeriod:  DefaultVotingPeriod,
	}
}

// DeploymentAddresses derives the token and governance account addresses
// from the deployer, as contract creation by its first two transactions
// would
func DeploymentAddresses(deployer common.Address) (token common.Address, pool common.Address) {
	return crypto.CreateAddress(deployer, 0), crypto.CreateAddress(deployer, 1)
}

// Init creates the vote token, mints the initial supply to the deployer,
// creates the engine and hands token ownership to the governance account
func (n *Node) Init(ctx context.Context, d Deployment) (cfg governance.Config, err error) {
	ctx, span := n.startSpan(
		ctx,
		"node.init",
		attribute.String("deployer", d.Deployer.Hex()),
	)
	defer func() { endSpan(span, err) }()
	n.opMu.Lock()
	defer n.opMu.Unlock()
	if n.Initialized() {
		return governance.Config{}, ErrAlreadyInitialized
	}
	if d.Deployer == (common.Address{}) {
		return governance.Config{}, errors.New("deployer address is required")
	}
	if d.TokenName == "" {
		d.TokenName = asset.DefaultName
	}
	if d.TokenSymbol == "" {
		d.TokenSymbol = asset.DefaultSymbol
	}
	tokenAddr, poolAddr := DeploymentAddresses(d.Deployer)
	cfg = governance.Config{
		Governor:          d.Deployer,
		VoteToken:         tokenAddr,
		GovernanceAccount: poolAddr,
		MinimumQuorum:     d.MinimumQuorum,
		VotingPeriod:      d.VotingPeriod,
	}
	// Nothing is installed until the deployment is stored
	c, err := n.build(cfg, d.Deployer, d.TokenName, d.TokenSymbol)
	if err != nil {
		return governance.Config{}, fmt.Errorf("deploy: %w", err)
	}
	if d.InitialSupply > 0 {
		if err := c.token.Mint(d.Deployer, d.Deployer, d.InitialSupply); err != nil {
			return governance.Config{}, fmt.Errorf("mint initial supply: %w", err)
		}
	}
	if err := c.token.TransferOwnership(d.Deployer, poolAddr); err != nil {
		return governance.Config{}, fmt.Errorf("transfer token ownership: %w", err)
	}
	createdAt := n.clock.Now()
	if err := n.save(ctx, c, createdAt); err != nil {
		return governance.Config{}, err
	}
	n.install(c, createdAt)
	n.config.logger.Info(
		"deployed governance",
		"component", "node",
		"governor", cfg.Governor.Hex(),
		"token", cfg.VoteToken.Hex(),
		"governance_account", cfg.GovernanceAccount.Hex(),
		"minimum_quorum", cfg.MinimumQuorum,
		"voting_period", cfg.VotingPeriod,
	)
	return cfg, nil
}
