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

package tally_test

import (
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/call"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chairman = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	voter1   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	voter2   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newTestNode(t *testing.T, dataDir string, clock governance.Clock) *tally.Node {
	t.Helper()
	n, err := tally.New(
		tally.NewConfig(
			tally.WithDatabasePath(dataDir),
			tally.WithClock(clock),
		),
	)
	require.NoError(t, err)
	return n
}

// deploy initializes the node and funds both voters with a deposit approval
func deploy(t *testing.T, n *tally.Node) governance.Config {
	t.Helper()
	ctx := t.Context()
	cfg, err := n.Init(ctx, tally.DefaultDeployment(chairman))
	require.NoError(t, err)
	require.NoError(t, n.Transfer(ctx, chairman, voter1, 1000))
	require.NoError(t, n.Transfer(ctx, chairman, voter2, 7000))
	require.NoError(t, n.Approve(ctx, voter1, cfg.GovernanceAccount, 1000))
	require.NoError(t, n.Approve(ctx, voter2, cfg.GovernanceAccount, 7000))
	return cfg
}

func demoPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := call.Encode(asset.GovernedDemoFunctionSig)
	require.NoError(t, err)
	return payload
}

func TestNodeNotInitialized(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	assert.False(t, n.Initialized())
	assert.Nil(t, n.Engine())
	err := n.Deposit(t.Context(), voter1, 10)
	require.ErrorIs(t, err, tally.ErrNotInitialized)
	_, err = n.Execute(t.Context(), voter1, 0)
	require.ErrorIs(t, err, tally.ErrNotInitialized)
}

func TestNodeInit(t *testing.T) {
	dataDir := t.TempDir()
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	n := newTestNode(t, dataDir, clock)
	cfg, err := n.Init(t.Context(), tally.DefaultDeployment(chairman))
	require.NoError(t, err)
	tokenAddr, poolAddr := tally.DeploymentAddresses(chairman)
	assert.Equal(t, chairman, cfg.Governor)
	assert.Equal(t, tokenAddr, cfg.VoteToken)
	assert.Equal(t, poolAddr, cfg.GovernanceAccount)
	assert.NotEqual(t, tokenAddr, poolAddr)
	assert.Equal(t, tally.DefaultMinimumQuorum, cfg.MinimumQuorum)
	assert.Equal(t, tally.DefaultVotingPeriod, cfg.VotingPeriod)

	token := n.Token()
	assert.Equal(t, asset.DefaultName, token.Name())
	assert.Equal(t, tally.DefaultInitialSupply, token.BalanceOf(chairman))
	assert.Equal(t, poolAddr, token.Owner())
	assert.True(t, clock.Now().Equal(n.CreatedAt()))

	_, err = n.Init(t.Context(), tally.DefaultDeployment(chairman))
	require.ErrorIs(t, err, tally.ErrAlreadyInitialized)
	require.NoError(t, n.Close())

	// The deployment survives a restart
	n = newTestNode(t, dataDir, clock)
	defer n.Close()
	require.True(t, n.Initialized())
	assert.Equal(t, cfg, n.Engine().Config())
	assert.Equal(t, poolAddr, n.Token().Owner())
	_, err = n.Init(t.Context(), tally.DefaultDeployment(chairman))
	require.ErrorIs(t, err, tally.ErrAlreadyInitialized)
}

func TestNodeInitRequiresDeployer(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	_, err := n.Init(t.Context(), tally.DefaultDeployment(common.Address{}))
	require.Error(t, err)
	assert.False(t, n.Initialized())
}

func TestNodeGovernanceLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	n := newTestNode(t, dataDir, clock)
	cfg := deploy(t, n)
	ctx := t.Context()

	// Only the chairman proposes
	_, err := n.Propose(ctx, voter1, demoPayload(t), cfg.VoteToken, "Unique proposal")
	require.ErrorIs(t, err, governance.ErrUnauthorized)
	id, err := n.Propose(ctx, chairman, demoPayload(t), cfg.VoteToken, "Unique proposal")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	require.NoError(t, n.Deposit(ctx, voter1, 1000))
	require.NoError(t, n.Deposit(ctx, voter2, 7000))
	require.NoError(t, n.CastVote(ctx, voter1, id, governance.DecisionYes))
	require.NoError(t, n.CastVote(ctx, voter2, id, governance.DecisionYes))
	err = n.Withdraw(ctx, voter2, 7000)
	require.ErrorIs(t, err, governance.ErrFrozenByActiveVote)

	_, err = n.Execute(ctx, voter1, id)
	require.ErrorIs(t, err, governance.ErrProposalInProgress)
	require.NoError(t, n.AdvanceTime(ctx, cfg.VotingPeriod))
	outcome, err := n.Execute(ctx, voter1, id)
	require.NoError(t, err)
	assert.Equal(t, governance.OutcomeExecuted, outcome)
	assert.Equal(t, uint64(1), n.Token().GovernedValue())
	require.NoError(t, n.Close())

	// Everything, including the clock offset, is restored
	n = newTestNode(t, dataDir, clock)
	defer n.Close()
	assert.Equal(t, cfg.VotingPeriod, n.ClockOffset())
	assert.Equal(t, uint64(8000), n.Engine().TotalDeposits())
	assert.Equal(t, uint64(8000), n.Token().BalanceOf(cfg.GovernanceAccount))
	assert.Equal(t, uint64(1), n.Token().GovernedValue())
	p, err := n.Engine().Proposal(id)
	require.NoError(t, err)
	assert.True(t, p.Finished)
	assert.Equal(t, governance.OutcomeExecuted, p.Outcome)
	assert.Equal(t, "Unique proposal", p.Description)
	assert.Equal(t, uint64(8000), p.VotesYes)
	_, err = n.Execute(ctx, voter1, id)
	require.ErrorIs(t, err, governance.ErrAlreadyFinished)

	// The deadline has passed so deposits are free again
	require.NoError(t, n.Withdraw(ctx, voter2, 7000))
	assert.Equal(t, uint64(7000), n.Token().BalanceOf(voter2))
}

func TestNodePersistsFailedCall(t *testing.T) {
	dataDir := t.TempDir()
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	n := newTestNode(t, dataDir, clock)
	cfg := deploy(t, n)
	ctx := t.Context()

	id, err := n.Propose(ctx, chairman, []byte{0x07, 0x82, 0x4c, 0x06}, cfg.VoteToken, "Broken call")
	require.NoError(t, err)
	require.NoError(t, n.Deposit(ctx, voter2, 7000))
	require.NoError(t, n.Deposit(ctx, voter1, 1000))
	require.NoError(t, n.CastVote(ctx, voter2, id, governance.DecisionYes))
	require.NoError(t, n.CastVote(ctx, voter1, id, governance.DecisionNo))
	require.NoError(t, n.AdvanceTime(ctx, cfg.VotingPeriod))
	outcome, err := n.Execute(ctx, chairman, id)
	require.ErrorIs(t, err, governance.ErrCallExecutionFailed)
	require.ErrorIs(t, err, call.ErrUnknownSelector)
	assert.Equal(t, governance.OutcomeCallFailed, outcome)
	require.NoError(t, n.Close())

	n = newTestNode(t, dataDir, clock)
	defer n.Close()
	p, err := n.Engine().Proposal(id)
	require.NoError(t, err)
	assert.True(t, p.Finished)
	assert.Equal(t, governance.OutcomeCallFailed, p.Outcome)
}

func TestNodeQuorumNotReached(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
	n := newTestNode(t, t.TempDir(), clock)
	defer n.Close()
	cfg := deploy(t, n)
	ctx := t.Context()
	id, err := n.Propose(ctx, chairman, demoPayload(t), cfg.VoteToken, "")
	require.NoError(t, err)
	require.NoError(t, n.Deposit(ctx, voter1, 1000))
	require.NoError(t, n.CastVote(ctx, voter1, id, governance.DecisionAbstain))
	require.NoError(t, n.AdvanceTime(ctx, cfg.VotingPeriod))
	_, err = n.Execute(ctx, voter1, id)
	require.ErrorIs(t, err, governance.ErrQuorumNotReached)
	status, err := n.Engine().Status(id)
	require.NoError(t, err)
	assert.Equal(t, governance.StatusAwaitingExecution, status)
}

func TestNodeAdvanceTimeRejectsNonPositive(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	deploy(t, n)
	require.Error(t, n.AdvanceTime(t.Context(), 0))
	require.Error(t, n.AdvanceTime(t.Context(), -time.Hour))
	assert.Equal(t, time.Duration(0), n.ClockOffset())
}

func TestNodeTokenOwnershipBelongsToGovernance(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	cfg := deploy(t, n)
	err := n.Mint(t.Context(), chairman, chairman, 1)
	require.ErrorIs(t, err, asset.ErrNotOwner)
	require.NoError(t, n.Mint(t.Context(), cfg.GovernanceAccount, voter1, 5))
	require.NoError(t, n.Burn(t.Context(), cfg.GovernanceAccount, voter1, 5))
}

func TestNodeRollsBackUnpersistedOperations(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	cfg := deploy(t, n)
	ctx := t.Context()
	require.NoError(t, n.Deposit(ctx, voter2, 7000))
	offset := n.ClockOffset()

	require.NoError(t, n.Database().Close())

	require.Error(t, n.Deposit(ctx, voter1, 1000))
	assert.Equal(t, uint64(0), n.Engine().DepositOf(voter1))
	assert.Equal(t, uint64(7000), n.Engine().TotalDeposits())
	assert.Equal(t, uint64(1000), n.Token().BalanceOf(voter1))
	assert.Equal(t, uint64(1000), n.Token().Allowance(voter1, cfg.GovernanceAccount))
	assert.Equal(t, uint64(7000), n.Token().BalanceOf(cfg.GovernanceAccount))

	_, err := n.Propose(ctx, chairman, demoPayload(t), cfg.VoteToken, "")
	require.Error(t, err)
	assert.Equal(t, uint64(0), n.Engine().ProposalCount())

	require.Error(t, n.Transfer(ctx, chairman, voter1, 5))
	assert.Equal(t, uint64(1000), n.Token().BalanceOf(voter1))

	require.Error(t, n.AdvanceTime(ctx, time.Hour))
	assert.Equal(t, offset, n.ClockOffset())
}

func TestNodeInitNotInstalledWhenStoreFails(t *testing.T) {
	n := newTestNode(t, t.TempDir(), nil)
	defer n.Close()
	require.NoError(t, n.Database().Close())
	_, err := n.Init(t.Context(), tally.DefaultDeployment(chairman))
	require.Error(t, err)
	assert.False(t, n.Initialized())
	assert.Nil(t, n.Engine())
	assert.Nil(t, n.Token())
	assert.True(t, n.CreatedAt().IsZero())
	require.ErrorIs(t, n.Deposit(t.Context(), voter1, 10), tally.ErrNotInitialized)
}
