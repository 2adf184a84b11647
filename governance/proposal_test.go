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

package governance_test

import (
	"testing"

	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineConfig(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, chairman, env.engine.Governor())
	assert.Equal(t, tokenAddr, env.engine.VoteToken())
	assert.Equal(t, poolAddr, env.engine.GovernanceAccount())
	assert.Equal(t, uint64(testQuorum), env.engine.MinimumQuorum())
	assert.Equal(t, testPeriod, env.engine.VotingPeriod())
	assert.Equal(t, uint64(0), env.engine.TotalDeposits())
	assert.Equal(t, uint64(0), env.engine.ProposalCount())
}

func TestNewEngineInvalidConfig(t *testing.T) {
	valid := governance.Config{
		Governor:          chairman,
		VoteToken:         tokenAddr,
		GovernanceAccount: poolAddr,
		MinimumQuorum:     testQuorum,
		VotingPeriod:      testPeriod,
	}
	testDefs := []struct {
		name   string
		modify func(*governance.Config)
	}{
		{"no governor", func(c *governance.Config) { c.Governor = common.Address{} }},
		{"no token", func(c *governance.Config) { c.VoteToken = common.Address{} }},
		{"no pool", func(c *governance.Config) { c.GovernanceAccount = common.Address{} }},
		{"no period", func(c *governance.Config) { c.VotingPeriod = 0 }},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := valid
			testDef.modify(&cfg)
			_, err := governance.New(cfg, newTestLedger(), &testInvoker{})
			require.ErrorIs(t, err, governance.ErrInvalidConfig)
		})
	}
	_, err := governance.New(valid, nil, &testInvoker{})
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
	_, err = governance.New(valid, newTestLedger(), nil)
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
}

func TestProposeSequentialIds(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.engine.Propose(
		t.Context(),
		chairman,
		demoCall,
		tokenAddr,
		"Unique proposal",
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	id, err = env.engine.Propose(
		t.Context(),
		chairman,
		demoCall,
		tokenAddr,
		"Second unique proposal",
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(2), env.engine.ProposalCount())

	p, err := env.engine.Proposal(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, chairman, p.Proposer)
	assert.Equal(t, tokenAddr, p.Recipient)
	assert.Equal(t, demoCall, p.Payload)
	assert.Equal(t, "Second unique proposal", p.Description)
	assert.Equal(t, env.clock.Now().Add(testPeriod), p.Deadline)
	assert.False(t, p.Finished)
	assert.Equal(t, uint64(0), p.TotalVotes())
	assert.Equal(t, governance.OutcomePending, p.Outcome)
}

func TestProposeUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Propose(
		t.Context(),
		addr1,
		demoCall,
		tokenAddr,
		"Unique proposal",
	)
	require.ErrorIs(t, err, governance.ErrUnauthorized)
	assert.Equal(t, uint64(0), env.engine.ProposalCount())
	// The rejected call does not consume an id
	assert.Equal(t, uint64(0), env.propose(t, demoCall))
}

func TestProposeInvalid(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Propose(t.Context(), chairman, nil, tokenAddr, "")
	require.ErrorIs(t, err, governance.ErrInvalidProposal)
	_, err = env.engine.Propose(
		t.Context(),
		chairman,
		demoCall,
		common.Address{},
		"",
	)
	require.ErrorIs(t, err, governance.ErrInvalidProposal)
}

func TestProposalCopyIsDetached(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	id := env.propose(t, payload)
	payload[0] = 0xff
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, demoCall, p.Payload)
	p.Payload[1] = 0xff
	p, err = env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, demoCall, p.Payload)
}

func TestProposalNotFoundAccessors(t *testing.T) {
	env := newTestEnv(t)
	env.propose(t, demoCall)
	_, err := env.engine.Proposal(1)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	_, err = env.engine.Status(1)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	_, err = env.engine.VoteOf(1, addr1)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	decision, err := env.engine.VoteOf(0, addr1)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionNone, decision)
}

func TestProposalStatus(t *testing.T) {
	env := newTestEnv(t)
	losing := env.propose(t, demoCall)
	winning := env.propose(t, demoCall)
	failing := env.propose(t, brokenCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr2, 8000))
	for _, id := range []uint64{losing, winning, failing} {
		status, err := env.engine.Status(id)
		require.NoError(t, err)
		assert.Equal(t, governance.StatusActive, status)
	}
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, losing, governance.DecisionNo))
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, winning, governance.DecisionYes))
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, failing, governance.DecisionYes))
	env.clock.Advance(testPeriod)
	status, err := env.engine.Status(winning)
	require.NoError(t, err)
	assert.Equal(t, governance.StatusAwaitingExecution, status)

	_, err = env.engine.Execute(t.Context(), addr1, losing)
	require.NoError(t, err)
	_, err = env.engine.Execute(t.Context(), addr1, winning)
	require.NoError(t, err)
	_, err = env.engine.Execute(t.Context(), addr1, failing)
	require.ErrorIs(t, err, governance.ErrCallExecutionFailed)

	expected := map[uint64]governance.Status{
		losing:  governance.StatusRejected,
		winning: governance.StatusExecuted,
		failing: governance.StatusCallFailed,
	}
	for id, want := range expected {
		status, err := env.engine.Status(id)
		require.NoError(t, err)
		assert.Equal(t, want, status, "proposal %d", id)
	}
}
