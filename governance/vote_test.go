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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastVote(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	env.depositAndVote(t, addr1, 1000, id, governance.DecisionYes)
	require.NoError(t, env.engine.Deposit(t.Context(), addr2, 9000))
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, id, governance.DecisionAbstain))

	decision, err := env.engine.VoteOf(id, addr1)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionYes, decision)
	decision, err = env.engine.VoteOf(id, addr2)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionAbstain, decision)
	decision, err = env.engine.VoteOf(id, addr3)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionNone, decision)

	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), p.VotesYes)
	assert.Equal(t, uint64(0), p.VotesNo)
	assert.Equal(t, uint64(9000), p.VotesAbstain)
	assert.Equal(t, uint64(10000), p.TotalVotes())

	votes, err := env.engine.Votes(id)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, uint64(9000), votes[addr2].Weight)
	assert.Equal(t, env.clock.Now(), votes[addr2].CastAt)
}

func TestCastVoteWeightIsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr2, 4000))
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, id, governance.DecisionNo))
	// Depositing more after voting does not change the recorded weight
	require.NoError(t, env.engine.Deposit(t.Context(), addr2, 5000))
	vote, err := env.engine.VoteRecord(id, addr2)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), vote.Weight)
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), p.VotesNo)
	assert.Equal(t, uint64(9000), env.engine.DepositOf(addr2))
}

func TestCastVoteNoDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.propose(t, demoCall)
	err := env.engine.CastVote(t.Context(), addr1, 0, governance.DecisionYes)
	require.ErrorIs(t, err, governance.ErrNoDeposit)
	// The deposit check comes before the proposal lookup
	err = env.engine.CastVote(t.Context(), addr1, 1, governance.DecisionYes)
	require.ErrorIs(t, err, governance.ErrNoDeposit)
}

func TestCastVoteProposalNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.propose(t, demoCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr1, 1000))
	err := env.engine.CastVote(t.Context(), addr1, 1, governance.DecisionYes)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
}

func TestCastVoteExpired(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr1, 1000))
	env.clock.Advance(testPeriod)
	err := env.engine.CastVote(t.Context(), addr1, id, governance.DecisionYes)
	require.ErrorIs(t, err, governance.ErrProposalExpired)
	decision, err := env.engine.VoteOf(id, addr1)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionNone, decision)
}

func TestCastVoteAlreadyVoted(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	env.depositAndVote(t, addr1, 1000, id, governance.DecisionYes)
	err := env.engine.CastVote(t.Context(), addr1, id, governance.DecisionNo)
	require.ErrorIs(t, err, governance.ErrAlreadyVoted)
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), p.VotesYes)
	assert.Equal(t, uint64(0), p.VotesNo)
}

func TestCastVoteInvalidDecision(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr1, 1000))
	for _, decision := range []governance.Decision{governance.DecisionNone, 4, 255} {
		err := env.engine.CastVote(t.Context(), addr1, id, decision)
		require.ErrorIs(t, err, governance.ErrInvalidDecision)
	}
	p, err := env.engine.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.TotalVotes())
	// A rejected decision does not count as a vote
	require.NoError(t, env.engine.CastVote(t.Context(), addr1, id, governance.DecisionAbstain))
	_, frozen := env.engine.FrozenUntil(addr1)
	assert.True(t, frozen)
}

func TestCastVoteRejectedDecisionDoesNotFreeze(t *testing.T) {
	env := newTestEnv(t)
	id := env.propose(t, demoCall)
	require.NoError(t, env.engine.Deposit(t.Context(), addr1, 1000))
	err := env.engine.CastVote(t.Context(), addr1, id, governance.DecisionNone)
	require.ErrorIs(t, err, governance.ErrInvalidDecision)
	require.NoError(t, env.engine.Withdraw(t.Context(), addr1, 1000))
}

func TestParseDecision(t *testing.T) {
	testDefs := []struct {
		input    string
		expected governance.Decision
		valid    bool
	}{
		{"1", governance.DecisionYes, true},
		{"yes", governance.DecisionYes, true},
		{" No ", governance.DecisionNo, true},
		{"2", governance.DecisionNo, true},
		{"abstain", governance.DecisionAbstain, true},
		{"3", governance.DecisionAbstain, true},
		{"0", governance.DecisionNone, false},
		{"none", governance.DecisionNone, false},
		{"maybe", governance.DecisionNone, false},
	}
	for _, testDef := range testDefs {
		decision, err := governance.ParseDecision(testDef.input)
		if testDef.valid {
			require.NoError(t, err, "input %q", testDef.input)
		} else {
			require.ErrorIs(t, err, governance.ErrInvalidDecision, "input %q", testDef.input)
		}
		assert.Equal(t, testDef.expected, decision, "input %q", testDef.input)
	}
}
