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
	"math"
	"testing"

	"github.com/blinklabs-io/tally/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	first := env.propose(t, demoCall)
	second := env.propose(t, brokenCall)
	env.depositAndVote(t, addr1, 1000, first, governance.DecisionYes)
	env.depositAndVote(t, addr2, 7000, first, governance.DecisionYes)
	require.NoError(t, env.engine.CastVote(t.Context(), addr2, second, governance.DecisionNo))
	env.clock.Advance(testPeriod)
	_, err := env.engine.Execute(t.Context(), addr1, first)
	require.NoError(t, err)
	return env
}

func TestSnapshotRestore(t *testing.T) {
	src := populatedEnv(t)
	state := src.engine.Snapshot()
	require.Len(t, state.Proposals, 2)
	assert.Equal(t, uint64(7000), state.Deposits[addr2])
	assert.Equal(t, governance.DecisionNo, state.Votes[1][addr2].Decision)

	dst := newTestEnv(t)
	require.NoError(t, dst.engine.Restore(state))
	assert.Equal(t, src.engine.TotalDeposits(), dst.engine.TotalDeposits())
	assert.Equal(t, src.engine.Proposals(), dst.engine.Proposals())
	decision, err := dst.engine.VoteOf(1, addr2)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionNo, decision)

	// Restored engine keeps enforcing the same rules
	dst.clock.Advance(testPeriod)
	_, err = dst.engine.Execute(t.Context(), addr1, 0)
	require.ErrorIs(t, err, governance.ErrAlreadyFinished)
	outcome, err := dst.engine.Execute(t.Context(), addr1, 1)
	require.NoError(t, err)
	assert.Equal(t, governance.OutcomeRejected, outcome)
	id := dst.propose(t, demoCall)
	assert.Equal(t, uint64(2), id)
}

func TestSnapshotIsDetached(t *testing.T) {
	env := populatedEnv(t)
	state := env.engine.Snapshot()
	state.Deposits[addr1] = 5
	state.Proposals[0].Payload[0] = 0xff
	state.Votes[0][addr1] = governance.Vote{Decision: governance.DecisionNo}
	assert.Equal(t, uint64(1000), env.engine.DepositOf(addr1))
	p, err := env.engine.Proposal(0)
	require.NoError(t, err)
	assert.Equal(t, demoCall, p.Payload)
	decision, err := env.engine.VoteOf(0, addr1)
	require.NoError(t, err)
	assert.Equal(t, governance.DecisionYes, decision)
}

func TestRestoreInvalidState(t *testing.T) {
	testDefs := []struct {
		name   string
		modify func(*governance.State)
	}{
		{
			name: "sparse proposal ids",
			modify: func(s *governance.State) {
				s.Proposals[1].ID = 5
			},
		},
		{
			name: "vote on unknown proposal",
			modify: func(s *governance.State) {
				s.Votes[9] = map[governance.Account]governance.Vote{
					addr1: {Decision: governance.DecisionYes, Weight: 1},
				}
			},
		},
		{
			name: "invalid decision",
			modify: func(s *governance.State) {
				s.Votes[1][addr2] = governance.Vote{Decision: 7, Weight: 7000}
			},
		},
		{
			name: "tally mismatch",
			modify: func(s *governance.State) {
				s.Proposals[0].VotesYes++
			},
		},
		{
			name: "tallies without votes",
			modify: func(s *governance.State) {
				delete(s.Votes, 1)
			},
		},
		{
			name: "deposit overflow",
			modify: func(s *governance.State) {
				s.Deposits[addr3] = math.MaxUint64
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			src := populatedEnv(t)
			state := src.engine.Snapshot()
			testDef.modify(&state)
			dst := newTestEnv(t)
			require.ErrorIs(t, dst.engine.Restore(state), governance.ErrInvalidState)
			// Nothing was applied
			assert.Equal(t, uint64(0), dst.engine.ProposalCount())
			assert.Equal(t, uint64(0), dst.engine.TotalDeposits())
		})
	}
}
