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

package governance

import (
	"context"
	"fmt"
	"math"
)

// State is a complete copy of the engine ledgers, used to persist and
// reload the engine
type State struct {
	Deposits  map[Account]uint64
	Proposals []Proposal
	Votes     map[uint64]map[Account]Vote
}

// Snapshot returns a deep copy of the ledgers
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := State{
		Deposits:  make(map[Account]uint64, len(e.deposits)),
		Proposals: make([]Proposal, 0, len(e.proposals)),
		Votes:     make(map[uint64]map[Account]Vote, len(e.votes)),
	}
	for account, amount := range e.deposits {
		ret.Deposits[account] = amount
	}
	for _, p := range e.proposals {
		ret.Proposals = append(ret.Proposals, p.clone())
	}
	for id, voters := range e.votes {
		tmpVoters := make(map[Account]Vote, len(voters))
		for voter, vote := range voters {
			tmpVoters[voter] = vote
		}
		ret.Votes[id] = tmpVoters
	}
	return ret
}

// Restore replaces the ledgers with the given state after checking that it
// satisfies the engine invariants. The engine is unchanged on error.
func (e *Engine) Restore(state State) error {
	if err := e.lock(context.Background()); err != nil {
		return err
	}
	defer e.mu.Unlock()
	var total uint64
	deposits := make(map[Account]uint64, len(state.Deposits))
	for account, amount := range state.Deposits {
		if total > math.MaxUint64-amount {
			return fmt.Errorf("%w: deposits overflow", ErrInvalidState)
		}
		total += amount
		deposits[account] = amount
	}
	proposals := make([]*Proposal, 0, len(state.Proposals))
	for idx, p := range state.Proposals {
		if p.ID != uint64(idx) {
			return fmt.Errorf(
				"%w: proposal id %d at position %d",
				ErrInvalidState,
				p.ID,
				idx,
			)
		}
		tmp := p.clone()
		proposals = append(proposals, &tmp)
	}
	votes := make(map[uint64]map[Account]Vote, len(state.Votes))
	for id := range state.Votes {
		if id >= uint64(len(proposals)) {
			return fmt.Errorf(
				"%w: vote for unknown proposal %d",
				ErrInvalidState,
				id,
			)
		}
	}
	// Every proposal is checked, so tallies without votes are caught too
	for _, p := range proposals {
		var yes, no, abstain uint64
		voters := state.Votes[p.ID]
		tmpVoters := make(map[Account]Vote, len(voters))
		for voter, vote := range voters {
			switch vote.Decision {
			case DecisionYes:
				yes += vote.Weight
			case DecisionNo:
				no += vote.Weight
			case DecisionAbstain:
				abstain += vote.Weight
			default:
				return fmt.Errorf(
					"%w: invalid decision %d on proposal %d",
					ErrInvalidState,
					vote.Decision,
					p.ID,
				)
			}
			tmpVoters[voter] = vote
		}
		if p.VotesYes != yes || p.VotesNo != no || p.VotesAbstain != abstain {
			return fmt.Errorf(
				"%w: tallies of proposal %d do not match its votes",
				ErrInvalidState,
				p.ID,
			)
		}
		if len(tmpVoters) > 0 {
			votes[p.ID] = tmpVoters
		}
	}
	e.deposits = deposits
	e.totalDeposits = total
	e.proposals = proposals
	e.votes = votes
	if e.metrics != nil {
		e.metrics.totalDeposits.Set(float64(total))
	}
	e.logger.Debug(
		"restored governance state",
		"proposals", len(proposals),
		"depositors", len(deposits),
		"total_deposits", total,
	)
	return nil
}
