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

import "time"

func (e *Engine) Config() Config {
	return e.config
}

// Governor returns the chairman address
func (e *Engine) Governor() Account {
	return e.config.Governor
}

func (e *Engine) VoteToken() Account {
	return e.config.VoteToken
}

func (e *Engine) GovernanceAccount() Account {
	return e.config.GovernanceAccount
}

func (e *Engine) MinimumQuorum() uint64 {
	return e.config.MinimumQuorum
}

func (e *Engine) VotingPeriod() time.Duration {
	return e.config.VotingPeriod
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

func (e *Engine) TotalDeposits() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalDeposits
}

// DepositOf returns the deposited amount of an account, zero if it never
// deposited
func (e *Engine) DepositOf(account Account) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deposits[account]
}

// FrozenUntil reports whether the account's deposit is frozen and until
// when
func (e *Engine) FrozenUntil(account Account) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frozenUntil(account, e.clock.Now())
}

func (e *Engine) ProposalCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.proposals))
}

// Proposal returns a copy of the proposal with the given id
func (e *Engine) Proposal(id uint64) (Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return Proposal{}, err
	}
	return p.clone(), nil
}

// Proposals returns copies of all proposals ordered by id
func (e *Engine) Proposals() []Proposal {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]Proposal, 0, len(e.proposals))
	for _, p := range e.proposals {
		ret = append(ret, p.clone())
	}
	return ret
}

// Status returns the lifecycle status of a proposal at the current time
func (e *Engine) Status(id uint64) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.proposal(id)
	if err != nil {
		return "", err
	}
	return p.StatusAt(e.clock.Now()), nil
}

// VoteOf returns the decision recorded for an account on a proposal, or
// DecisionNone if it has not voted
func (e *Engine) VoteOf(id uint64, account Account) (Decision, error) {
	vote, err := e.VoteRecord(id, account)
	if err != nil {
		return DecisionNone, err
	}
	return vote.Decision, nil
}

// VoteRecord returns the full vote of an account on a proposal. The zero
// Vote is returned if it has not voted.
func (e *Engine) VoteRecord(id uint64, account Account) (Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.proposal(id); err != nil {
		return Vote{}, err
	}
	return e.votes[id][account], nil
}

// Votes returns all votes cast on a proposal keyed by voter
func (e *Engine) Votes(id uint64) (map[Account]Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.proposal(id); err != nil {
		return nil, err
	}
	ret := make(map[Account]Vote, len(e.votes[id]))
	for voter, vote := range e.votes[id] {
		ret[voter] = vote
	}
	return ret, nil
}
