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
	"time"

	"github.com/blinklabs-io/tally/event"
)

const (
	DepositEventType          event.EventType = "governance.deposit"
	WithdrawEventType         event.EventType = "governance.withdraw"
	ProposalCreatedEventType  event.EventType = "governance.proposal.created"
	VoteCastEventType         event.EventType = "governance.vote.cast"
	ProposalFinishedEventType event.EventType = "governance.proposal.finished"
)

// EventTypes lists every event type published by the engine
var EventTypes = []event.EventType{
	DepositEventType,
	WithdrawEventType,
	ProposalCreatedEventType,
	VoteCastEventType,
	ProposalFinishedEventType,
}

// DepositEvent is published after a deposit or withdrawal
type DepositEvent struct {
	Account       Account `json:"account"`
	Amount        uint64  `json:"amount"`
	Balance       uint64  `json:"balance"`
	TotalDeposits uint64  `json:"totalDeposits"`
}

type ProposalCreatedEvent struct {
	ProposalID  uint64    `json:"proposalId"`
	Proposer    Account   `json:"proposer"`
	Recipient   Account   `json:"recipient"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
}

type VoteCastEvent struct {
	ProposalID uint64   `json:"proposalId"`
	Voter      Account  `json:"voter"`
	Decision   Decision `json:"decision"`
	Weight     uint64   `json:"weight"`
}

// ProposalFinishedEvent is published when a proposal reaches a terminal
// state. Error is set when the call failed.
type ProposalFinishedEvent struct {
	ProposalID   uint64  `json:"proposalId"`
	Executor     Account `json:"executor"`
	Outcome      Outcome `json:"outcome"`
	VotesYes     uint64  `json:"votesYes"`
	VotesNo      uint64  `json:"votesNo"`
	VotesAbstain uint64  `json:"votesAbstain"`
	Error        string  `json:"error,omitempty"`
}
