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

package api

import (
	"time"

	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	IsHealthy   bool `json:"is_healthy"`
	Initialized bool `json:"initialized"`
}

type GovernanceResponse struct {
	Chairman          string    `json:"chairman"`
	VoteToken         string    `json:"vote_token"`
	GovernanceAccount string    `json:"governance_account"`
	MinimumQuorum     uint64    `json:"minimum_quorum"`
	VotingPeriod      int64     `json:"voting_period"`
	TotalDeposits     uint64    `json:"total_deposits"`
	ProposalCount     uint64    `json:"proposal_count"`
	Time              time.Time `json:"time"`
}

type DepositResponse struct {
	Account     string     `json:"account"`
	Amount      uint64     `json:"amount"`
	FrozenUntil *time.Time `json:"frozen_until,omitempty"`
}

type ProposalResponse struct {
	ID           uint64        `json:"id"`
	Proposer     string        `json:"proposer"`
	Recipient    string        `json:"recipient"`
	Payload      hexutil.Bytes `json:"payload"`
	Description  string        `json:"description"`
	CreatedAt    time.Time     `json:"created_at"`
	Deadline     time.Time     `json:"deadline"`
	VotesYes     uint64        `json:"votes_yes"`
	VotesNo      uint64        `json:"votes_no"`
	VotesAbstain uint64        `json:"votes_abstain"`
	Finished     bool          `json:"finished"`
	Outcome      string        `json:"outcome"`
	Status       string        `json:"status"`
}

type VoteResponse struct {
	ProposalID uint64     `json:"proposal_id"`
	Voter      string     `json:"voter"`
	Decision   string     `json:"decision"`
	Weight     uint64     `json:"weight"`
	CastAt     *time.Time `json:"cast_at,omitempty"`
}

type ExecuteResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Outcome    string `json:"outcome"`
}

type ProposeResponse struct {
	ID uint64 `json:"id"`
}

// AmountRequest is the body of deposit and withdrawal requests
type AmountRequest struct {
	Sender string `json:"sender"`
	Amount uint64 `json:"amount"`
}

type ProposeRequest struct {
	Sender      string        `json:"sender"`
	Recipient   string        `json:"recipient"`
	Payload     hexutil.Bytes `json:"payload"`
	Description string        `json:"description"`
}

type VoteRequest struct {
	Sender   string `json:"sender"`
	Decision string `json:"decision"`
}

type ExecuteRequest struct {
	Sender string `json:"sender"`
}

// EventMessage wraps a governance event on the event stream
type EventMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewProposalResponse(p governance.Proposal, now time.Time) ProposalResponse {
	return ProposalResponse{
		ID:           p.ID,
		Proposer:     p.Proposer.Hex(),
		Recipient:    p.Recipient.Hex(),
		Payload:      p.Payload,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
		Deadline:     p.Deadline,
		VotesYes:     p.VotesYes,
		VotesNo:      p.VotesNo,
		VotesAbstain: p.VotesAbstain,
		Finished:     p.Finished,
		Outcome:      p.Outcome.String(),
		Status:       string(p.StatusAt(now)),
	}
}
