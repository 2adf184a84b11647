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
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account identifies a principal. It is never stored on its own, only as a
// key of the deposit and vote ledgers.
type Account = common.Address

// Decision is a recorded vote. DecisionNone means no vote was cast.
type Decision uint8

const (
	DecisionNone    Decision = 0
	DecisionYes     Decision = 1
	DecisionNo      Decision = 2
	DecisionAbstain Decision = 3
)

func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionYes:
		return "yes"
	case DecisionNo:
		return "no"
	case DecisionAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Valid reports whether the decision may be cast
func (d Decision) Valid() bool {
	return d == DecisionYes || d == DecisionNo || d == DecisionAbstain
}

// ParseDecision accepts either the numeric code or the name of a decision
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "y":
		return DecisionYes, nil
	case "2", "no", "n":
		return DecisionNo, nil
	case "3", "abstain", "a":
		return DecisionAbstain, nil
	case "0", "none":
		return DecisionNone, ErrInvalidDecision
	}
	return DecisionNone, fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// Outcome records how a proposal ended
type Outcome uint8

const (
	OutcomePending    Outcome = 0
	OutcomeExecuted   Outcome = 1
	OutcomeRejected   Outcome = 2
	OutcomeCallFailed Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeExecuted:
		return "executed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCallFailed:
		return "call_failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// Status is the lifecycle position of a proposal at a given time
type Status string

const (
	StatusActive            Status = "active"
	StatusAwaitingExecution Status = "awaiting_execution"
	StatusExecuted          Status = "executed"
	StatusRejected          Status = "rejected"
	StatusCallFailed        Status = "call_failed"
)

// Proposal is a call awaiting a vote. Tallies only change through CastVote
// and Finished only through Execute.
type Proposal struct {
	ID           uint64
	Proposer     Account
	Recipient    Account
	Payload      []byte
	Description  string
	CreatedAt    time.Time
	Deadline     time.Time
	VotesYes     uint64
	VotesNo      uint64
	VotesAbstain uint64
	Finished     bool
	Outcome      Outcome
}

// TotalVotes returns the weight counted towards quorum
func (p Proposal) TotalVotes() uint64 {
	return p.VotesYes + p.VotesNo + p.VotesAbstain
}

// Active reports whether the proposal still accepts votes at now
func (p Proposal) Active(now time.Time) bool {
	return now.Before(p.Deadline)
}

// StatusAt derives the lifecycle status of the proposal at now
func (p Proposal) StatusAt(now time.Time) Status {
	if p.Finished {
		switch p.Outcome {
		case OutcomeRejected:
			return StatusRejected
		case OutcomeCallFailed:
			return StatusCallFailed
		default:
			return StatusExecuted
		}
	}
	if p.Active(now) {
		return StatusActive
	}
	return StatusAwaitingExecution
}

func (p Proposal) clone() Proposal {
	ret := p
	ret.Payload = append([]byte(nil), p.Payload...)
	return ret
}

// Vote is a fixed-weight snapshot of a decision
type Vote struct {
	Decision Decision
	Weight   uint64
	CastAt   time.Time
}
