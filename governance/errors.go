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

import "errors"

var (
	// ErrUnauthorized is returned when a chairman-only operation is called by
	// any other account
	ErrUnauthorized = errors.New("only chairman can add new proposals")
	// ErrNoDeposit is returned when an account without deposit tries to vote
	ErrNoDeposit = errors.New("deposit some tokens to vote")
	// ErrInsufficientDeposit is returned when a withdrawal exceeds the deposit
	ErrInsufficientDeposit = errors.New("insufficient deposit")
	// ErrFrozenByActiveVote is returned when withdrawing while a vote
	// references a proposal that has not reached its deadline
	ErrFrozenByActiveVote = errors.New("tokens are frozen by active vote")
	// ErrProposalNotFound is returned for out-of-range proposal ids
	ErrProposalNotFound = errors.New("proposal with such id does not exist")
	// ErrProposalExpired is returned when voting at or after the deadline
	ErrProposalExpired = errors.New("this proposal has expired")
	// ErrProposalInProgress is returned when executing before the deadline
	ErrProposalInProgress = errors.New("proposal still in progress")
	// ErrAlreadyFinished is returned when executing a finished proposal
	ErrAlreadyFinished = errors.New("proposal already finished")
	// ErrAlreadyVoted is returned on a second vote for the same proposal
	ErrAlreadyVoted = errors.New("you have already voted on this proposal")
	// ErrQuorumNotReached is returned when the cast weight is below the
	// minimum quorum. The proposal is left unfinished.
	ErrQuorumNotReached = errors.New(
		"minimal quorum wasn't reached, proposal failed",
	)
	// ErrTransferFailed wraps failures reported by the asset ledger
	ErrTransferFailed = errors.New("token transfer failed")
	// ErrCallExecutionFailed wraps failures reported by the invoker. The
	// proposal is finished regardless.
	ErrCallExecutionFailed = errors.New("function call failed")

	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrAmountOverflow  = errors.New("amount overflows deposit ledger")
	ErrInvalidDecision = errors.New("decision must be yes, no or abstain")
	ErrInvalidProposal = errors.New("proposal needs a recipient and payload")
	// ErrReentrantCall is returned for mutating calls made from inside a
	// proposal call
	ErrReentrantCall = errors.New("reentrant call during proposal execution")
	ErrInvalidConfig = errors.New("invalid governance config")
	ErrInvalidState  = errors.New("invalid governance state")
)

// errorReason maps an operation error to a short label for metrics
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoDeposit):
		return "no_deposit"
	case errors.Is(err, ErrInsufficientDeposit):
		return "insufficient_deposit"
	case errors.Is(err, ErrFrozenByActiveVote):
		return "frozen"
	case errors.Is(err, ErrProposalNotFound):
		return "not_found"
	case errors.Is(err, ErrProposalExpired):
		return "expired"
	case errors.Is(err, ErrProposalInProgress):
		return "in_progress"
	case errors.Is(err, ErrAlreadyFinished):
		return "already_finished"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrQuorumNotReached):
		return "quorum"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrCallExecutionFailed):
		return "call_failed"
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountOverflow),
		errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInvalidProposal):
		return "invalid"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant"
	default:
		return "other"
	}
}
