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
)

// CastVote records the caller's decision on a proposal, weighted by the
// caller's deposit at this moment. Later deposits or withdrawals do not
// change the weight.
func (e *Engine) CastVote(
	ctx context.Context,
	caller Account,
	proposalID uint64,
	decision Decision,
) error {
	if err := e.lock(ctx); err != nil {
		return e.rejected("vote", err, "voter", caller.Hex())
	}
	defer e.mu.Unlock()
	weight := e.deposits[caller]
	if weight == 0 {
		return e.rejected("vote", ErrNoDeposit, "voter", caller.Hex())
	}
	p, err := e.proposal(proposalID)
	if err != nil {
		return e.rejected("vote", err, "voter", caller.Hex())
	}
	now := e.clock.Now()
	if !p.Active(now) {
		return e.rejected(
			"vote",
			ErrProposalExpired,
			"voter", caller.Hex(),
			"proposal_id", proposalID,
		)
	}
	if prev, ok := e.votes[proposalID][caller]; ok &&
		prev.Decision != DecisionNone {
		return e.rejected(
			"vote",
			ErrAlreadyVoted,
			"voter", caller.Hex(),
			"proposal_id", proposalID,
		)
	}
	switch decision {
	case DecisionYes:
		p.VotesYes += weight
	case DecisionNo:
		p.VotesNo += weight
	case DecisionAbstain:
		p.VotesAbstain += weight
	default:
		return e.rejected(
			"vote",
			fmt.Errorf("%w: %d", ErrInvalidDecision, decision),
			"voter", caller.Hex(),
			"proposal_id", proposalID,
		)
	}
	voters, ok := e.votes[proposalID]
	if !ok {
		voters = make(map[Account]Vote)
		e.votes[proposalID] = voters
	}
	voters[caller] = Vote{
		Decision: decision,
		Weight:   weight,
		CastAt:   now,
	}
	e.logger.Info(
		"vote cast",
		"proposal_id", proposalID,
		"voter", caller.Hex(),
		"decision", decision.String(),
		"weight", weight,
	)
	if e.metrics != nil {
		e.metrics.votes.WithLabelValues(decision.String()).Inc()
	}
	e.publish(VoteCastEventType, VoteCastEvent{
		ProposalID: proposalID,
		Voter:      caller,
		Decision:   decision,
		Weight:     weight,
	})
	return nil
}
