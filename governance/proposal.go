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

// Propose registers a new proposal and returns its id. Only the governor
// may propose.
func (e *Engine) Propose(
	ctx context.Context,
	caller Account,
	payload []byte,
	recipient Account,
	description string,
) (uint64, error) {
	if err := e.lock(ctx); err != nil {
		return 0, e.rejected("propose", err, "caller", caller.Hex())
	}
	defer e.mu.Unlock()
	if caller != e.config.Governor {
		return 0, e.rejected(
			"propose",
			fmt.Errorf("%w: caller %s", ErrUnauthorized, caller.Hex()),
			"caller", caller.Hex(),
		)
	}
	var zero Account
	if recipient == zero || len(payload) == 0 {
		return 0, e.rejected("propose", ErrInvalidProposal, "caller", caller.Hex())
	}
	now := e.clock.Now()
	p := &Proposal{
		ID:          uint64(len(e.proposals)),
		Proposer:    caller,
		Recipient:   recipient,
		Payload:     append([]byte(nil), payload...),
		Description: description,
		CreatedAt:   now,
		Deadline:    now.Add(e.config.VotingPeriod),
	}
	e.proposals = append(e.proposals, p)
	e.logger.Info(
		"proposal created",
		"proposal_id", p.ID,
		"recipient", recipient.Hex(),
		"deadline", p.Deadline,
	)
	if e.metrics != nil {
		e.metrics.proposals.Inc()
	}
	e.publish(ProposalCreatedEventType, ProposalCreatedEvent{
		ProposalID:  p.ID,
		Proposer:    caller,
		Recipient:   recipient,
		Description: description,
		Deadline:    p.Deadline,
	})
	return p.ID, nil
}
