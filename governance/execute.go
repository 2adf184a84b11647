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

// Execute finishes a proposal whose deadline has passed. Any account may
// call it. A proposal that misses quorum stays open for a later attempt;
// otherwise it is finished exactly once, and its call is invoked when yes
// outweighs no. A failed call still finishes the proposal.
//
// The engine lock is released while the call runs. The proposal stays
// pending until the call returns. Mutating operations made from inside the
// call, using the context it was given, fail with ErrReentrantCall. Other
// mutating callers wait for it to return.
func (e *Engine) Execute(
	ctx context.Context,
	caller Account,
	proposalID uint64,
) (Outcome, error) {
	if err := e.lock(ctx); err != nil {
		return OutcomePending, e.rejected("execute", err, "caller", caller.Hex())
	}
	p, err := e.proposal(proposalID)
	if err != nil {
		e.mu.Unlock()
		return OutcomePending, e.rejected("execute", err, "caller", caller.Hex())
	}
	now := e.clock.Now()
	if p.Active(now) {
		e.mu.Unlock()
		return OutcomePending, e.rejected(
			"execute",
			ErrProposalInProgress,
			"proposal_id", proposalID,
		)
	}
	if p.Finished {
		e.mu.Unlock()
		return p.Outcome, e.rejected(
			"execute",
			ErrAlreadyFinished,
			"proposal_id", proposalID,
		)
	}
	if total := p.TotalVotes(); total < e.config.MinimumQuorum {
		e.mu.Unlock()
		return OutcomePending, e.rejected(
			"execute",
			fmt.Errorf(
				"%w: %d of %d",
				ErrQuorumNotReached,
				total,
				e.config.MinimumQuorum,
			),
			"proposal_id", proposalID,
		)
	}
	if p.VotesYes <= p.VotesNo {
		p.Finished = true
		p.Outcome = OutcomeRejected
		finished := e.finishedEvent(p, caller, nil)
		e.mu.Unlock()
		e.logger.Info(
			"proposal rejected by vote",
			"proposal_id", proposalID,
			"votes_yes", finished.VotesYes,
			"votes_no", finished.VotesNo,
		)
		e.recordOutcome(finished)
		return OutcomeRejected, nil
	}
	// Mark the call as in flight before giving up the lock
	e.executing = true
	e.idle = make(chan struct{})
	recipient := p.Recipient
	payload := append([]byte(nil), p.Payload...)
	governanceAccount := e.config.GovernanceAccount
	e.mu.Unlock()

	callCtx := context.WithValue(ctx, executionKey{}, e)
	callErr := e.invoke(callCtx, governanceAccount, recipient, payload)

	e.mu.Lock()
	p.Finished = true
	p.Outcome = OutcomeExecuted
	if callErr != nil {
		p.Outcome = OutcomeCallFailed
	}
	e.executing = false
	close(e.idle)
	finished := e.finishedEvent(p, caller, callErr)
	e.mu.Unlock()

	e.recordOutcome(finished)
	if callErr != nil {
		return OutcomeCallFailed, e.rejected(
			"execute",
			fmt.Errorf("%w: %w", ErrCallExecutionFailed, callErr),
			"proposal_id", proposalID,
			"recipient", recipient.Hex(),
		)
	}
	e.logger.Info(
		"proposal executed",
		"proposal_id", proposalID,
		"recipient", recipient.Hex(),
	)
	return OutcomeExecuted, nil
}

// invoke runs the proposal call, turning a panic into an error so the
// reentrancy flag is always cleared
func (e *Engine) invoke(
	ctx context.Context,
	caller Account,
	recipient Account,
	payload []byte,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("call panic: %v", r)
		}
	}()
	return e.invoker.Invoke(ctx, caller, recipient, payload)
}

func (e *Engine) finishedEvent(
	p *Proposal,
	executor Account,
	callErr error,
) ProposalFinishedEvent {
	evt := ProposalFinishedEvent{
		ProposalID:   p.ID,
		Executor:     executor,
		Outcome:      p.Outcome,
		VotesYes:     p.VotesYes,
		VotesNo:      p.VotesNo,
		VotesAbstain: p.VotesAbstain,
	}
	if callErr != nil {
		evt.Error = callErr.Error()
	}
	return evt
}

func (e *Engine) recordOutcome(evt ProposalFinishedEvent) {
	if e.metrics != nil {
		e.metrics.executions.WithLabelValues(evt.Outcome.String()).Inc()
	}
	e.publish(ProposalFinishedEventType, evt)
}
