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

package tally

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
)

// run performs a mutating operation and persists its effect. A failed
// proposal call still finishes the proposal, so that error is persisted too.
// When persisting fails the in-memory state is rolled back to what it was
// before the operation.
func (n *Node) run(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
	attrs ...attribute.KeyValue,
) (err error) {
	ctx, span := n.startSpan(ctx, name, attrs...)
	defer func() { endSpan(span, err) }()
	n.opMu.Lock()
	defer n.opMu.Unlock()
	if !n.Initialized() {
		return ErrNotInitialized
	}
	before := n.checkpoint()
	opErr := fn(ctx)
	if opErr != nil && !errors.Is(opErr, governance.ErrCallExecutionFailed) {
		return opErr
	}
	if err := n.persist(ctx); err != nil {
		if rbErr := n.rollback(before); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return opErr
}

type stateCheckpoint struct {
	governance  governance.State
	token       asset.TokenState
	clockOffset time.Duration
}

// checkpoint copies the in-memory state. The caller must hold opMu.
func (n *Node) checkpoint() stateCheckpoint {
	return stateCheckpoint{
		governance:  n.engine.Snapshot(),
		token:       n.token.Snapshot(),
		clockOffset: n.clock.Offset(),
	}
}

func (n *Node) rollback(c stateCheckpoint) error {
	n.clock.SetOffset(c.clockOffset)
	if err := n.token.Restore(c.token); err != nil {
		return err
	}
	if err := n.engine.Restore(c.governance); err != nil {
		return err
	}
	n.config.logger.Warn(
		"rolled back unpersisted operation",
		"component", "node",
	)
	return nil
}

func (n *Node) Deposit(ctx context.Context, account common.Address, amount uint64) error {
	return n.run(
		ctx,
		"governance.deposit",
		func(ctx context.Context) error {
			return n.engine.Deposit(ctx, account, amount)
		},
		attribute.String("account", account.Hex()),
	)
}

func (n *Node) Withdraw(ctx context.Context, account common.Address, amount uint64) error {
	return n.run(
		ctx,
		"governance.withdraw",
		func(ctx context.Context) error {
			return n.engine.Withdraw(ctx, account, amount)
		},
		attribute.String("account", account.Hex()),
	)
}

func (n *Node) Propose(
	ctx context.Context,
	caller common.Address,
	payload []byte,
	recipient common.Address,
	description string,
) (uint64, error) {
	var id uint64
	err := n.run(
		ctx,
		"governance.propose",
		func(ctx context.Context) error {
			var err error
			id, err = n.engine.Propose(ctx, caller, payload, recipient, description)
			return err
		},
		attribute.String("caller", caller.Hex()),
		attribute.String("recipient", recipient.Hex()),
	)
	return id, err
}

func (n *Node) CastVote(
	ctx context.Context,
	caller common.Address,
	proposalID uint64,
	decision governance.Decision,
) error {
	return n.run(
		ctx,
		"governance.vote",
		func(ctx context.Context) error {
			return n.engine.CastVote(ctx, caller, proposalID, decision)
		},
		attribute.String("caller", caller.Hex()),
		attribute.Int64("proposal_id", int64(proposalID)), //nolint:gosec
		attribute.String("decision", decision.String()),
	)
}

func (n *Node) Execute(
	ctx context.Context,
	caller common.Address,
	proposalID uint64,
) (governance.Outcome, error) {
	var outcome governance.Outcome
	err := n.run(
		ctx,
		"governance.execute",
		func(ctx context.Context) error {
			var err error
			outcome, err = n.engine.Execute(ctx, caller, proposalID)
			return err
		},
		attribute.String("caller", caller.Hex()),
		attribute.Int64("proposal_id", int64(proposalID)), //nolint:gosec
	)
	return outcome, err
}

// Approve lets spender move amount of the holder's tokens. Deposits need an
// approval for the governance account first.
func (n *Node) Approve(
	ctx context.Context,
	holder common.Address,
	spender common.Address,
	amount uint64,
) error {
	return n.run(
		ctx,
		"token.approve",
		func(context.Context) error {
			return n.token.Approve(holder, spender, amount)
		},
		attribute.String("holder", holder.Hex()),
		attribute.String("spender", spender.Hex()),
	)
}

func (n *Node) Transfer(
	ctx context.Context,
	from common.Address,
	to common.Address,
	amount uint64,
) error {
	return n.run(
		ctx,
		"token.transfer",
		func(context.Context) error {
			return n.token.Transfer(from, to, amount)
		},
		attribute.String("from", from.Hex()),
		attribute.String("to", to.Hex()),
	)
}

func (n *Node) Mint(
	ctx context.Context,
	caller common.Address,
	to common.Address,
	amount uint64,
) error {
	return n.run(
		ctx,
		"token.mint",
		func(context.Context) error {
			return n.token.Mint(caller, to, amount)
		},
		attribute.String("caller", caller.Hex()),
		attribute.String("to", to.Hex()),
	)
}

func (n *Node) Burn(
	ctx context.Context,
	caller common.Address,
	from common.Address,
	amount uint64,
) error {
	return n.run(
		ctx,
		"token.burn",
		func(context.Context) error {
			return n.token.Burn(caller, from, amount)
		},
		attribute.String("caller", caller.Hex()),
		attribute.String("from", from.Hex()),
	)
}

// AdvanceTime moves governance time forward by d and persists the offset
func (n *Node) AdvanceTime(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("time advance must be positive: %s", d)
	}
	return n.run(
		ctx,
		"node.advance_time",
		func(context.Context) error {
			n.clock.Advance(d)
			return nil
		},
		attribute.String("duration", d.String()),
	)
}
