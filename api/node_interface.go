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
	"context"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
)

// GovernanceNode is what the API server needs from a node. Mutations go
// through the node so that they are persisted before a response is sent.
type GovernanceNode interface {
	// Engine returns the governance engine, or nil before deployment
	Engine() *governance.Engine
	EventBus() *event.EventBus
	Now() time.Time

	Deposit(ctx context.Context, account common.Address, amount uint64) error
	Withdraw(ctx context.Context, account common.Address, amount uint64) error
	Propose(
		ctx context.Context,
		caller common.Address,
		payload []byte,
		recipient common.Address,
		description string,
	) (uint64, error)
	CastVote(
		ctx context.Context,
		caller common.Address,
		proposalID uint64,
		decision governance.Decision,
	) error
	Execute(
		ctx context.Context,
		caller common.Address,
		proposalID uint64,
	) (governance.Outcome, error)
}
