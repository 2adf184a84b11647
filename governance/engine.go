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
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/prometheus/client_golang/prometheus"
)

// AssetLedger moves vote tokens between stakeholders and the pool
type AssetLedger interface {
	// Debit moves amount from the account into engine custody. It needs a
	// prior allowance from the account.
	Debit(ctx context.Context, from Account, amount uint64) error
	// Credit moves amount from engine custody to the account
	Credit(ctx context.Context, to Account, amount uint64) error
}

// Invoker performs the call of a winning proposal on behalf of the
// governance account
type Invoker interface {
	Invoke(
		ctx context.Context,
		caller Account,
		recipient Account,
		payload []byte,
	) error
}

// Clock provides the current time. It is read once per operation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// OffsetClock shifts a base clock by an adjustable offset. Local networks
// use it to fast-forward past voting periods.
type OffsetClock struct {
	base   Clock
	offset atomic.Int64
}

// NewOffsetClock wraps base, or the system clock when base is nil
func NewOffsetClock(base Clock, offset time.Duration) *OffsetClock {
	if base == nil {
		base = SystemClock{}
	}
	c := &OffsetClock{base: base}
	c.offset.Store(int64(offset))
	return c
}

func (c *OffsetClock) Now() time.Time {
	return c.base.Now().Add(c.Offset())
}

func (c *OffsetClock) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}

// SetOffset replaces the offset. It is used to undo an Advance that could
// not be stored.
func (c *OffsetClock) SetOffset(offset time.Duration) {
	c.offset.Store(int64(offset))
}

// Advance moves the clock forward. Negative values are ignored so that
// time never runs backwards.
func (c *OffsetClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.offset.Add(int64(d))
}

// Config is fixed at construction
type Config struct {
	// Governor is the chairman, the only account allowed to propose
	Governor Account
	// VoteToken is the address of the deposited token
	VoteToken Account
	// GovernanceAccount holds deposits and is the caller of proposal calls
	GovernanceAccount Account
	// MinimumQuorum is an absolute weight threshold
	MinimumQuorum uint64
	VotingPeriod  time.Duration
}

func (c Config) validate() error {
	var zero Account
	if c.Governor == zero {
		return fmt.Errorf("%w: governor address is required", ErrInvalidConfig)
	}
	if c.VoteToken == zero {
		return fmt.Errorf("%w: vote token address is required", ErrInvalidConfig)
	}
	if c.GovernanceAccount == zero {
		return fmt.Errorf(
			"%w: governance account is required",
			ErrInvalidConfig,
		)
	}
	if c.VotingPeriod <= 0 {
		return fmt.Errorf(
			"%w: voting period must be positive",
			ErrInvalidConfig,
		)
	}
	return nil
}

// Engine is the governance state machine. All operations are serialized.
type Engine struct {
	mu            sync.Mutex
	config        Config
	ledger        AssetLedger
	invoker       Invoker
	clock         Clock
	logger        *slog.Logger
	eventBus      *event.EventBus
	promRegistry  prometheus.Registerer
	metrics       *engineMetrics
	deposits      map[Account]uint64
	totalDeposits uint64
	proposals     []*Proposal
	votes         map[uint64]map[Account]Vote
	// set while a proposal call is in flight
	executing bool
	// closed when the in-flight call returns
	idle chan struct{}
}

type executionKey struct{}

type EngineOptionFunc func(*Engine)

// WithClock specifies the time source
func WithClock(clock Clock) EngineOptionFunc {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventBus specifies the event bus to publish state transitions on
func WithEventBus(eventBus *event.EventBus) EngineOptionFunc {
	return func(e *Engine) {
		e.eventBus = eventBus
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) EngineOptionFunc {
	return func(e *Engine) {
		e.promRegistry = registry
	}
}

// New creates an engine with empty ledgers
func New(
	cfg Config,
	ledger AssetLedger,
	invoker Invoker,
	opts ...EngineOptionFunc,
) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: asset ledger is required", ErrInvalidConfig)
	}
	if invoker == nil {
		return nil, fmt.Errorf("%w: invoker is required", ErrInvalidConfig)
	}
	e := &Engine{
		config:   cfg,
		ledger:   ledger,
		invoker:  invoker,
		deposits: make(map[Account]uint64),
		votes:    make(map[uint64]map[Account]Vote),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e.logger = e.logger.With("component", "governance")
	if e.promRegistry != nil {
		e.initMetrics()
	}
	return e, nil
}

// lock acquires the engine lock for a mutating operation. Calls made from
// inside a proposal call fail with ErrReentrantCall. Other callers wait for
// the in-flight call to finish. The lock is not held on error.
func (e *Engine) lock(ctx context.Context) error {
	if owner, ok := ctx.Value(executionKey{}).(*Engine); ok && owner == e {
		return ErrReentrantCall
	}
	e.mu.Lock()
	for e.executing {
		idle := e.idle
		e.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.mu.Lock()
	}
	return nil
}

// rejected records and logs a failed operation and passes the error through
func (e *Engine) rejected(operation string, err error, args ...any) error {
	if e.metrics != nil {
		e.metrics.rejected.WithLabelValues(operation, errorReason(err)).Inc()
	}
	e.logger.Debug(
		operation+" rejected",
		append(args, "error", err)...,
	)
	return err
}

func (e *Engine) publish(eventType event.EventType, data any) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}

// proposal returns the stored proposal or ErrProposalNotFound. The caller
// must hold the lock.
func (e *Engine) proposal(id uint64) (*Proposal, error) {
	if id >= uint64(len(e.proposals)) {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return e.proposals[id], nil
}

// frozenUntil returns the latest deadline among active proposals the
// account voted on. The caller must hold the lock.
func (e *Engine) frozenUntil(account Account, now time.Time) (time.Time, bool) {
	var until time.Time
	frozen := false
	for id, voters := range e.votes {
		vote, ok := voters[account]
		if !ok || vote.Decision == DecisionNone {
			continue
		}
		p := e.proposals[id]
		if p.Active(now) && p.Deadline.After(until) {
			until = p.Deadline
			frozen = true
		}
	}
	return until, frozen
}

