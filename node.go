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
	"sync"
	"time"

	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/call"
	"github.com/blinklabs-io/tally/database"
	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
)

var (
	ErrAlreadyInitialized = errors.New("governance is already deployed")
	ErrNotInitialized     = errors.New("governance is not deployed")
)

// Node hosts a governance deployment. It serializes operations and writes
// the resulting state to the database before the next operation starts, so
// the stored state is always a prefix of the operation stream.
type Node struct {
	config        Config
	db            *database.Database
	eventBus      *event.EventBus
	clock         *governance.OffsetClock
	shutdownFuncs []func(context.Context) error
	closeOnce     sync.Once

	// opMu serializes operations together with their persistence
	opMu sync.Mutex
	// stateMu guards the component pointers, which are set once
	stateMu   sync.RWMutex
	token     *asset.Token
	router    *call.Router
	engine    *governance.Engine
	createdAt time.Time
}

// New opens the database and restores a previously stored deployment, if
// any
func New(cfg Config) (*Node, error) {
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
	}
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			n.eventBus.Close()
			return nil, err
		}
	}
	if err := n.openDatabase(); err != nil {
		_ = n.Close()
		return nil, err
	}
	snap, err := n.db.LoadSnapshot(nil)
	switch {
	case errors.Is(err, database.ErrNoDeployment):
		n.clock = governance.NewOffsetClock(n.config.clock, 0)
	case err != nil:
		_ = n.Close()
		return nil, fmt.Errorf("failed to load state: %w", err)
	default:
		if err := n.restore(snap); err != nil {
			_ = n.Close()
			return nil, fmt.Errorf("failed to restore state: %w", err)
		}
	}
	return n, nil
}

func (n *Node) openDatabase() error {
	db, err := database.New(&database.Config{
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	})
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"component", "node",
			"error", err,
		)
		if err := db.RecoverCommitTimestamp(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	return nil
}

type components struct {
	token  *asset.Token
	router *call.Router
	engine *governance.Engine
}

// build creates the token, the call router and the engine for a deployment
func (n *Node) build(
	cfg governance.Config,
	tokenOwner governance.Account,
	tokenName string,
	tokenSymbol string,
) (*components, error) {
	token, err := asset.NewToken(
		tokenOwner,
		asset.WithLogger(n.config.logger),
		asset.WithMetadata(tokenName, tokenSymbol),
	)
	if err != nil {
		return nil, err
	}
	router := call.NewRouter(
		call.WithLogger(n.config.logger),
		call.WithPromRegistry(n.config.promRegistry),
	)
	contract, err := asset.TokenContract(token)
	if err != nil {
		return nil, err
	}
	if err := router.Register(cfg.VoteToken, contract); err != nil {
		return nil, err
	}
	engine, err := governance.New(
		cfg,
		asset.NewCustody(token, cfg.GovernanceAccount),
		router,
		governance.WithClock(n.clock),
		governance.WithLogger(n.config.logger),
		governance.WithEventBus(n.eventBus),
		governance.WithPromRegistry(n.config.promRegistry),
	)
	if err != nil {
		return nil, err
	}
	return &components{token: token, router: router, engine: engine}, nil
}

// install makes the components visible to operations and readers
func (n *Node) install(c *components, createdAt time.Time) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.token = c.token
	n.router = c.router
	n.engine = c.engine
	n.createdAt = createdAt
}

func (n *Node) restore(snap *database.Snapshot) error {
	n.clock = governance.NewOffsetClock(n.config.clock, snap.ClockOffset)
	c, err := n.build(
		snap.Config,
		snap.Token.Owner,
		snap.Token.Name,
		snap.Token.Symbol,
	)
	if err != nil {
		return err
	}
	if err := c.token.Restore(snap.Token); err != nil {
		return err
	}
	if err := c.engine.Restore(snap.Governance); err != nil {
		return err
	}
	n.install(c, snap.CreatedAt)
	n.config.logger.Info(
		"restored governance state",
		"component", "node",
		"governor", snap.Config.Governor.Hex(),
		"proposals", len(snap.Governance.Proposals),
		"total_deposits", c.engine.TotalDeposits(),
	)
	return nil
}

// persist writes the current state of every component. The caller must
// hold opMu.
func (n *Node) persist(ctx context.Context) error {
	return n.save(ctx, &components{token: n.token, engine: n.engine}, n.createdAt)
}

func (n *Node) save(ctx context.Context, c *components, createdAt time.Time) (err error) {
	_, span := n.startSpan(ctx, "database.save")
	defer func() { endSpan(span, err) }()
	snap := &database.Snapshot{
		Config:      c.engine.Config(),
		ClockOffset: n.clock.Offset(),
		CreatedAt:   createdAt,
		Governance:  c.engine.Snapshot(),
		Token:       c.token.Snapshot(),
	}
	if err := n.db.SaveSnapshot(snap, nil); err != nil {
		n.config.logger.Error(
			"failed to persist state",
			"component", "node",
			"error", err,
		)
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Initialized reports whether a deployment exists
func (n *Node) Initialized() bool {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.engine != nil
}

// Engine returns the governance engine, or nil before deployment. Mutating
// calls must go through the Node so that they are persisted.
func (n *Node) Engine() *governance.Engine {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.engine
}

// Token returns the vote token, or nil before deployment
func (n *Node) Token() *asset.Token {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.token
}

// Router returns the call router, or nil before deployment
func (n *Node) Router() *call.Router {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.router
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Database() *database.Database {
	return n.db
}

// Now returns the governance time, including any offset added by AdvanceTime
func (n *Node) Now() time.Time {
	return n.clock.Now()
}

// ClockOffset returns the total time added by AdvanceTime
func (n *Node) ClockOffset() time.Duration {
	return n.clock.Offset()
}

// CreatedAt returns the deployment time, or the zero time before deployment
func (n *Node) CreatedAt() time.Time {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.createdAt
}

// Close flushes tracing, stops the event bus and closes the database
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Wait for an in-flight operation to be persisted
	n.opMu.Lock()
	defer n.opMu.Unlock()

	var err error
	n.config.logger.Debug("starting shutdown", "component", "node")
	if n.eventBus != nil {
		n.eventBus.Close()
	}
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil
	n.config.logger.Debug("shutdown complete", "component", "node")
	return err
}
