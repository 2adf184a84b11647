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

package governance_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	chairman   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	tokenAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	poolAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	addr1      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	addr2      = common.HexToAddress("0x0000000000000000000000000000000000000002")
	addr3      = common.HexToAddress("0x0000000000000000000000000000000000000003")
	demoCall   = []byte{0x01, 0x02, 0x03, 0x04}
	brokenCall = []byte{0x07, 0x82, 0x4c, 0x06}
)

const (
	testQuorum = 7000
	testPeriod = 72 * time.Hour
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errInsufficientBalance = errors.New("insufficient balance")

// testLedger is a minimal token ledger with a custody balance
type testLedger struct {
	balances map[governance.Account]uint64
	custody  uint64
	fail     error
}

func newTestLedger() *testLedger {
	return &testLedger{
		balances: map[governance.Account]uint64{
			addr1: 1000,
			addr2: 9000,
		},
	}
}

func (l *testLedger) Debit(
	_ context.Context,
	from governance.Account,
	amount uint64,
) error {
	if l.fail != nil {
		return l.fail
	}
	if l.balances[from] < amount {
		return errInsufficientBalance
	}
	l.balances[from] -= amount
	l.custody += amount
	return nil
}

func (l *testLedger) Credit(
	_ context.Context,
	to governance.Account,
	amount uint64,
) error {
	if l.fail != nil {
		return l.fail
	}
	if l.custody < amount {
		return errInsufficientBalance
	}
	l.custody -= amount
	l.balances[to] += amount
	return nil
}

var errUnknownSelector = errors.New("unknown selector")

// testInvoker accepts only demoCall and counts successful calls
type testInvoker struct {
	mu     sync.Mutex
	calls  int
	caller governance.Account
	hook   func(ctx context.Context) error
}

func (i *testInvoker) Invoke(
	ctx context.Context,
	caller governance.Account,
	_ governance.Account,
	payload []byte,
) error {
	if i.hook != nil {
		if err := i.hook(ctx); err != nil {
			return err
		}
	}
	if !bytes.Equal(payload, demoCall) {
		return errUnknownSelector
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	i.caller = caller
	return nil
}

func (i *testInvoker) Calls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

type testEnv struct {
	engine  *governance.Engine
	clock   *testClock
	ledger  *testLedger
	invoker *testInvoker
}

func newTestEnv(
	t *testing.T,
	opts ...governance.EngineOptionFunc,
) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:   newTestClock(),
		ledger:  newTestLedger(),
		invoker: &testInvoker{},
	}
	opts = append(opts, governance.WithClock(env.clock))
	engine, err := governance.New(
		governance.Config{
			Governor:          chairman,
			VoteToken:         tokenAddr,
			GovernanceAccount: poolAddr,
			MinimumQuorum:     testQuorum,
			VotingPeriod:      testPeriod,
		},
		env.ledger,
		env.invoker,
		opts...,
	)
	require.NoError(t, err)
	env.engine = engine
	return env
}

func (env *testEnv) propose(t *testing.T, payload []byte) uint64 {
	t.Helper()
	id, err := env.engine.Propose(
		t.Context(),
		chairman,
		payload,
		tokenAddr,
		"Unique proposal",
	)
	require.NoError(t, err)
	return id
}

func (env *testEnv) depositAndVote(
	t *testing.T,
	account governance.Account,
	amount uint64,
	id uint64,
	decision governance.Decision,
) {
	t.Helper()
	require.NoError(t, env.engine.Deposit(t.Context(), account, amount))
	require.NoError(t, env.engine.CastVote(t.Context(), account, id, decision))
}
