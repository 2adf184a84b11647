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

package asset

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultName   = "Vision DAO Token"
	DefaultSymbol = "VDT"
)

// Token is a fungible token ledger with ERC20 semantics. Every mutating
// method takes the calling address explicitly.
type Token struct {
	mu            sync.Mutex
	name          string
	symbol        string
	owner         common.Address
	totalSupply   uint64
	balances      map[common.Address]uint64
	allowances    map[common.Address]map[common.Address]uint64
	governedValue uint64
	logger        *slog.Logger
}

type TokenOptionFunc func(*Token)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) TokenOptionFunc {
	return func(t *Token) {
		t.logger = logger
	}
}

// WithMetadata overrides the token name and symbol
func WithMetadata(name string, symbol string) TokenOptionFunc {
	return func(t *Token) {
		t.name = name
		t.symbol = symbol
	}
}

// NewToken creates an empty token owned by owner
func NewToken(owner common.Address, opts ...TokenOptionFunc) (*Token, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	t := &Token{
		name:       DefaultName,
		symbol:     DefaultSymbol,
		owner:      owner,
		balances:   make(map[common.Address]uint64),
		allowances: make(map[common.Address]map[common.Address]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	t.logger = t.logger.With("component", "asset", "token", t.symbol)
	return t, nil
}

func (t *Token) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *Token) Symbol() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.symbol
}

func (t *Token) Owner() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

func (t *Token) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSupply
}

func (t *Token) BalanceOf(account common.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Allowance returns how much spender may still move out of holder
func (t *Token) Allowance(holder, spender common.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[holder][spender]
}

// GovernedValue is a counter only the owner can bump. Governance tests use
// it to observe executed proposals.
func (t *Token) GovernedValue() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.governedValue
}

// move transfers between balances. The caller must hold mu.
func (t *Token) move(from, to common.Address, amount uint64) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if t.balances[from] < amount {
		return fmt.Errorf(
			"%w: %s holds %d, needs %d",
			ErrInsufficientBalance,
			from.Hex(),
			t.balances[from],
			amount,
		)
	}
	// Cannot overflow: the sum of balances equals totalSupply
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

// Transfer moves amount from caller to to
func (t *Token) Transfer(caller, to common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.move(caller, to, amount); err != nil {
		return err
	}
	t.logger.Debug(
		"transfer",
		"from", caller.Hex(),
		"to", to.Hex(),
		"amount", amount,
	)
	return nil
}

// Approve sets the amount spender may move out of the caller's balance
func (t *Token) Approve(caller, spender common.Address, amount uint64) error {
	if caller == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	spenders, ok := t.allowances[caller]
	if !ok {
		spenders = make(map[common.Address]uint64)
		t.allowances[caller] = spenders
	}
	spenders[spender] = amount
	t.logger.Debug(
		"approve",
		"holder", caller.Hex(),
		"spender", spender.Hex(),
		"amount", amount,
	)
	return nil
}

// TransferFrom moves amount from holder to to using the caller's allowance.
// An allowance of math.MaxUint64 is never decreased.
func (t *Token) TransferFrom(
	caller common.Address,
	holder common.Address,
	to common.Address,
	amount uint64,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed := t.allowances[holder][caller]
	if allowed < amount {
		return fmt.Errorf(
			"%w: %s may spend %d of %s, needs %d",
			ErrInsufficientAllowance,
			caller.Hex(),
			allowed,
			holder.Hex(),
			amount,
		)
	}
	if err := t.move(holder, to, amount); err != nil {
		return err
	}
	if allowed != math.MaxUint64 {
		t.allowances[holder][caller] = allowed - amount
	}
	t.logger.Debug(
		"transfer from",
		"spender", caller.Hex(),
		"from", holder.Hex(),
		"to", to.Hex(),
		"amount", amount,
	)
	return nil
}

func (t *Token) checkOwner(caller common.Address) error {
	if caller != t.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// Mint creates amount new tokens for to. Owner only.
func (t *Token) Mint(caller, to common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOwner(caller); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if t.totalSupply > math.MaxUint64-amount {
		return ErrOverflow
	}
	t.totalSupply += amount
	t.balances[to] += amount
	t.logger.Info("mint", "to", to.Hex(), "amount", amount)
	return nil
}

// Burn destroys amount tokens held by from. Owner only.
func (t *Token) Burn(caller, from common.Address, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOwner(caller); err != nil {
		return err
	}
	if t.balances[from] < amount {
		return fmt.Errorf(
			"%w: %s holds %d, burning %d",
			ErrInsufficientBalance,
			from.Hex(),
			t.balances[from],
			amount,
		)
	}
	t.balances[from] -= amount
	t.totalSupply -= amount
	t.logger.Info("burn", "from", from.Hex(), "amount", amount)
	return nil
}

// TransferOwnership hands the owner-only methods to newOwner
func (t *Token) TransferOwnership(caller, newOwner common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner", ErrZeroAddress)
	}
	t.logger.Info(
		"ownership transferred",
		"previous_owner", t.owner.Hex(),
		"new_owner", newOwner.Hex(),
	)
	t.owner = newOwner
	return nil
}

// GovernedDemoFunction increments the governed value. Owner only.
func (t *Token) GovernedDemoFunction(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOwner(caller); err != nil {
		return err
	}
	t.governedValue++
	t.logger.Info("governed value updated", "value", t.governedValue)
	return nil
}
