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
	"math"
	"time"
)

// Deposit moves amount of the vote token from the account into the pool
// and credits the account's voting weight. Nothing changes if the token
// transfer fails.
func (e *Engine) Deposit(
	ctx context.Context,
	account Account,
	amount uint64,
) error {
	if err := e.lock(ctx); err != nil {
		return e.rejected("deposit", err, "account", account.Hex())
	}
	defer e.mu.Unlock()
	if amount == 0 {
		return e.rejected("deposit", ErrInvalidAmount, "account", account.Hex())
	}
	balance := e.deposits[account]
	if balance > math.MaxUint64-amount ||
		e.totalDeposits > math.MaxUint64-amount {
		return e.rejected(
			"deposit",
			ErrAmountOverflow,
			"account", account.Hex(),
			"amount", amount,
		)
	}
	if err := e.ledger.Debit(ctx, account, amount); err != nil {
		return e.rejected(
			"deposit",
			fmt.Errorf("%w: %w", ErrTransferFailed, err),
			"account", account.Hex(),
			"amount", amount,
		)
	}
	balance += amount
	e.deposits[account] = balance
	e.totalDeposits += amount
	e.logger.Info(
		"deposit accepted",
		"account", account.Hex(),
		"amount", amount,
		"balance", balance,
	)
	if e.metrics != nil {
		e.metrics.totalDeposits.Set(float64(e.totalDeposits))
	}
	e.publish(DepositEventType, DepositEvent{
		Account:       account,
		Amount:        amount,
		Balance:       balance,
		TotalDeposits: e.totalDeposits,
	})
	return nil
}

// Withdraw returns amount from the pool to the account. It fails while the
// account has a vote on a proposal that has not reached its deadline.
func (e *Engine) Withdraw(
	ctx context.Context,
	account Account,
	amount uint64,
) error {
	if err := e.lock(ctx); err != nil {
		return e.rejected("withdraw", err, "account", account.Hex())
	}
	defer e.mu.Unlock()
	if amount == 0 {
		return e.rejected("withdraw", ErrInvalidAmount, "account", account.Hex())
	}
	balance := e.deposits[account]
	if amount > balance {
		return e.rejected(
			"withdraw",
			fmt.Errorf(
				"%w: requested %d, deposited %d",
				ErrInsufficientDeposit,
				amount,
				balance,
			),
			"account", account.Hex(),
		)
	}
	now := e.clock.Now()
	if until, frozen := e.frozenUntil(account, now); frozen {
		return e.rejected(
			"withdraw",
			fmt.Errorf(
				"%w: until %s",
				ErrFrozenByActiveVote,
				until.UTC().Format(time.RFC3339),
			),
			"account", account.Hex(),
		)
	}
	e.deposits[account] = balance - amount
	e.totalDeposits -= amount
	if err := e.ledger.Credit(ctx, account, amount); err != nil {
		e.deposits[account] = balance
		e.totalDeposits += amount
		return e.rejected(
			"withdraw",
			fmt.Errorf("%w: %w", ErrTransferFailed, err),
			"account", account.Hex(),
			"amount", amount,
		)
	}
	e.logger.Info(
		"withdrawal accepted",
		"account", account.Hex(),
		"amount", amount,
		"balance", balance-amount,
	)
	if e.metrics != nil {
		e.metrics.totalDeposits.Set(float64(e.totalDeposits))
	}
	e.publish(WithdrawEventType, DepositEvent{
		Account:       account,
		Amount:        amount,
		Balance:       balance - amount,
		TotalDeposits: e.totalDeposits,
	})
	return nil
}
