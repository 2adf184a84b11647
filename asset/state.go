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
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// TokenState is a full copy of a token ledger
type TokenState struct {
	Name          string
	Symbol        string
	Owner         common.Address
	TotalSupply   uint64
	Balances      map[common.Address]uint64
	Allowances    map[common.Address]map[common.Address]uint64
	GovernedValue uint64
}

func (t *Token) Snapshot() TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	ret := TokenState{
		Name:          t.name,
		Symbol:        t.symbol,
		Owner:         t.owner,
		TotalSupply:   t.totalSupply,
		Balances:      make(map[common.Address]uint64, len(t.balances)),
		Allowances:    make(map[common.Address]map[common.Address]uint64, len(t.allowances)),
		GovernedValue: t.governedValue,
	}
	for account, balance := range t.balances {
		ret.Balances[account] = balance
	}
	for holder, spenders := range t.allowances {
		tmpSpenders := make(map[common.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			tmpSpenders[spender] = amount
		}
		ret.Allowances[holder] = tmpSpenders
	}
	return ret
}

// Restore replaces the ledger with state. The balances must add up to the
// total supply.
func (t *Token) Restore(state TokenState) error {
	if state.Owner == (common.Address{}) {
		return fmt.Errorf("%w: no owner", ErrInvalidTokenState)
	}
	var sum uint64
	balances := make(map[common.Address]uint64, len(state.Balances))
	for account, balance := range state.Balances {
		if sum > math.MaxUint64-balance {
			return fmt.Errorf("%w: balances overflow", ErrInvalidTokenState)
		}
		sum += balance
		balances[account] = balance
	}
	if sum != state.TotalSupply {
		return fmt.Errorf(
			"%w: balances sum to %d, total supply is %d",
			ErrInvalidTokenState,
			sum,
			state.TotalSupply,
		)
	}
	allowances := make(map[common.Address]map[common.Address]uint64, len(state.Allowances))
	for holder, spenders := range state.Allowances {
		tmpSpenders := make(map[common.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			tmpSpenders[spender] = amount
		}
		allowances[holder] = tmpSpenders
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if state.Name != "" {
		t.name = state.Name
	}
	if state.Symbol != "" {
		t.symbol = state.Symbol
	}
	t.owner = state.Owner
	t.totalSupply = state.TotalSupply
	t.balances = balances
	t.allowances = allowances
	t.governedValue = state.GovernedValue
	return nil
}
