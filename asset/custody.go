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
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Custody holds deposited tokens under a single account. It implements
// governance.AssetLedger.
type Custody struct {
	token   *Token
	account common.Address
}

func NewCustody(token *Token, account common.Address) *Custody {
	return &Custody{
		token:   token,
		account: account,
	}
}

func (c *Custody) Account() common.Address {
	return c.account
}

// Balance returns the tokens currently in custody
func (c *Custody) Balance() uint64 {
	return c.token.BalanceOf(c.account)
}

// Debit pulls amount from the holder. The holder must have approved the
// custody account beforehand.
func (c *Custody) Debit(
	_ context.Context,
	from common.Address,
	amount uint64,
) error {
	return c.token.TransferFrom(c.account, from, c.account, amount)
}

// Credit pays amount out of custody to the holder
func (c *Custody) Credit(
	_ context.Context,
	to common.Address,
	amount uint64,
) error {
	return c.token.Transfer(c.account, to, amount)
}
