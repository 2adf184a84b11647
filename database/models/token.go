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

package models

import "github.com/blinklabs-io/tally/database/types"

type TokenBalance struct {
	ID      uint         `gorm:"primarykey"`
	Account []byte       `gorm:"uniqueIndex;size:20;not null"`
	Balance types.Uint64 `gorm:"not null"`
}

func (TokenBalance) TableName() string {
	return "token_balance"
}

type TokenAllowance struct {
	ID      uint         `gorm:"primarykey"`
	Holder  []byte       `gorm:"uniqueIndex:idx_allowance_unique,priority:1;size:20;not null"`
	Spender []byte       `gorm:"uniqueIndex:idx_allowance_unique,priority:2;size:20;not null"`
	Amount  types.Uint64 `gorm:"not null"`
}

func (TokenAllowance) TableName() string {
	return "token_allowance"
}
