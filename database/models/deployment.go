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

// DeploymentRowId is the id of the only deployment row
const DeploymentRowId = 1

// Deployment holds the immutable governance configuration together with
// the scalar token state. There is at most one row.
type Deployment struct {
	ID                uint         `gorm:"primarykey"`
	Governor          []byte       `gorm:"size:20;not null"`
	VoteToken         []byte       `gorm:"size:20;not null"`
	GovernanceAccount []byte       `gorm:"size:20;not null"`
	MinimumQuorum     types.Uint64 `gorm:"not null"`
	VotingPeriod      int64        `gorm:"not null"` // nanoseconds
	TokenName         string       `gorm:"size:64"`
	TokenSymbol       string       `gorm:"size:16"`
	TokenOwner        []byte       `gorm:"size:20"`
	TokenTotalSupply  types.Uint64 `gorm:"not null"`
	GovernedValue     types.Uint64 `gorm:"not null"`
	ClockOffset       int64        `gorm:"not null"`              // nanoseconds
	CreatedAt         int64        `gorm:"autoCreateTime:false"` // unix nanoseconds
}

func (Deployment) TableName() string {
	return "deployment"
}
