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

// Deposit is the amount an account has in the governance pool. Rows are
// never deleted.
type Deposit struct {
	ID      uint         `gorm:"primarykey"`
	Account []byte       `gorm:"uniqueIndex;size:20;not null"`
	Amount  types.Uint64 `gorm:"not null"`
}

func (Deposit) TableName() string {
	return "deposit"
}

// Proposal holds the lifecycle state of a proposal. The payload and
// description are kept in the blob store.
type Proposal struct {
	ID           uint         `gorm:"primarykey"`
	ProposalID   uint64       `gorm:"uniqueIndex;not null"`
	Proposer     []byte       `gorm:"size:20;not null"`
	Recipient    []byte       `gorm:"size:20;not null"`
	CreatedAt    int64        `gorm:"autoCreateTime:false;not null"` // unix nanoseconds
	Deadline     int64        `gorm:"index;not null"`
	VotesYes     types.Uint64 `gorm:"not null"`
	VotesNo      types.Uint64 `gorm:"not null"`
	VotesAbstain types.Uint64 `gorm:"not null"`
	Finished     bool         `gorm:"not null"`
	Outcome      uint8        `gorm:"not null"` // 0=pending, 1=executed, 2=rejected, 3=call failed
}

func (Proposal) TableName() string {
	return "proposal"
}

// Vote is a decision cast on a proposal with the weight it carried
type Vote struct {
	ID         uint         `gorm:"primarykey"`
	ProposalID uint64       `gorm:"uniqueIndex:idx_vote_unique,priority:1;not null"`
	Voter      []byte       `gorm:"uniqueIndex:idx_vote_unique,priority:2;index;size:20;not null"`
	Decision   uint8        `gorm:"not null"` // 1=yes, 2=no, 3=abstain
	Weight     types.Uint64 `gorm:"not null"`
	CastAt     int64        `gorm:"not null"` // unix nanoseconds
}

func (Vote) TableName() string {
	return "vote"
}
