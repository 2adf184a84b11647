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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"gorm.io/gorm"
)

// GetDeployment returns the deployment row, or nil if none was stored
func (s *Store) GetDeployment(txn types.Txn) (*models.Deployment, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Deployment
	result := db.Where("id = ?", models.DeploymentRowId).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

func (s *Store) SetDeployment(
	deployment *models.Deployment,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpDeployment := *deployment
	tmpDeployment.ID = models.DeploymentRowId
	return upsert(
		db,
		[]models.Deployment{tmpDeployment},
		[]string{"id"},
		[]string{
			"governor",
			"vote_token",
			"governance_account",
			"minimum_quorum",
			"voting_period",
			"token_name",
			"token_symbol",
			"token_owner",
			"token_total_supply",
			"governed_value",
			"clock_offset",
			"created_at",
		},
	)
}

func (s *Store) GetDeposits(txn types.Txn) ([]models.Deposit, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Deposit
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetDeposits(deposits []models.Deposit, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, deposits, []string{"account"}, []string{"amount"})
}

// GetProposals returns the proposals ordered by id
func (s *Store) GetProposals(txn types.Txn) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	if result := db.Order("proposal_id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetProposals(proposals []models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(
		db,
		proposals,
		[]string{"proposal_id"},
		[]string{
			"votes_yes",
			"votes_no",
			"votes_abstain",
			"finished",
			"outcome",
		},
	)
}

func (s *Store) GetVotes(txn types.Txn) ([]models.Vote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	if result := db.Order("proposal_id, id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVotes stores votes. A recorded vote never changes, so existing rows
// are left alone.
func (s *Store) SetVotes(votes []models.Vote, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(
		db,
		votes,
		[]string{"proposal_id", "voter"},
		[]string{"decision", "weight", "cast_at"},
	)
}

func (s *Store) GetTokenBalances(txn types.Txn) ([]models.TokenBalance, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TokenBalance
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetTokenBalances(
	balances []models.TokenBalance,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, balances, []string{"account"}, []string{"balance"})
}

func (s *Store) GetTokenAllowances(
	txn types.Txn,
) ([]models.TokenAllowance, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TokenAllowance
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetTokenAllowances(
	allowances []models.TokenAllowance,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(
		db,
		allowances,
		[]string{"holder", "spender"},
		[]string{"amount"},
	)
}
