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

package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoDeployment is returned when loading from a database that was never
// initialized
var ErrNoDeployment = errors.New("no deployment found")

// Snapshot is everything needed to rebuild a deployment: its parameters,
// the governance ledgers and the vote token ledger
type Snapshot struct {
	Config      governance.Config
	ClockOffset time.Duration
	CreatedAt   time.Time
	Governance  governance.State
	Token       asset.TokenState
}

// SaveSnapshot writes snap to both stores. Rows are upserted, never removed,
// so snap must be a later state of the same deployment. A nil txn runs in
// a transaction of its own.
func (d *Database) SaveSnapshot(snap *Snapshot, txn *Txn) error {
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.SaveSnapshot(snap, txn)
		})
	}
	ms := d.Metadata()
	mTxn := txn.Metadata()
	if err := ms.SetDeployment(deploymentToModel(snap), mTxn); err != nil {
		return fmt.Errorf("save deployment: %w", err)
	}
	deposits := make([]models.Deposit, 0, len(snap.Governance.Deposits))
	for account, amount := range snap.Governance.Deposits {
		deposits = append(deposits, models.Deposit{
			Account: account.Bytes(),
			Amount:  types.Uint64(amount),
		})
	}
	if err := ms.SetDeposits(deposits, mTxn); err != nil {
		return fmt.Errorf("save deposits: %w", err)
	}
	proposals := make([]models.Proposal, 0, len(snap.Governance.Proposals))
	for _, p := range snap.Governance.Proposals {
		if err := d.setProposalBlobs(p, txn); err != nil {
			return err
		}
		proposals = append(proposals, proposalToModel(p))
	}
	if err := ms.SetProposals(proposals, mTxn); err != nil {
		return fmt.Errorf("save proposals: %w", err)
	}
	var votes []models.Vote
	for id, voters := range snap.Governance.Votes {
		for voter, vote := range voters {
			votes = append(votes, models.Vote{
				ProposalID: id,
				Voter:      voter.Bytes(),
				Decision:   uint8(vote.Decision),
				Weight:     types.Uint64(vote.Weight),
				CastAt:     vote.CastAt.UnixNano(),
			})
		}
	}
	if err := ms.SetVotes(votes, mTxn); err != nil {
		return fmt.Errorf("save votes: %w", err)
	}
	balances := make([]models.TokenBalance, 0, len(snap.Token.Balances))
	for account, balance := range snap.Token.Balances {
		balances = append(balances, models.TokenBalance{
			Account: account.Bytes(),
			Balance: types.Uint64(balance),
		})
	}
	if err := ms.SetTokenBalances(balances, mTxn); err != nil {
		return fmt.Errorf("save token balances: %w", err)
	}
	var allowances []models.TokenAllowance
	for holder, spenders := range snap.Token.Allowances {
		for spender, amount := range spenders {
			allowances = append(allowances, models.TokenAllowance{
				Holder:  holder.Bytes(),
				Spender: spender.Bytes(),
				Amount:  types.Uint64(amount),
			})
		}
	}
	if err := ms.SetTokenAllowances(allowances, mTxn); err != nil {
		return fmt.Errorf("save token allowances: %w", err)
	}
	return nil
}

// setProposalBlobs stores the payload and description of a proposal unless
// they are already present. Both are immutable once proposed.
func (d *Database) setProposalBlobs(p governance.Proposal, txn *Txn) error {
	bs := d.Blob()
	blobs := []struct {
		key []byte
		val []byte
	}{
		{types.ProposalPayloadKey(p.ID), p.Payload},
		{types.ProposalDescriptionKey(p.ID), []byte(p.Description)},
	}
	for _, item := range blobs {
		_, err := bs.Get(txn.Blob(), item.key)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrBlobKeyNotFound) {
			return fmt.Errorf("read proposal %d blob: %w", p.ID, err)
		}
		if err := bs.Set(txn.Blob(), item.key, item.val); err != nil {
			return fmt.Errorf("write proposal %d blob: %w", p.ID, err)
		}
	}
	return nil
}

// LoadSnapshot reads the stored deployment. It returns ErrNoDeployment when
// nothing was saved yet. A nil txn runs in a read-only transaction of its
// own.
func (d *Database) LoadSnapshot(txn *Txn) (*Snapshot, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	ms := d.Metadata()
	mTxn := txn.Metadata()
	deployment, err := ms.GetDeployment(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load deployment: %w", err)
	}
	if deployment == nil {
		return nil, ErrNoDeployment
	}
	snap := deploymentFromModel(deployment)

	deposits, err := ms.GetDeposits(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}
	for _, deposit := range deposits {
		snap.Governance.Deposits[common.BytesToAddress(deposit.Account)] = uint64(deposit.Amount)
	}
	proposals, err := ms.GetProposals(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	for _, tmpProposal := range proposals {
		p := proposalFromModel(tmpProposal)
		payload, err := d.Blob().Get(txn.Blob(), types.ProposalPayloadKey(p.ID))
		if err != nil {
			return nil, fmt.Errorf("load proposal %d payload: %w", p.ID, err)
		}
		p.Payload = payload
		description, err := d.Blob().Get(txn.Blob(), types.ProposalDescriptionKey(p.ID))
		if err != nil && !errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("load proposal %d description: %w", p.ID, err)
		}
		p.Description = string(description)
		snap.Governance.Proposals = append(snap.Governance.Proposals, p)
	}
	votes, err := ms.GetVotes(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, tmpVote := range votes {
		voters, ok := snap.Governance.Votes[tmpVote.ProposalID]
		if !ok {
			voters = make(map[governance.Account]governance.Vote)
			snap.Governance.Votes[tmpVote.ProposalID] = voters
		}
		voters[common.BytesToAddress(tmpVote.Voter)] = governance.Vote{
			Decision: governance.Decision(tmpVote.Decision),
			Weight:   uint64(tmpVote.Weight),
			CastAt:   time.Unix(0, tmpVote.CastAt),
		}
	}
	balances, err := ms.GetTokenBalances(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load token balances: %w", err)
	}
	for _, balance := range balances {
		snap.Token.Balances[common.BytesToAddress(balance.Account)] = uint64(balance.Balance)
	}
	allowances, err := ms.GetTokenAllowances(mTxn)
	if err != nil {
		return nil, fmt.Errorf("load token allowances: %w", err)
	}
	for _, allowance := range allowances {
		holder := common.BytesToAddress(allowance.Holder)
		spenders, ok := snap.Token.Allowances[holder]
		if !ok {
			spenders = make(map[common.Address]uint64)
			snap.Token.Allowances[holder] = spenders
		}
		spenders[common.BytesToAddress(allowance.Spender)] = uint64(allowance.Amount)
	}
	return snap, nil
}

func deploymentToModel(snap *Snapshot) *models.Deployment {
	return &models.Deployment{
		ID:                models.DeploymentRowId,
		Governor:          snap.Config.Governor.Bytes(),
		VoteToken:         snap.Config.VoteToken.Bytes(),
		GovernanceAccount: snap.Config.GovernanceAccount.Bytes(),
		MinimumQuorum:     types.Uint64(snap.Config.MinimumQuorum),
		VotingPeriod:      int64(snap.Config.VotingPeriod),
		TokenName:         snap.Token.Name,
		TokenSymbol:       snap.Token.Symbol,
		TokenOwner:        snap.Token.Owner.Bytes(),
		TokenTotalSupply:  types.Uint64(snap.Token.TotalSupply),
		GovernedValue:     types.Uint64(snap.Token.GovernedValue),
		ClockOffset:       int64(snap.ClockOffset),
		CreatedAt:         snap.CreatedAt.UnixNano(),
	}
}

func deploymentFromModel(deployment *models.Deployment) *Snapshot {
	return &Snapshot{
		Config: governance.Config{
			Governor:          common.BytesToAddress(deployment.Governor),
			VoteToken:         common.BytesToAddress(deployment.VoteToken),
			GovernanceAccount: common.BytesToAddress(deployment.GovernanceAccount),
			MinimumQuorum:     uint64(deployment.MinimumQuorum),
			VotingPeriod:      time.Duration(deployment.VotingPeriod),
		},
		ClockOffset: time.Duration(deployment.ClockOffset),
		CreatedAt:   time.Unix(0, deployment.CreatedAt),
		Governance: governance.State{
			Deposits: make(map[governance.Account]uint64),
			Votes:    make(map[uint64]map[governance.Account]governance.Vote),
		},
		Token: asset.TokenState{
			Name:          deployment.TokenName,
			Symbol:        deployment.TokenSymbol,
			Owner:         common.BytesToAddress(deployment.TokenOwner),
			TotalSupply:   uint64(deployment.TokenTotalSupply),
			GovernedValue: uint64(deployment.GovernedValue),
			Balances:      make(map[common.Address]uint64),
			Allowances:    make(map[common.Address]map[common.Address]uint64),
		},
	}
}

func proposalToModel(p governance.Proposal) models.Proposal {
	return models.Proposal{
		ProposalID:   p.ID,
		Proposer:     p.Proposer.Bytes(),
		Recipient:    p.Recipient.Bytes(),
		CreatedAt:    p.CreatedAt.UnixNano(),
		Deadline:     p.Deadline.UnixNano(),
		VotesYes:     types.Uint64(p.VotesYes),
		VotesNo:      types.Uint64(p.VotesNo),
		VotesAbstain: types.Uint64(p.VotesAbstain),
		Finished:     p.Finished,
		Outcome:      uint8(p.Outcome),
	}
}

func proposalFromModel(p models.Proposal) governance.Proposal {
	return governance.Proposal{
		ID:           p.ProposalID,
		Proposer:     common.BytesToAddress(p.Proposer),
		Recipient:    common.BytesToAddress(p.Recipient),
		CreatedAt:    time.Unix(0, p.CreatedAt),
		Deadline:     time.Unix(0, p.Deadline),
		VotesYes:     uint64(p.VotesYes),
		VotesNo:      uint64(p.VotesNo),
		VotesAbstain: uint64(p.VotesAbstain),
		Finished:     p.Finished,
		Outcome:      governance.Outcome(p.Outcome),
	}
}
