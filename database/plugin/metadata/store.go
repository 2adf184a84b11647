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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/plugin"
	"github.com/blinklabs-io/tally/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Governance state
	GetDeployment(types.Txn) (*models.Deployment, error)
	SetDeployment(*models.Deployment, types.Txn) error
	GetDeposits(types.Txn) ([]models.Deposit, error)
	SetDeposits([]models.Deposit, types.Txn) error
	GetProposals(types.Txn) ([]models.Proposal, error)
	SetProposals([]models.Proposal, types.Txn) error
	GetVotes(types.Txn) ([]models.Vote, error)
	SetVotes([]models.Vote, types.Txn) error

	// Token state
	GetTokenBalances(types.Txn) ([]models.TokenBalance, error)
	SetTokenBalances([]models.TokenBalance, types.Txn) error
	GetTokenAllowances(types.Txn) ([]models.TokenAllowance, error)
	SetTokenAllowances([]models.TokenAllowance, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
