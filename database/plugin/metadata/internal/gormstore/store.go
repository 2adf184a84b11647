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

// Package gormstore holds the metadata store logic shared by the relational
// database plugins. Each plugin opens its own connection and wraps a Store.
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	commitTimestampRowId = 1
	upsertBatchSize      = 500
)

type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

type gormTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func (t *gormTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if result := t.db.Commit(); result.Error != nil {
		return result.Error
	}
	t.finished = true
	return nil
}

func (t *gormTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	if result := t.db.Rollback(); result.Error != nil {
		return result.Error
	}
	t.finished = true
	return nil
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New configures tracing on db and migrates the schema
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		db:     db,
		logger: logger,
	}
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return s, err
	}
	// Create table schemas
	s.logger.Debug(fmt.Sprintf("creating table: %#v", &CommitTimestamp{}))
	if err := s.db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return s, err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := s.db.AutoMigrate(model); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}

// Transaction begins a transaction. A failure to begin is reported by the
// first use of the returned handle.
func (s *Store) Transaction() types.Txn {
	tx := s.db.Begin()
	if tx.Error != nil {
		return &gormTxn{beginErr: tx.Error}
	}
	return &gormTxn{db: tx}
}

// resolveDB returns the handle for txn, or the base handle when txn is nil
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	tmpTxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if tmpTxn.beginErr != nil {
		return nil, tmpTxn.beginErr
	}
	if tmpTxn.finished {
		return nil, types.ErrTxnFinished
	}
	return tmpTxn.db, nil
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmpCommitTimestamp CommitTimestamp
	result := s.db.First(&tmpCommitTimestamp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpCommitTimestamp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpCommitTimestamp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpCommitTimestamp)
	return result.Error
}

// upsert inserts rows, updating the given columns of rows that collide on
// the conflict columns
func upsert[T any](
	db *gorm.DB,
	rows []T,
	conflictColumns []string,
	updateColumns []string,
) error {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		cols = append(cols, clause.Column{Name: name})
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).CreateInBatches(rows, upsertBatchSize)
	return result.Error
}
