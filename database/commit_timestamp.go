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
	"bytes"
	"fmt"

	"github.com/blinklabs-io/tally/database/types"
)

// CommitTimestampError reports stores that were last committed at different
// times, which happens after a partial commit
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	metadataTimestamp, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf(
			"failed to get metadata timestamp from plugin: %w",
			err,
		)
	}
	// No timestamp in the database
	if metadataTimestamp <= 0 {
		return nil
	}
	blobTimestamp, err := d.Blob().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf(
			"failed to get blob timestamp from plugin: %w",
			err,
		)
	}
	if blobTimestamp != metadataTimestamp {
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
	return nil
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return err
	}
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return err
	}
	return nil
}

// RecoverCommitTimestamp repairs the stores after a partial commit, where
// the blob side was committed and the metadata side was not. The metadata
// store is authoritative: payload blobs of proposals it does not know are
// removed and the blob commit timestamp is reset to match.
func (d *Database) RecoverCommitTimestamp() error {
	metadataTimestamp, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("failed to get metadata timestamp: %w", err)
	}
	proposals, err := d.Metadata().GetProposals(nil)
	if err != nil {
		return fmt.Errorf("failed to load proposals: %w", err)
	}
	proposalCount := uint64(len(proposals))
	blobTxn := d.Blob().NewTransaction(true)
	defer blobTxn.Rollback() //nolint:errcheck
	var orphans [][]byte
	iter := d.Blob().NewIterator(
		blobTxn,
		types.BlobIteratorOptions{Prefix: []byte(types.ProposalBlobKeyPrefix)},
	)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := bytes.Clone(iter.Item().Key())
		id, _, err := types.ParseProposalBlobKey(key)
		if err != nil {
			continue
		}
		if id >= proposalCount {
			orphans = append(orphans, key)
		}
	}
	iterErr := iter.Err()
	iter.Close()
	if iterErr != nil {
		return fmt.Errorf("failed to scan proposal blobs: %w", iterErr)
	}
	for _, key := range orphans {
		if err := d.Blob().Delete(blobTxn, key); err != nil {
			return fmt.Errorf("failed to delete orphaned blob: %w", err)
		}
	}
	if err := d.Blob().SetCommitTimestamp(metadataTimestamp, blobTxn); err != nil {
		return err
	}
	if err := blobTxn.Commit(); err != nil {
		return err
	}
	d.logger.Warn(
		"recovered from partial commit",
		"component", "database",
		"orphaned_blobs", len(orphans),
		"commit_timestamp", metadataTimestamp,
	)
	return nil
}
