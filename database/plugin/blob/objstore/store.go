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

// Package objstore adapts object storage buckets to the blob store
// interface. Writes are staged in the transaction and uploaded on Commit.
// A commit that fails part way leaves the objects written so far in place,
// which the commit timestamp check detects on the next start.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/blinklabs-io/tally/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultTimeout = 60 * time.Second

	commitTimestampKey = "metadata_commit_timestamp"
)

// ErrObjectNotFound is returned by a Bucket for missing keys
var ErrObjectNotFound = errors.New("object not found")

var errReadOnlyTxn = errors.New("transaction is read-only")

// Bucket is the minimal object storage API needed by Store. Keys are
// relative to any prefix the implementation applies.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in any order
	List(ctx context.Context, prefix string) ([]string, error)
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry registers the operation counters, labelled with the
// backend name
func WithPromRegistry(registry prometheus.Registerer) Option {
	return func(s *Store) {
		s.promRegistry = registry
	}
}

// WithTimeout bounds each bucket request
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// Store implements the transactional part of a blob store on top of a Bucket
type Store struct {
	bucket       Bucket
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *storeMetrics
	backend      string
	timeout      time.Duration
}

// New returns a Store for bucket. backend names the storage service in logs
// and metrics.
func New(backend string, bucket Bucket, opts ...Option) (*Store, error) {
	if bucket == nil {
		return nil, errors.New("objstore: nil bucket")
	}
	s := &Store{
		bucket:  bucket,
		backend: backend,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.promRegistry != nil {
		if err := s.registerMetrics(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

type stagedWrite struct {
	value   []byte
	deleted bool
}

type objTxn struct {
	store     *Store
	staged    map[string]stagedWrite
	readWrite bool
	finished  bool
}

func (s *Store) NewTransaction(readWrite bool) types.Txn {
	return &objTxn{
		store:     s,
		staged:    make(map[string]stagedWrite),
		readWrite: readWrite,
	}
}

func (s *Store) validateTxn(txn types.Txn) (*objTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*objTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if t.store != s {
		return nil, fmt.Errorf("%w: transaction from different store", types.ErrTxnWrongType)
	}
	if t.finished {
		return nil, types.ErrTxnFinished
	}
	return t, nil
}

// Commit uploads the staged writes in key order, then the staged deletes
func (t *objTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if len(t.staged) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.staged))
	for key := range t.staged {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	s := t.store
	for _, deletes := range []bool{false, true} {
		for _, key := range keys {
			w := t.staged[key]
			if w.deleted != deletes {
				continue
			}
			if err := s.apply(key, w); err != nil {
				s.logger.Error(
					"blob commit failed",
					"component", "database",
					"backend", s.backend,
					"key", key,
					"error", err,
				)
				return fmt.Errorf("commit %q: %w", key, err)
			}
		}
	}
	return nil
}

func (s *Store) apply(key string, w stagedWrite) error {
	ctx, cancel := s.opContext()
	defer cancel()
	if w.deleted {
		err := s.bucket.Delete(ctx, key)
		if errors.Is(err, ErrObjectNotFound) {
			err = nil
		}
		s.recordOp("delete", err == nil, 0)
		return err
	}
	err := s.bucket.Put(ctx, key, w.value)
	s.recordOp("put", err == nil, len(w.value))
	return err
}

func (t *objTxn) Rollback() error {
	t.finished = true
	t.staged = nil
	return nil
}

func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	t, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	return s.get(t, string(key))
}

func (s *Store) get(t *objTxn, key string) ([]byte, error) {
	if w, ok := t.staged[key]; ok {
		if w.deleted {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(w.value), nil
	}
	ctx, cancel := s.opContext()
	defer cancel()
	data, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.recordOp("get", true, 0)
			return nil, types.ErrBlobKeyNotFound
		}
		s.recordOp("get", false, 0)
		return nil, err
	}
	s.recordOp("get", true, len(data))
	return data, nil
}

func (s *Store) Set(txn types.Txn, key, val []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return errReadOnlyTxn
	}
	t.staged[string(key)] = stagedWrite{value: slices.Clone(val)}
	return nil
}

func (s *Store) Delete(txn types.Txn, key []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return errReadOnlyTxn
	}
	t.staged[string(key)] = stagedWrite{deleted: true}
	return nil
}

// NewIterator lists the matching keys once, merged with the writes staged in
// txn. Values are fetched when read.
func (s *Store) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	t, err := s.validateTxn(txn)
	if err != nil {
		return &objIterator{err: err}
	}
	ctx, cancel := s.opContext()
	defer cancel()
	prefix := string(opts.Prefix)
	listed, err := s.bucket.List(ctx, prefix)
	s.recordOp("list", err == nil, 0)
	if err != nil {
		return &objIterator{err: err}
	}
	present := make(map[string]struct{}, len(listed))
	for _, key := range listed {
		present[key] = struct{}{}
	}
	for key, w := range t.staged {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if w.deleted {
			delete(present, key)
		} else {
			present[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(present))
	for key := range present {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	if opts.Reverse {
		slices.Reverse(keys)
	}
	return &objIterator{txn: t, keys: keys, reverse: opts.Reverse}
}

// GetCommitTimestamp returns the last commit timestamp, or 0 for a new store
func (s *Store) GetCommitTimestamp() (int64, error) {
	txn := s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := s.Get(txn, []byte(commitTimestampKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(val).Int64(), nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return s.Set(txn, []byte(commitTimestampKey), new(big.Int).SetInt64(timestamp).Bytes())
}
