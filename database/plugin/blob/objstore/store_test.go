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

package objstore_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/blinklabs-io/tally/database/plugin/blob/objstore"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	failPut string
}

func newMemBucket() *memBucket {
	return &memBucket{objects: make(map[string][]byte)}
}

func (b *memBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, objstore.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *memBucket) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if key == b.failPut {
		return errors.New("upload failed")
	}
	b.puts++
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return objstore.ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

func (b *memBucket) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func newTestStore(t *testing.T) (*objstore.Store, *memBucket) {
	t.Helper()
	bucket := newMemBucket()
	store, err := objstore.New("memory", bucket)
	require.NoError(t, err)
	return store, bucket
}

func TestWritesAreStagedUntilCommit(t *testing.T) {
	store, bucket := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("p:0:payload"), []byte{0x01}))
	// Reads inside the transaction see the staged value
	val, err := store.Get(txn, []byte("p:0:payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, val)
	assert.Equal(t, 0, bucket.puts)

	require.NoError(t, txn.Commit())
	assert.Equal(t, 1, bucket.puts)
	// Commit is idempotent
	require.NoError(t, txn.Commit())
	_, err = store.Get(txn, []byte("p:0:payload"))
	require.ErrorIs(t, err, types.ErrTxnFinished)

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	val, err = store.Get(readTxn, []byte("p:0:payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, val)
	require.Error(t, store.Set(readTxn, []byte("x"), nil))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store, bucket := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("value")))
	require.NoError(t, txn.Rollback())
	require.NoError(t, txn.Commit())
	assert.Empty(t, bucket.objects)
}

func TestDelete(t *testing.T) {
	store, bucket := newTestStore(t)
	bucket.objects["a"] = []byte("1")
	txn := store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("a")))
	// Deleting a missing key is not an error
	require.NoError(t, store.Delete(txn, []byte("missing")))
	_, err := store.Get(txn, []byte("a"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Commit())
	assert.NotContains(t, bucket.objects, "a")
}

func TestIteratorMergesStagedWrites(t *testing.T) {
	store, bucket := newTestStore(t)
	bucket.objects["p:0:payload"] = []byte("a")
	bucket.objects["p:1:payload"] = []byte("b")
	bucket.objects["other"] = []byte("c")
	txn := store.NewTransaction(true)
	defer txn.Rollback() //nolint:errcheck
	require.NoError(t, store.Set(txn, []byte("p:2:payload"), []byte("d")))
	require.NoError(t, store.Delete(txn, []byte("p:0:payload")))

	iter := store.NewIterator(txn, types.BlobIteratorOptions{Prefix: []byte("p:")})
	var keys, values []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
		val, err := iter.Item().ValueCopy(nil)
		require.NoError(t, err)
		values = append(values, string(val))
	}
	require.NoError(t, iter.Err())
	iter.Close()
	assert.Equal(t, []string{"p:1:payload", "p:2:payload"}, keys)
	assert.Equal(t, []string{"b", "d"}, values)

	iter = store.NewIterator(txn, types.BlobIteratorOptions{Reverse: true})
	iter.Seek([]byte("p:1:z"))
	require.True(t, iter.ValidForPrefix([]byte("p:1")))
	iter.Next()
	assert.False(t, iter.ValidForPrefix([]byte("p:1")))
	iter.Close()
}

func TestIteratorInvalidTxn(t *testing.T) {
	store, _ := newTestStore(t)
	iter := store.NewIterator(nil, types.BlobIteratorOptions{})
	assert.False(t, iter.Valid())
	require.ErrorIs(t, iter.Err(), types.ErrNilTxn)
}

func TestCommitFailure(t *testing.T) {
	store, bucket := newTestStore(t)
	bucket.failPut = "b"
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	require.NoError(t, store.Set(txn, []byte("b"), []byte("2")))
	err := txn.Commit()
	require.ErrorContains(t, err, "upload failed")
	// Earlier keys stay written
	assert.Contains(t, bucket.objects, "a")
}

func TestCommitTimestamp(t *testing.T) {
	store, _ := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)
	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestWrongStoreTxn(t *testing.T) {
	store, _ := newTestStore(t)
	other, _ := newTestStore(t)
	_, err := store.Get(other.NewTransaction(false), []byte("a"))
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store, err := objstore.New("memory", newMemBucket(), objstore.WithPromRegistry(registry))
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1234")))
	require.NoError(t, txn.Commit())
	require.NoError(t, testutil.GatherAndCompare(
		registry,
		strings.NewReader(`
# HELP tally_database_blob_object_bytes_total Total bytes read from and written to object storage
# TYPE tally_database_blob_object_bytes_total counter
tally_database_blob_object_bytes_total{backend="memory",op="put"} 4
`),
		"tally_database_blob_object_bytes_total",
	))
	_, err = objstore.New("memory", nil)
	require.Error(t, err)
}
