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

package aws_test

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/blinklabs-io/tally/database/plugin"
	"github.com/blinklabs-io/tally/database/plugin/blob"
	s3blob "github.com/blinklabs-io/tally/database/plugin/blob/aws"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ blob.BlobStore = (*s3blob.BlobStoreS3)(nil)

const listPageSize = 2

// fakeS3 keeps objects in memory and pages listings like S3 does
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(
	_ context.Context,
	in *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(slices.Clone(data))),
	}, nil
}

func (f *fakeS3) PutObject(
	_ context.Context,
	in *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(
	_ context.Context,
	in *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(
	_ context.Context,
	in *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+listPageSize, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, key := range keys[start:end] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func newTestStore(t *testing.T, client *fakeS3) *s3blob.BlobStoreS3 {
	t.Helper()
	store, err := s3blob.New(
		s3blob.WithBucket("governance"),
		s3blob.WithPrefix("tally"),
		s3blob.WithClient(client),
	)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := newFakeS3()
	store := newTestStore(t, client)
	txn := store.NewTransaction(true)
	for id := range uint64(3) {
		require.NoError(t, store.Set(txn, types.ProposalPayloadKey(id), []byte{byte(id)}))
	}
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, txn.Commit())
	assert.Contains(t, client.objects, "tally/p:1:payload")

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	val, err := store.Get(readTxn, types.ProposalPayloadKey(2))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, val)
	_, err = store.Get(readTxn, types.ProposalPayloadKey(9))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	// Three keys take two listing pages
	iter := store.NewIterator(readTxn, types.BlobIteratorOptions{
		Prefix: []byte(types.ProposalBlobKeyPrefix),
	})
	var ids []uint64
	for iter.Rewind(); iter.Valid(); iter.Next() {
		id, suffix, err := types.ParseProposalBlobKey(iter.Item().Key())
		require.NoError(t, err)
		assert.Equal(t, types.ProposalPayloadSuffix, suffix)
		ids = append(ids, id)
	}
	require.NoError(t, iter.Err())
	iter.Close()
	assert.Equal(t, []uint64{0, 1, 2}, ids)
	assert.Equal(t, 2, client.lists)

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}

func TestS3StoreDelete(t *testing.T) {
	client := newFakeS3()
	store := newTestStore(t, client)
	client.objects["tally/p:0:payload"] = []byte{0x01}
	txn := store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, types.ProposalPayloadKey(0)))
	require.NoError(t, txn.Commit())
	assert.Empty(t, client.objects)
}

func TestS3StartRequiresBucket(t *testing.T) {
	store, err := s3blob.New(s3blob.WithClient(newFakeS3()))
	require.NoError(t, err)
	require.ErrorContains(t, store.Start(), "bucket not set")
}

func TestParseLocation(t *testing.T) {
	testDefs := []struct {
		location string
		bucket   string
		prefix   string
		valid    bool
	}{
		{"s3://governance", "governance", "", true},
		{"s3://governance/tally/prod", "governance", "tally/prod", true},
		{"s3://", "", "", false},
		{"gcs://governance", "", "", false},
	}
	for _, testDef := range testDefs {
		bucket, prefix, err := s3blob.ParseLocation(testDef.location)
		if !testDef.valid {
			require.Error(t, err, testDef.location)
			continue
		}
		require.NoError(t, err, testDef.location)
		assert.Equal(t, testDef.bucket, bucket)
		assert.Equal(t, testDef.prefix, prefix)
	}
}

func TestNewFromCmdlineOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "location", "s3://governance/tally"))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "location", "")
	})
	p := s3blob.NewFromCmdlineOptions()
	store, ok := p.(*s3blob.BlobStoreS3)
	require.True(t, ok)
	assert.Equal(t, "governance", store.Bucket())

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "location", "governance"))
	p = s3blob.NewFromCmdlineOptions()
	require.Error(t, p.Start())
}
