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

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/tally/database/plugin/blob/objstore"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const startupTimeout = 30 * time.Second

// BlobStoreGCS stores proposal payloads as objects in a Google Cloud Storage
// bucket
type BlobStoreGCS struct {
	*objstore.Store
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	client          *storage.Client
	bucketName      string
	prefix          string
	credentialsFile string
	endpoint        string
}

func New(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	d := &BlobStoreGCS{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.prefix != "" && !strings.HasSuffix(d.prefix, "/") {
		d.prefix += "/"
	}
	return d, nil
}

// ValidateCredentials checks that a configured credentials file exists. An
// empty path selects the default credentials and is always valid.
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	info, err := os.Stat(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("GCS credentials file does not exist: %s", credentialsFile)
		}
		return fmt.Errorf("GCS credentials file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("GCS credentials file is a directory: %s", credentialsFile)
	}
	return nil
}

func (d *BlobStoreGCS) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if d.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.credentialsFile))
	}
	if d.endpoint != "" {
		// Emulators such as fake-gcs-server take no credentials
		opts = append(opts, option.WithEndpoint(d.endpoint), option.WithoutAuthentication())
	}
	return opts
}

// Start creates the storage client
func (d *BlobStoreGCS) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	client, err := storage.NewClient(ctx, d.clientOptions()...)
	if err != nil {
		return fmt.Errorf("gcs blob: failed in creating storage client: %w", err)
	}
	store, err := objstore.New(
		"gcs",
		&gcsBucket{bucket: client.Bucket(d.bucketName), prefix: d.prefix},
		objstore.WithLogger(d.logger),
		objstore.WithPromRegistry(d.promRegistry),
	)
	if err != nil {
		_ = client.Close()
		return err
	}
	d.client = client
	d.Store = store
	d.logger.Debug(
		"opened gcs blob store",
		"component", "database",
		"bucket", d.bucketName,
		"prefix", d.prefix,
	)
	return nil
}

func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

// Close closes the storage client
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *BlobStoreGCS) BucketName() string {
	return d.bucketName
}

type gcsBucket struct {
	bucket *storage.BucketHandle
	prefix string
}

func (b *gcsBucket) object(key string) *storage.ObjectHandle {
	return b.bucket.Object(b.prefix + key)
}

func (b *gcsBucket) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, objstore.ErrObjectNotFound
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBucket) Put(ctx context.Context, key string, data []byte) error {
	w := b.object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBucket) Delete(ctx context.Context, key string) error {
	err := b.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return objstore.ErrObjectNotFound
	}
	return err
}

func (b *gcsBucket) List(ctx context.Context, prefix string) ([]string, error) {
	query := &storage.Query{Prefix: b.prefix + prefix}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}
	it := b.bucket.Objects(ctx, query)
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, b.prefix))
	}
}
