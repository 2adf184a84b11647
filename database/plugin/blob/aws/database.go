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

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/tally/database/plugin/blob/objstore"
	"github.com/prometheus/client_golang/prometheus"
)

// Client is the subset of the S3 API used by the blob store
type Client interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// BlobStoreS3 stores proposal payloads as objects in an S3 bucket
type BlobStoreS3 struct {
	*objstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	client       Client
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

// New creates an S3 blob store. The client is created by Start.
func New(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	d := &BlobStoreS3{
		timeout: objstore.DefaultTimeout,
	}
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

// ParseLocation splits an "s3://bucket[/prefix]" location
func ParseLocation(location string) (bucket string, prefix string, err error) {
	path, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("s3 blob: expected 's3://<bucket>[/prefix]', got %q", location)
	}
	bucket, prefix, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", errors.New("s3 blob: bucket not set")
	}
	return bucket, prefix, nil
}

// Start creates the S3 client from the default AWS configuration chain
func (d *BlobStoreS3) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	if d.client == nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("s3 blob: load default AWS config: %w", err)
		}
		if d.region != "" {
			awsCfg.Region = d.region
		}
		d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// Custom endpoints are S3 compatible services such as minio
			if d.endpoint != "" {
				o.BaseEndpoint = aws.String(d.endpoint)
				o.UsePathStyle = true
			}
		})
	}
	store, err := objstore.New(
		"s3",
		&s3Bucket{client: d.client, bucket: d.bucket, prefix: d.prefix},
		objstore.WithLogger(d.logger),
		objstore.WithPromRegistry(d.promRegistry),
		objstore.WithTimeout(d.timeout),
	)
	if err != nil {
		return err
	}
	d.Store = store
	d.logger.Debug(
		"opened s3 blob store",
		"component", "database",
		"bucket", d.bucket,
		"prefix", d.prefix,
	)
	return nil
}

// Stop is a no-op, the S3 client holds no connections that need closing
func (d *BlobStoreS3) Stop() error {
	return nil
}

func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

func (d *BlobStoreS3) Bucket() string {
	return d.bucket
}

type s3Bucket struct {
	client Client
	bucket string
	prefix string
}

func (b *s3Bucket) fullKey(key string) *string {
	return aws.String(b.prefix + key)
}

func (b *s3Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.fullKey(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, objstore.ErrObjectNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Bucket) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           b.fullKey(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return err
}

func (b *s3Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    b.fullKey(key),
	})
	if err != nil && isNotFound(err) {
		return objstore.ErrObjectNotFound
	}
	return err
}

func (b *s3Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: b.fullKey(prefix),
	})
	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), b.prefix))
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
