// Package assets stores the binary objects image blocks point at.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"folio/api/internal/store"
	"folio/api/internal/util"
)

// ObjectKeyField is the block data field holding an image's object key.
const ObjectKeyField = "objectKey"

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type Store struct {
	client objectAPI
	bucket string
}

// NewMinIO connects to an S3-compatible endpoint and makes sure the bucket exists.
func NewMinIO(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := &Store{client: client, bucket: bucket}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads an object for a page and returns its key.
func (s *Store) Put(ctx context.Context, workspaceID, pageID, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(workspaceID, pageID, name)
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// URL returns a time-limited download link for key.
func (s *Store) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// RemoveBlockAssets deletes the objects referenced by image blocks. Every
// object is attempted; failures are joined.
func (s *Store) RemoveBlockAssets(ctx context.Context, blocks []store.Block) error {
	var errs []error
	for _, key := range Keys(blocks) {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("remove object %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Keys returns the object keys referenced by image blocks.
func Keys(blocks []store.Block) []string {
	var keys []string
	for _, b := range blocks {
		if b.Type != store.BlockImage {
			continue
		}
		if key, ok := b.Data[ObjectKeyField].(string); ok && strings.TrimSpace(key) != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// ObjectKey builds a unique key for an upload; the file's base name is kept
// for readability.
func ObjectKey(workspaceID, pageID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return path.Join(workspaceID, pageID, util.NewID("")+"-"+base)
}
