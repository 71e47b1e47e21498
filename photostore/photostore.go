// Package photostore keeps downloaded recipe images in a gocloud blob
// bucket. Photos are addressed by the sha256 of their bytes.
package photostore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

var ErrNotFound = errors.New("photo not found")

// Store is what fetch_images writes into.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, id string) ([]byte, string, error)
}

// BlobStore implements Store on any bucket URL gocloud understands, e.g.
// "file:///var/lib/ramekin/photos?create_dir=true" or "mem://".
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
}

var _ Store = (*BlobStore)(nil)

func NewBlobStore(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open photo bucket %s", bucketURL)
	}
	return &BlobStore{bucket: bucket, prefix: prefix}, nil
}

// ID is the content address of data.
func ID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data and returns its id. Storing identical bytes again is a
// no-op.
func (s *BlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty photo")
	}
	id := ID(data)
	key := s.keyFor(id)
	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return "", errors.Wrapf(err, "failed to check photo %s", id)
	}
	if exists {
		return id, nil
	}
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", errors.Wrapf(err, "failed to write photo %s", id)
	}
	return id, nil
}

func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, string, error) {
	key := s.keyFor(id)
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, attrs.ContentType, nil
}

func (s *BlobStore) Delete(ctx context.Context, id string) error {
	err := s.bucket.Delete(ctx, s.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// IDs lists stored photo ids.
func (s *BlobStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: s.prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		ids = append(ids, obj.Key[len(s.prefix):])
	}
	return ids, nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) keyFor(id string) string {
	return s.prefix + id
}
