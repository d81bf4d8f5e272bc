package stores

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// BlobStore defines the interface for opaque binary object storage.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
	Get(ctx context.Context, url string) ([]byte, error)
}

// BucketBlobStore implements BlobStore on a Cloud Storage bucket. Objects
// are addressed by the public URL returned from Put.
type BucketBlobStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewBucketBlobStore creates a new BucketBlobStore
func NewBucketBlobStore(bucket *storage.BucketHandle, bucketName string) *BucketBlobStore {
	return &BucketBlobStore{bucket: bucket, bucketName: bucketName}
}

// Put uploads the bytes under a fresh object name and returns its URL.
func (s *BucketBlobStore) Put(ctx context.Context, data []byte) (string, error) {
	object := "drops/" + uuid.NewString() + ".jpg"

	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, object), nil
}

// Delete removes the object behind a URL previously returned from Put.
// Deleting an already-removed object is a no-op.
func (s *BucketBlobStore) Delete(ctx context.Context, url string) error {
	object := s.objectFromURL(url)
	if object == "" {
		return fmt.Errorf("url %q does not belong to bucket %s", url, s.bucketName)
	}
	if err := s.bucket.Object(object).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Get downloads the object behind a URL previously returned from Put.
func (s *BucketBlobStore) Get(ctx context.Context, url string) ([]byte, error) {
	object := s.objectFromURL(url)
	if object == "" {
		return nil, fmt.Errorf("url %q does not belong to bucket %s", url, s.bucketName)
	}
	r, err := s.bucket.Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *BucketBlobStore) objectFromURL(url string) string {
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucketName)
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
