package feed

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

// Image payloads are bounded before upload so a single submission's latency
// is bounded by its slowest upload, not by payload size. Values match the
// product's original 800px / 0.7 JPEG settings.
const (
	maxImageDimension = 800
	jpegQuality       = 70
)

// UploadResult reports what happened to a batch of image uploads. URLs holds
// only the uploads that succeeded; callers can compare Requested against
// len(URLs) to surface partial failure if they choose to.
type UploadResult struct {
	URLs      []string `json:"urls"`
	Requested int      `json:"requested"`
	Failed    int      `json:"failed"`
}

// UploadCoordinator fans out one concurrent encode-and-upload task per image
// and fans the resulting URLs back in. A failed individual upload is dropped
// from the result rather than failing the batch.
type UploadCoordinator struct {
	blobs stores.BlobStore
	log   *logrus.Entry
}

// NewUploadCoordinator creates a new UploadCoordinator
func NewUploadCoordinator(blobs stores.BlobStore) *UploadCoordinator {
	return &UploadCoordinator{
		blobs: blobs,
		log:   logrus.WithField("package", "feed"),
	}
}

// UploadAll uploads all images concurrently and waits for every task to
// finish, success or failure, before returning. Surviving URLs keep the
// input order.
func (u *UploadCoordinator) UploadAll(ctx context.Context, images [][]byte) UploadResult {
	urls := make([]string, len(images))
	failed := make([]bool, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img []byte) {
			defer wg.Done()
			url, err := u.uploadOne(ctx, img)
			if err != nil {
				u.log.WithError(err).WithField("index", i).Warn("dropping failed image upload")
				failed[i] = true
				return
			}
			urls[i] = url
		}(i, img)
	}
	wg.Wait()

	result := UploadResult{Requested: len(images)}
	for i := range images {
		if failed[i] {
			result.Failed++
			continue
		}
		result.URLs = append(result.URLs, urls[i])
	}
	return result
}

func (u *UploadCoordinator) uploadOne(ctx context.Context, data []byte) (string, error) {
	encoded, err := encodeBounded(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	url, err := u.blobs.Put(ctx, encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	return url, nil
}

// encodeBounded decodes the image, shrinks it so neither side exceeds the
// maximum dimension, and re-encodes it as JPEG.
func encodeBounded(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxImageDimension || bounds.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
