package imagegen

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore hosts generated image bytes and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// GCSStore stores images in a Google Cloud Storage bucket.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewGCSStore creates a store writing to bucket. Objects are named
// prefix/name; publicBaseURL defaults to the storage.googleapis.com URL.
func NewGCSStore(client *storage.Client, bucket, prefix, publicBaseURL string) *GCSStore {
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Put uploads data and returns the public URL of the object.
func (s *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := path.Join(s.prefix, name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write image to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.publicBaseURL + "/" + key, nil
}

// objectName builds a unique object name for a paper illustration.
func objectName(source, paperID string, at time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, paperID)
	return fmt.Sprintf("%s/%s-%d.png", source, safe, at.UnixMilli())
}
