// Package gcs stores progress photos in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"fitflow/internal/domain"
)

// PublicBase is the default public URL prefix of bucket objects.
const PublicBase = "https://storage.googleapis.com"

// Store implements domain.ObjectStore on one bucket.
type Store struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

var _ domain.ObjectStore = (*Store)(nil)

// New creates a Store. An empty credentialsFile uses application default
// credentials.
func New(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, publicBase: PublicBase}, nil
}

// WithPublicBase overrides the URL prefix, e.g. for a CDN in front of the bucket.
func (s *Store) WithPublicBase(base string) *Store {
	s.publicBase = strings.TrimSuffix(base, "/")
	return s
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Put uploads r to path.
func (s *Store) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", s.bucket, path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload gs://%s/%s: %w", s.bucket, path, err)
	}
	return nil
}

// Delete removes the object at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gs://%s/%s: %w", s.bucket, path, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete gs://%s/%s: %w", s.bucket, path, err)
	}
	return nil
}

// URL returns the public URL of path.
func (s *Store) URL(path string) string {
	return s.publicBase + "/" + s.bucket + "/" + path
}
