package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage implements BlobStorage on a Google Cloud Storage bucket.
type GCSStorage struct {
	client *gcs.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket, credentialsFile string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	log.Printf("[Storage] Using bucket %s", bucket)
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Save(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(objectPath)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", objectPath, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath), nil
}

func (s *GCSStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(objectPath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GCSStorage) Download(ctx context.Context, objectPath string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", objectPath, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (s *GCSStorage) Delete(ctx context.Context, objectPath string) error {
	return s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
}
