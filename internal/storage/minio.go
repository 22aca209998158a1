package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage publishes artifacts to an S3 compatible bucket through MinIO.
type MinioStorage struct {
	client        *minio.Client
	bucket        string
	objectPrefix  string
	publicBaseURL string
}

type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

// NewMinioStorage connects to the endpoint and creates the bucket when it is missing.
func NewMinioStorage(ctx context.Context, opts MinioOptions) (*MinioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
		slog.Info("Created MinIO bucket", "bucket", opts.Bucket)
	}

	return &MinioStorage{
		client:        client,
		bucket:        opts.Bucket,
		objectPrefix:  opts.Prefix,
		publicBaseURL: opts.PublicBaseURL,
	}, nil
}

func (s *MinioStorage) Publish(ctx context.Context, localPath, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	key := objectKey(s.objectPrefix, name)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to MinIO: %w", name, err)
	}

	slog.Info("Uploaded artifact to MinIO", "bucket", s.bucket, "object", key, "size", info.Size)
	os.Remove(localPath)
	return reference(s.publicBaseURL, key, name), nil
}

func (s *MinioStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	key := objectKey(s.objectPrefix, name)

	// GetObject is lazy, stat first so a missing key surfaces here.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from MinIO: %w", name, err)
	}
	return object, nil
}

func (s *MinioStorage) Remove(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(s.objectPrefix, name), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete %s from MinIO: %w", name, err)
	}
	return nil
}

func (s *MinioStorage) Close() error {
	return nil
}
