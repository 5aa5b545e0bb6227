package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/historyguide/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient archives transcripts to a MinIO or other S3-compatible bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the transcript bucket when it is missing.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Put writes obj unless its key is already taken.
func (m *MinioClient) Put(ctx context.Context, obj Object) error {
	_, err := m.client.StatObject(ctx, m.bucket, obj.Key, minio.StatObjectOptions{})
	if err == nil {
		return ErrExists
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("stat %s: %w", obj.Key, err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, obj.Key, bytes.NewReader(obj.Data), int64(len(obj.Data)), minioPutOptions(obj))
	return err
}

func (m *MinioClient) Bucket() string {
	return m.bucket
}

func minioPutOptions(obj Object) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	}
}
