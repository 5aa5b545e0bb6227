package archive

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/historyguide/apiserver/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// GCSClient archives transcripts to a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSClient{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

// EnsureBucket creates the bucket when missing. Creation needs a project ID.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	bucket := g.client.Bucket(g.bucket)
	_, err := bucket.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("check bucket %s: %w", g.bucket, err)
	case strings.TrimSpace(g.projectID) == "":
		return errors.New("gcs project id is required to create bucket")
	}
	return bucket.Create(ctx, g.projectID, nil)
}

// Put writes obj with a does-not-exist precondition.
func (g *GCSClient) Put(ctx context.Context, obj Object) error {
	w := g.client.Bucket(g.bucket).Object(obj.Key).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	applyObjectAttrs(w, obj)

	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return ErrExists
		}
		return err
	}
	return nil
}

func (g *GCSClient) Bucket() string {
	return g.bucket
}

// Close closes the underlying SDK client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}

// applyObjectAttrs sets content type, metadata and a CRC32C checksum. The
// payload is small, so it goes up in a single request.
func applyObjectAttrs(w *storage.Writer, obj Object) {
	w.ContentType = obj.ContentType
	w.Metadata = obj.Metadata
	w.CRC32C = crc32.Checksum(obj.Data, castagnoli)
	w.SendCRC32C = true
	w.ChunkSize = 0
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
