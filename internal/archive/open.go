package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/historyguide/apiserver/config"
)

// Open builds an Archive for the configured backend and ensures its bucket.
// An empty backend yields an Archive that discards transcripts.
func Open(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*Archive, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case "":
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("init gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}

	a := New(backend, logger)
	if cfg.Timeout > 0 {
		a.timeout = cfg.Timeout
	}
	if err := a.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure archive bucket: %w", err)
	}
	return a, nil
}
