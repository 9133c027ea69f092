package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/pkg/models"
)

// Publisher writes the run's publishing metadata alongside the artifact and
// optionally pushes the artifact to an S3-compatible object store.
type Publisher struct {
	cfg    config.PublishConfig
	client *minio.Client
	logger *logging.Logger
}

// New creates a publisher. The object-store client is only dialed when
// publishing is enabled.
func New(cfg config.PublishConfig, logger *logging.Logger) (*Publisher, error) {
	p := &Publisher{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return p, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object-store client: %w", err)
	}
	p.client = client
	return p, nil
}

// WriteMetadata persists the publishing metadata from the spec next to the
// final artifact. Specs without a publishing block write nothing.
func (p *Publisher) WriteMetadata(spec *models.VideoSpec, runDir string) error {
	if spec.Publishing == nil {
		return nil
	}

	data, err := json.MarshalIndent(spec.Publishing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(runDir, "metadata.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Upload pushes the final artifact to the configured bucket under the video
// name. A disabled publisher is a no-op.
func (p *Publisher) Upload(ctx context.Context, spec *models.VideoSpec, artifactPath string) error {
	if !p.cfg.Enabled || p.client == nil {
		return nil
	}

	exists, err := p.client.BucketExists(ctx, p.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.cfg.BucketName, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	objectName := sanitizeObjectName(spec.VideoName) + ".mp4"
	_, err = p.client.FPutObject(ctx, p.cfg.BucketName, objectName, artifactPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	p.logger.Infof("artifact uploaded to %s/%s", p.cfg.BucketName, objectName)
	return nil
}

// sanitizeObjectName maps a video name to a safe object key
func sanitizeObjectName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	return strings.Trim(mapped, "_")
}
