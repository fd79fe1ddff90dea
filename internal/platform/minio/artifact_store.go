// Package minio implements the artifact store on MinIO/S3-compatible
// object storage.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/config"
)

// ArtifactStore implements artifact.Store using MinIO S3-compatible APIs.
// Artifact references are object keys of the form "sheets/<owner>/<id>".
type ArtifactStore struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
	logger     *slog.Logger
}

// NewArtifactStore creates a MinIO-backed artifact store from the given
// storage configuration and ensures the configured bucket exists, creating
// it when missing. If logger is nil, a default logger will be used.
func NewArtifactStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*ArtifactStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", artifact.ErrInvalidConfig)
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("%w: access key is required", artifact.ErrInvalidConfig)
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key is required", artifact.ErrInvalidConfig)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", artifact.ErrInvalidConfig)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client failed: %v", artifact.ErrInvalidConfig, err)
	}

	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}

	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "artifact_store"))

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket failed: %v", artifact.ErrStorage, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%w: create bucket failed: %v", artifact.ErrStorage, err)
		}
		log.Info("created artifact bucket", slog.String("bucket", cfg.Bucket))
	}

	return &ArtifactStore{
		client:     client,
		bucket:     cfg.Bucket,
		presignTTL: presignTTL,
		logger:     log,
	}, nil
}

// Ensure ArtifactStore implements artifact.Store
var _ artifact.Store = (*ArtifactStore)(nil)

// Put implements artifact.Store.Put
func (s *ArtifactStore) Put(ctx context.Context, ownerID uuid.UUID, data []byte, contentType string) (string, error) {
	if ownerID == uuid.Nil {
		return "", fmt.Errorf("%w: owner ID is required", artifact.ErrInvalidRef)
	}

	ref := fmt.Sprintf("sheets/%s/%s", ownerID, uuid.New())

	opts := minio.PutObjectOptions{}
	if contentType != "" {
		opts.ContentType = contentType
	}

	_, err := s.client.PutObject(ctx, s.bucket, ref, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		s.logger.Error("failed to put artifact",
			slog.String("error", err.Error()),
			slog.String("ref", ref))
		return "", fmt.Errorf("%w: put object failed: %v", artifact.ErrStorage, err)
	}

	s.logger.Debug("artifact stored",
		slog.String("ref", ref),
		slog.Int("size_bytes", len(data)))
	return ref, nil
}

// Get implements artifact.Store.Get
func (s *ArtifactStore) Get(ctx context.Context, ref string) ([]byte, string, error) {
	if err := validateRef(ref); err != nil {
		return nil, "", err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("%w: get object failed: %v", artifact.ErrStorage, err)
	}
	defer func() {
		if closeErr := obj.Close(); closeErr != nil {
			s.logger.Error("failed to close object reader", slog.String("error", closeErr.Error()))
		}
	}()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
		}
		return nil, "", fmt.Errorf("%w: stat object failed: %v", artifact.ErrStorage, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read object failed: %v", artifact.ErrStorage, err)
	}

	return data, stat.ContentType, nil
}

// PublicURL implements artifact.Store.PublicURL
// It returns a presigned GET URL with the configured TTL.
func (s *ArtifactStore) PublicURL(ctx context.Context, ref string) (string, error) {
	if err := validateRef(ref); err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, s.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: presign failed: %v", artifact.ErrStorage, err)
	}
	return u.String(), nil
}

// Delete implements artifact.Store.Delete
func (s *ArtifactStore) Delete(ctx context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Error("failed to delete artifact",
			slog.String("error", err.Error()),
			slog.String("ref", ref))
		return fmt.Errorf("%w: remove object failed: %v", artifact.ErrStorage, err)
	}

	s.logger.Debug("artifact deleted", slog.String("ref", ref))
	return nil
}

// validateRef rejects empty keys and path traversal in references.
func validateRef(ref string) error {
	if ref == "" || strings.Contains(ref, "..") {
		return fmt.Errorf("%w: %q", artifact.ErrInvalidRef, ref)
	}
	return nil
}
