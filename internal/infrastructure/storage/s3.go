// Package storage provides the S3-compatible object store used for CSV
// report uploads. It targets AWS S3 by default and any S3-compatible
// endpoint (MinIO, LocalStack) when one is configured.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Config holds object storage connection settings.
// An empty Endpoint targets AWS S3 in the configured region; a non-empty
// Endpoint (with scheme) targets a self-hosted S3-compatible server.
// PublicURLFormat optionally overrides returned URLs; it may reference
// the {bucket}, {key} and {region} placeholders.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKey       string
	SecretKey       string
	PublicURLFormat string
}

// S3Store uploads report objects and hands out their public URLs.
type S3Store struct {
	client *minio.Client
	cfg    Config
	logger *zap.Logger
}

// NewS3Store creates a new object store client. Against a self-hosted
// endpoint the target bucket is created when missing; against AWS the
// bucket is assumed to exist.
//
// Parameters:
//   - ctx: Context for the bucket existence check
//   - cfg: Storage configuration
//   - logger: Zap logger for upload operations
//
// Returns:
//   - *S3Store: Configured object store
//   - error: Client construction or bucket setup error
func NewS3Store(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Store, error) {
	endpoint := cfg.Endpoint
	selfHosted := endpoint != ""

	if !selfHosted {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	secure := true

	if host, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = host
		secure = false
	} else if host, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = host
	}

	creds := credentials.NewEnvAWS()

	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	store := &S3Store{
		client: client,
		cfg:    cfg,
		logger: logger,
	}

	if selfHosted {
		if err := store.ensureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare bucket %q: %w", cfg.Bucket, err)
		}
	}

	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)

	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	s.logger.Info("creating bucket", zap.String("bucket", s.cfg.Bucket))

	return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
}

// Upload stores body under the given key and returns the object's public URL.
// Existing objects under the same key are overwritten.
//
// Parameters:
//   - ctx: Context for cancellation and tracing
//   - key: Object key inside the bucket
//   - body: Object contents
//   - contentType: MIME type recorded on the object
//
// Returns:
//   - string: Public URL of the uploaded object
//   - error: Upload error if the operation fails
func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	tracer := otel.Tracer("storage")
	ctx, span := tracer.Start(ctx, "S3Store.Upload")

	defer span.End()

	span.SetAttributes(
		attribute.String("storage.bucket", s.cfg.Bucket),
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(body)),
	)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})

	if err != nil {
		span.RecordError(err)

		s.logger.Error("object upload failed",
			zap.String("bucket", s.cfg.Bucket),
			zap.String("key", key),
			zap.Error(err))

		return "", err
	}

	url := s.publicURL(key)

	s.logger.Info("object uploaded",
		zap.String("bucket", s.cfg.Bucket),
		zap.String("key", key),
		zap.String("url", url))

	return url, nil
}

// publicURL builds the externally reachable URL of an object. A configured
// URL format wins; otherwise self-hosted endpoints use path-style addressing
// and AWS uses virtual-hosted style.
func (s *S3Store) publicURL(key string) string {
	if s.cfg.PublicURLFormat != "" {
		return strings.NewReplacer(
			"{bucket}", s.cfg.Bucket,
			"{key}", key,
			"{region}", s.cfg.Region,
		).Replace(s.cfg.PublicURLFormat)
	}

	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
