// Package minio keeps uploaded evidence and rendered reports in S3-compatible
// object storage.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const (
	defaultRegion  = "us-east-1"
	connectTimeout = 10 * time.Second
)

// objectAPI is the part of the MinIO SDK the store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
	// openObject returns a reader over the object body. Missing objects may
	// surface on the first Read.
	openObject(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) openObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return a.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
}

// NewClient connects to the object store and creates the evidence and
// report buckets when missing.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*EvidenceStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint is required")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to create minio client")
	}

	s := newStore(sdkAPI{mc}, cfg, log)
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := s.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("minio connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return s, nil
}

// EnsureBuckets creates any configured bucket that does not exist.
func (s *EvidenceStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.cfg.EvidenceBucket, s.cfg.ReportBucket} {
		exists, err := s.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio").WithDetail(bucket)
		}
		if exists {
			continue
		}
		if err := s.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create bucket").WithDetail(bucket)
		}
		s.logger.Info("created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// Ping reports whether the evidence bucket is reachable.
func (s *EvidenceStore) Ping(ctx context.Context) error {
	if _, err := s.api.BucketExists(ctx, s.cfg.EvidenceBucket); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	return nil
}
