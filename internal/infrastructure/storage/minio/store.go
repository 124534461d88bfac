package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const (
	jsonContentType = "application/json"
	sniffLen        = 512
)

var _ diagnosis.EvidenceStore = (*EvidenceStore)(nil)

// EvidenceStore implements diagnosis.EvidenceStore. Evidence lives under
// "<job>/<uuid>-<name>" in the evidence bucket and reports under
// "<report id>.json" in the report bucket.
type EvidenceStore struct {
	api    objectAPI
	cfg    config.MinIOConfig
	logger logging.Logger
	newID  func() string
}

func newStore(api objectAPI, cfg config.MinIOConfig, log logging.Logger) *EvidenceStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.EvidenceBucket == "" {
		cfg.EvidenceBucket = config.DefaultEvidenceBucket
	}
	if cfg.ReportBucket == "" {
		cfg.ReportBucket = config.DefaultReportBucket
	}
	return &EvidenceStore{api: api, cfg: cfg, logger: log.Named("minio"), newID: uuid.NewString}
}

// PutEvidence uploads ev.Data and returns its object key.
func (s *EvidenceStore) PutEvidence(ctx context.Context, jobID string, ev diagnosis.Evidence) (string, error) {
	if jobID == "" {
		return "", errors.New(errors.ErrCodeValidation, "job id is required")
	}
	if len(ev.Data) == 0 {
		return "", errors.New(errors.ErrCodeEvidenceEmpty, "evidence has no data").WithDetail(ev.Name)
	}
	contentType := ev.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(ev.Data[:min(sniffLen, len(ev.Data))])
	}

	key := jobID + "/" + s.newID() + "-" + objectName(ev.Name)
	_, err := s.api.PutObject(ctx, s.cfg.EvidenceBucket, key, bytes.NewReader(ev.Data), int64(len(ev.Data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"job-id": jobID},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEvidenceUploadFailed, "evidence upload failed").WithDetail(key)
	}
	s.logger.Debug("evidence stored", logging.String("key", key), logging.Int("bytes", len(ev.Data)))
	return key, nil
}

// GetEvidence downloads the object at key.
func (s *EvidenceStore) GetEvidence(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.cfg.EvidenceBucket, key)
}

func (s *EvidenceStore) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.api.openObject(ctx, bucket, key)
	if err != nil {
		return nil, objectError(err, key)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectError(err, key)
	}
	return data, nil
}

func objectError(err error, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.New(errors.ErrCodeEvidenceNotFound, "object not found").WithDetail(key)
	}
	return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "object download failed").WithDetail(key)
}

// PutReport stores report as JSON and returns its object key.
func (s *EvidenceStore) PutReport(ctx context.Context, report *diagnosis.Report) (string, error) {
	if report == nil || report.ID == "" {
		return "", errors.New(errors.ErrCodeValidation, "report id is required")
	}
	body, err := json.Marshal(report)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal report")
	}
	key := ReportKey(report.ID)
	_, err = s.api.PutObject(ctx, s.cfg.ReportBucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: jsonContentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEvidenceUploadFailed, "report upload failed").WithDetail(key)
	}
	return key, nil
}

// ReportKey is the object key of a report in the report bucket.
func ReportKey(id string) string {
	return id + ".json"
}

// ReportURL returns a presigned download link for a stored report.
func (s *EvidenceStore) ReportURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.cfg.ReportBucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to presign report").WithDetail(key)
	}
	return u.String(), nil
}

// objectName keeps the base name of an upload and drops path separators.
func objectName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "evidence"
	}
	return strings.ReplaceAll(name, " ", "_")
}
