//go:build integration

package minio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/storage/minio"
	"github.com/turtacn/LawLens/pkg/errors"
)

func startMinIO(t *testing.T) config.MinIOConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "lawlens",
				"MINIO_ROOT_PASSWORD": "lawlens-secret",
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return config.MinIOConfig{
		Endpoint:       endpoint,
		AccessKey:      "lawlens",
		SecretKey:      "lawlens-secret",
		EvidenceBucket: "evidence-it",
		ReportBucket:   "reports-it",
	}
}

func TestEvidenceStore_RoundTrip(t *testing.T) {
	cfg := startMinIO(t)
	ctx := context.Background()

	store, err := minio.NewClient(ctx, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))

	key, err := store.PutEvidence(ctx, "job-it", diagnosis.Evidence{Name: "chat.txt", Data: []byte("야 이 XX야")})
	require.NoError(t, err)

	data, err := store.GetEvidence(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "야 이 XX야", string(data))

	_, err = store.GetEvidence(ctx, "job-it/missing.txt")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEvidenceNotFound))

	reportKey, err := store.PutReport(ctx, &diagnosis.Report{ID: "diag-it"})
	require.NoError(t, err)
	u, err := store.ReportURL(ctx, reportKey, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "reports-it")
}
