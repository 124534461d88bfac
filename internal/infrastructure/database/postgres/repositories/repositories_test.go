//go:build integration

// Integration tests for the PostgreSQL repositories. They need Docker and
// run only with the "integration" build tag.
package repositories_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/testutil"
	"github.com/turtacn/LawLens/pkg/errors"
)

// startPostgres launches pgvector on PostgreSQL 16, applies the embedded
// migrations and returns a connection.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "lawlens_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "lawlens_test",
		SSLMode:  "disable",
		MaxConns: 4,
	}

	mg, err := postgres.NewMigrator(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Close())

	conn, err := postgres.NewConnection(ctx, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestPrecedentRepository_IndexAndSearch(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	repo := repositories.NewPrecedentRepository(conn.Pool(), testutil.HashEmbedder{Dim: 768}, logging.NewNopLogger())

	docs := []precedent.Document{
		{Content: "단체 채팅방에서 피해자를 바보라고 지칭한 모욕 사건", Metadata: precedent.CaseMetadata{
			CaseID: "2021고정100", Title: "모욕", JudgmentText: "벌금 50만원", Fine: 50, Year: 2021,
		}},
		{Content: "게임 채팅 중 욕설을 한 사건 공연성 부정", Metadata: precedent.CaseMetadata{
			CaseID: "2020고단200", Title: "모욕", JudgmentText: "무죄", Year: 2020,
		}},
	}
	require.NoError(t, repo.Index(ctx, docs))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Re-indexing the same case number updates in place.
	require.NoError(t, repo.Index(ctx, docs[:1]))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	hits, err := repo.Search(ctx, "단체 채팅방에서 피해자를 바보라고 지칭한 모욕 사건", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "2021고정100", hits[0].Case.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
	assert.True(t, hits[0].Case.Convicted())
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	doc, err := repo.Get(ctx, "2020고단200")
	require.NoError(t, err)
	assert.Equal(t, "무죄", doc.Metadata.JudgmentText)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodePrecedentNotFound))
}

func TestDiagnosisRepository_SaveGetList(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	repo := repositories.NewDiagnosisRepository(conn.Pool(), logging.NewNopLogger())

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		r := &diagnosis.Report{
			ID:          uuid.NewString(),
			Mode:        diagnosis.ModeGeneral,
			Status:      precedent.StatusWarning,
			CleanedText: "본문 " + strconv.Itoa(i),
			SearchQuery: "본문\n키워드: 모욕죄",
			Advice:      "조언",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Save(ctx, r))
		ids = append(ids, r.ID)
	}

	got, err := repo.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "본문 1", got.CleanedText)
	assert.Equal(t, precedent.StatusWarning, got.Status)

	require.NoError(t, repo.SetReportKey(ctx, ids[2], "reports/x.json"))
	list, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, "reports/x.json", list[0].ReportKey)
	assert.Equal(t, "warning", list[0].Status)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(repo.SetReportKey(ctx, uuid.NewString(), "k")))
}
