package milvus

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/testutil"
	"github.com/turtacn/LawLens/pkg/errors"
)

type mockMilvusClient struct {
	client.Client

	healthy bool
	exists  bool
	closed  int

	created     *entity.Schema
	indexed     string
	loaded      string
	upserted    []entity.Column
	searchErr   error
	results     []client.SearchResult
	searchTopK  int
	searchField string
}

func (m *mockMilvusClient) CheckHealth(ctx context.Context) (*entity.MilvusState, error) {
	return &entity.MilvusState{IsHealthy: m.healthy}, nil
}

func (m *mockMilvusClient) Close() error {
	m.closed++
	return nil
}

func (m *mockMilvusClient) HasCollection(ctx context.Context, name string) (bool, error) {
	return m.exists, nil
}

func (m *mockMilvusClient) CreateCollection(ctx context.Context, schema *entity.Schema, shards int32, opts ...client.CreateCollectionOption) error {
	m.created = schema
	m.exists = true
	return nil
}

func (m *mockMilvusClient) CreateIndex(ctx context.Context, coll, field string, idx entity.Index, async bool, opts ...client.IndexOption) error {
	m.indexed = field
	return nil
}

func (m *mockMilvusClient) LoadCollection(ctx context.Context, coll string, async bool, opts ...client.LoadCollectionOption) error {
	m.loaded = coll
	return nil
}

func (m *mockMilvusClient) Upsert(ctx context.Context, coll, partition string, columns ...entity.Column) (entity.Column, error) {
	m.upserted = columns
	return nil, nil
}

func (m *mockMilvusClient) Search(ctx context.Context, coll string, partitions []string, expr string, outputFields []string,
	vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam,
	opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	m.searchTopK = topK
	m.searchField = vectorField
	return m.results, m.searchErr
}

func newTestSearcher(t *testing.T, mc *mockMilvusClient, metric string) *PrecedentSearcher {
	t.Helper()
	c := newClientWith(mc, config.MilvusConfig{Address: "localhost:19530"}, logging.NewNopLogger())
	return NewPrecedentSearcher(c, testutil.HashEmbedder{Dim: 8}, config.MilvusConfig{MetricType: metric}, nil)
}

func TestNewClient_Healthy(t *testing.T) {
	mc := &mockMilvusClient{healthy: true}
	orig := milvusNewClient
	t.Cleanup(func() { milvusNewClient = orig })
	milvusNewClient = func(ctx context.Context, conf client.Config) (client.Client, error) {
		assert.Equal(t, "milvus:19530", conf.Address)
		assert.NotEmpty(t, conf.DialOptions)
		return mc, nil
	}

	c, err := NewClient(context.Background(), config.MilvusConfig{Address: "milvus:19530"}, nil)
	require.NoError(t, err)
	assert.True(t, c.IsHealthy())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, mc.closed)
	assert.Nil(t, c.SDK())
}

func TestNewClient_Unhealthy(t *testing.T) {
	mc := &mockMilvusClient{healthy: false}
	orig := milvusNewClient
	t.Cleanup(func() { milvusNewClient = orig })
	milvusNewClient = func(ctx context.Context, conf client.Config) (client.Client, error) { return mc, nil }

	_, err := NewClient(context.Background(), config.MilvusConfig{Address: "milvus:19530"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.Equal(t, 1, mc.closed)
}

func TestNewClient_DialFailure(t *testing.T) {
	orig := milvusNewClient
	t.Cleanup(func() { milvusNewClient = orig })
	milvusNewClient = func(ctx context.Context, conf client.Config) (client.Client, error) {
		return nil, stderrors.New("connection refused")
	}

	_, err := NewClient(context.Background(), config.MilvusConfig{Address: "milvus:19530"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestNewClient_RequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), config.MilvusConfig{}, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestEnsureCollection_CreatesSchemaAndIndex(t *testing.T) {
	mc := &mockMilvusClient{healthy: true}
	s := newTestSearcher(t, mc, "")

	require.NoError(t, s.EnsureCollection(context.Background()))
	require.NotNil(t, mc.created)
	assert.Equal(t, config.DefaultMilvusCollection, mc.created.CollectionName)
	assert.Equal(t, config.DefaultMilvusVectorField, mc.indexed)
	assert.Equal(t, config.DefaultMilvusCollection, mc.loaded)

	var pk, vec *entity.Field
	for _, f := range mc.created.Fields {
		if f.PrimaryKey {
			pk = f
		}
		if f.DataType == entity.FieldTypeFloatVector {
			vec = f
		}
	}
	require.NotNil(t, pk)
	assert.Equal(t, fieldID, pk.Name)
	require.NotNil(t, vec)
	assert.Equal(t, "8", vec.TypeParams[entity.TypeParamDim])
}

func TestEnsureCollection_ExistingOnlyLoads(t *testing.T) {
	mc := &mockMilvusClient{healthy: true, exists: true}
	s := newTestSearcher(t, mc, "")

	require.NoError(t, s.EnsureCollection(context.Background()))
	assert.Nil(t, mc.created)
	assert.Empty(t, mc.indexed)
	assert.Equal(t, config.DefaultMilvusCollection, mc.loaded)
}

func searchResult(scores ...float32) client.SearchResult {
	ids := []string{"2019고단100", "2021노55"}[:len(scores)]
	return client.SearchResult{
		ResultCount: len(scores),
		IDs:         entity.NewColumnVarChar(fieldID, ids),
		Scores:      scores,
		Fields: client.ResultSet{
			entity.NewColumnVarChar(fieldCaseID, ids),
			entity.NewColumnVarChar(fieldJudgment, []string{"벌금 50만원", "무죄"}[:len(scores)]),
			entity.NewColumnInt64(fieldFine, []int64{50, 0}[:len(scores)]),
			entity.NewColumnInt64(fieldYear, []int64{2019, 2021}[:len(scores)]),
			entity.NewColumnVarChar(fieldContent, []string{"단톡방 욕설 모욕", "게시판 명예훼손"}[:len(scores)]),
		},
	}
}

func TestSearch_MapsColumns(t *testing.T) {
	mc := &mockMilvusClient{healthy: true, results: []client.SearchResult{searchResult(0.91, 0.4)}}
	s := newTestSearcher(t, mc, "cosine")

	got, err := s.Search(context.Background(), "단톡방에서 욕설", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, mc.searchTopK)
	assert.Equal(t, config.DefaultMilvusVectorField, mc.searchField)

	first := got[0]
	assert.Equal(t, "2019고단100", first.Case.ID)
	assert.Equal(t, int64(50), first.Case.Metadata.Fine)
	assert.Equal(t, 2019, first.Case.Metadata.Year)
	assert.Equal(t, "단톡방 욕설 모욕", first.Case.Content)
	assert.True(t, first.Case.Convicted())
	assert.InDelta(t, 0.91, first.Score, 1e-6)
	assert.False(t, got[1].Case.Convicted())
}

func TestSearch_L2DistanceBecomesSimilarity(t *testing.T) {
	mc := &mockMilvusClient{healthy: true, results: []client.SearchResult{searchResult(0, 1)}}
	s := newTestSearcher(t, mc, "L2")

	got, err := s.Search(context.Background(), "욕설", 0)
	require.NoError(t, err)
	assert.Equal(t, precedent.DefaultSearchK, mc.searchTopK)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.5, got[1].Score, 1e-9)
}

func TestSearch_Failure(t *testing.T) {
	mc := &mockMilvusClient{healthy: true, searchErr: stderrors.New("rpc error")}
	s := newTestSearcher(t, mc, "")

	_, err := s.Search(context.Background(), "욕설", 3)
	assert.True(t, errors.IsCode(err, errors.ErrCodePrecedentSearchFailed))
}

func TestSearch_AfterClose(t *testing.T) {
	mc := &mockMilvusClient{healthy: true}
	s := newTestSearcher(t, mc, "")
	require.NoError(t, s.client.Close())

	_, err := s.Search(context.Background(), "욕설", 3)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestIndex_UpsertsColumns(t *testing.T) {
	mc := &mockMilvusClient{healthy: true}
	s := newTestSearcher(t, mc, "")

	docs := []precedent.Document{
		{Content: "오픈채팅방 모욕", Metadata: precedent.CaseMetadata{CaseID: "2020고정1", JudgmentText: "벌금 30만원", Fine: 30, Year: 2020}},
		{ID: "p-2", Content: "게시판 허위사실", Metadata: precedent.CaseMetadata{CaseID: "2022노9", JudgmentText: "무죄"}},
	}
	require.NoError(t, s.Index(context.Background(), docs))
	require.Len(t, mc.upserted, 10)

	ids := mc.upserted[0].(*entity.ColumnVarChar).Data()
	assert.Equal(t, []string{"2020고정1", "p-2"}, ids)
	vectors := mc.upserted[9].(*entity.ColumnFloatVector)
	assert.Equal(t, 8, vectors.Dim())
	assert.Equal(t, 2, vectors.Len())
}

func TestIndex_RejectsWrongDimension(t *testing.T) {
	mc := &mockMilvusClient{healthy: true}
	s := newTestSearcher(t, mc, "")

	err := s.Index(context.Background(), []precedent.Document{{ID: "x", Content: "a", Embedding: []float32{1, 2}}})
	assert.True(t, errors.IsValidation(err))
	assert.Nil(t, mc.upserted)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "가나", truncateRunes("가나다라", 2))
	assert.Equal(t, "가나", truncateRunes("가나", 5))
}
