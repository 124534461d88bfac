package milvus

import (
	"context"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/spf13/cast"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const defaultSearchTimeout = 10 * time.Second

// PrecedentSearcher implements precedent.Searcher and precedent.Indexer
// on a Milvus collection.
type PrecedentSearcher struct {
	client      *Client
	embedder    precedent.Embedder
	collection  string
	vectorField string
	metric      entity.MetricType
	ef          int
	timeout     time.Duration
	logger      logging.Logger
}

func NewPrecedentSearcher(c *Client, embedder precedent.Embedder, cfg config.MilvusConfig, log logging.Logger) *PrecedentSearcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &PrecedentSearcher{
		client:      c,
		embedder:    embedder,
		collection:  cfg.Collection,
		vectorField: cfg.VectorField,
		metric:      entity.MetricType(strings.ToUpper(cfg.MetricType)),
		ef:          cfg.Nprobe,
		timeout:     cfg.Timeout,
		logger:      log.Named("milvus_searcher"),
	}
	if s.collection == "" {
		s.collection = config.DefaultMilvusCollection
	}
	if s.vectorField == "" {
		s.vectorField = config.DefaultMilvusVectorField
	}
	if s.metric == "" {
		s.metric = entity.COSINE
	}
	if s.ef <= 0 {
		s.ef = config.DefaultMilvusNprobe
	}
	if s.timeout <= 0 {
		s.timeout = defaultSearchTimeout
	}
	return s
}

// Search embeds query and returns the k nearest precedents. Scores are
// similarities: cosine and inner product as returned, L2 distance d as
// 1/(1+d).
func (s *PrecedentSearcher) Search(ctx context.Context, query string, k int) ([]precedent.ScoredCase, error) {
	if k <= 0 {
		k = precedent.DefaultSearchK
	}
	mc := s.client.SDK()
	if mc == nil {
		return nil, ErrConnectionFailed
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed search query")
	}
	// ef must be at least k for HNSW.
	sp, err := entity.NewIndexHNSWSearchParam(max(s.ef, k))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid milvus search parameters")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	results, err := mc.Search(ctx, s.collection, nil, "", outputFields,
		[]entity.Vector{entity.FloatVector(vec)}, s.vectorField, s.metric, k, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClBounded),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePrecedentSearchFailed, "milvus search failed")
	}
	if len(results) == 0 {
		return nil, nil
	}

	out, err := s.toScoredCases(results[0])
	if err != nil {
		return nil, err
	}
	s.logger.Debug("milvus search", logging.Int("k", k), logging.Int("hits", len(out)))
	return out, nil
}

func (s *PrecedentSearcher) toScoredCases(res client.SearchResult) ([]precedent.ScoredCase, error) {
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, errors.ErrCodePrecedentSearchFailed, "milvus search failed")
	}
	out := make([]precedent.ScoredCase, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		id, err := res.IDs.Get(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed milvus result id")
		}
		meta := make(map[string]any, len(outputFields))
		var content string
		for _, name := range outputFields {
			col := res.Fields.GetColumn(name)
			if col == nil {
				continue
			}
			v, err := col.Get(i)
			if err != nil {
				continue
			}
			if name == fieldContent {
				content = cast.ToString(v)
				continue
			}
			meta[name] = v
		}
		doc := precedent.Document{ID: cast.ToString(id), Content: content, Metadata: precedent.MetadataFromMap(meta)}
		out = append(out, doc.Candidate(s.similarity(res.Scores[i])))
	}
	return out, nil
}

func (s *PrecedentSearcher) similarity(score float32) float64 {
	if s.metric == entity.L2 {
		return 1 / (1 + float64(score))
	}
	return float64(score)
}

// Index upserts docs, embedding any that arrive without a vector.
func (s *PrecedentSearcher) Index(ctx context.Context, docs []precedent.Document) error {
	if len(docs) == 0 {
		return nil
	}
	mc := s.client.SDK()
	if mc == nil {
		return ErrConnectionFailed
	}

	n := len(docs)
	var (
		ids, caseIDs, titles, judgments = make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		courts, links, contents         = make([]string, n), make([]string, n), make([]string, n)
		fines, years                    = make([]int64, n), make([]int64, n)
		vectors                         = make([][]float32, n)
	)
	dim := s.embedder.Dimension()
	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = doc.Metadata.CaseID
		}
		if doc.ID == "" {
			return errors.Newf(errors.ErrCodeValidation, "precedent document %d has no id", i)
		}
		if len(doc.Embedding) == 0 {
			vec, err := s.embedder.Embed(ctx, doc.Content)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "failed to embed precedent").WithDetail(doc.ID)
			}
			doc.Embedding = vec
		}
		if len(doc.Embedding) != dim {
			return errors.Newf(errors.ErrCodeValidation, "precedent %s has %d dimensions, want %d", doc.ID, len(doc.Embedding), dim)
		}
		m := doc.Metadata
		ids[i], caseIDs[i], titles[i], judgments[i] = doc.ID, m.CaseID, m.Title, m.JudgmentText
		courts[i], links[i], contents[i] = m.Court, m.Link, truncateRunes(doc.Content, maxContentLength/4)
		fines[i], years[i] = m.Fine, int64(m.Year)
		vectors[i] = doc.Embedding
	}

	_, err := mc.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldCaseID, caseIDs),
		entity.NewColumnVarChar(fieldTitle, titles),
		entity.NewColumnVarChar(fieldJudgment, judgments),
		entity.NewColumnVarChar(fieldCourt, courts),
		entity.NewColumnInt64(fieldFine, fines),
		entity.NewColumnInt64(fieldYear, years),
		entity.NewColumnVarChar(fieldLink, links),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnFloatVector(s.vectorField, dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePrecedentIndexFailed, "milvus upsert failed")
	}
	s.logger.Info("indexed precedents", logging.Int("count", n), logging.String("collection", s.collection))
	return nil
}

// truncateRunes keeps content under the VARCHAR byte limit. Hangul is three
// bytes per rune in UTF-8, so n runes stay below 4n bytes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
