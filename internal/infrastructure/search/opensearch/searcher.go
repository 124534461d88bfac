package opensearch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// PrecedentSearcher implements precedent.Searcher with a BM25 multi_match
// query over content and title.
type PrecedentSearcher struct {
	client *Client
	logger logging.Logger
}

func NewPrecedentSearcher(c *Client, log logging.Logger) *PrecedentSearcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PrecedentSearcher{client: c, logger: log.Named("opensearch_searcher")}
}

type searchResponse struct {
	Hits struct {
		MaxScore float64 `json:"max_score"`
		Hits     []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source source  `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildQuery(query string, k int) map[string]any {
	return map[string]any{
		"size": k,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"content", "title^2", "judgment"},
			},
		},
	}
}

// Search returns up to k precedents. BM25 scores are divided by the top
// score so the best hit scores 1.
func (s *PrecedentSearcher) Search(ctx context.Context, query string, k int) ([]precedent.ScoredCase, error) {
	if k <= 0 {
		k = precedent.DefaultSearchK
	}
	body, err := json.Marshal(buildQuery(query, k))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	resp, err := opensearchapi.SearchRequest{
		Index: []string{s.client.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client.os)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePrecedentSearchFailed, "opensearch search failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, responseError(resp, errors.ErrCodePrecedentSearchFailed, "opensearch search failed")
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	out := make([]precedent.ScoredCase, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		score := h.Score
		if sr.Hits.MaxScore > 0 {
			score /= sr.Hits.MaxScore
		}
		doc := precedent.Document{ID: h.ID, Content: h.Source.Content, Metadata: h.Source.CaseMetadata}
		out = append(out, doc.Candidate(score))
	}
	s.logger.Debug("opensearch search", logging.Int("k", k), logging.Int("hits", len(out)))
	return out, nil
}
