package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const defaultBulkBatchSize = 500

// precedentMapping analyzes Korean text with the built-in cjk analyzer,
// which emits Hangul bigrams without needing the nori plugin.
var precedentMapping = map[string]any{
	"settings": map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"case_id":  map[string]any{"type": "keyword"},
			"title":    map[string]any{"type": "text", "analyzer": "cjk"},
			"judgment": map[string]any{"type": "text", "analyzer": "cjk"},
			"court":    map[string]any{"type": "keyword"},
			"fine":     map[string]any{"type": "long"},
			"year":     map[string]any{"type": "integer"},
			"link":     map[string]any{"type": "keyword", "index": false},
			"content":  map[string]any{"type": "text", "analyzer": "cjk"},
		},
	},
}

// source is the stored form of a precedent document.
type source struct {
	Content string `json:"content"`
	precedent.CaseMetadata
}

// Indexer writes precedents into the index.
type Indexer struct {
	client    *Client
	batchSize int
	refresh   string
	logger    logging.Logger
}

// NewIndexer returns an Indexer. Refresh is "true" when writes must be
// visible to the next search, as in tests and one-shot corpus loads.
func NewIndexer(c *Client, refresh bool, log logging.Logger) *Indexer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Indexer{
		client:    c,
		batchSize: defaultBulkBatchSize,
		refresh:   strconv.FormatBool(refresh),
		logger:    log.Named("opensearch_indexer"),
	}
}

// EnsureIndex creates the precedent index when it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{i.client.index}}.Do(ctx, i.client.os)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check opensearch index")
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(precedentMapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	resp, err := opensearchapi.IndicesCreateRequest{Index: i.client.index, Body: bytes.NewReader(body)}.Do(ctx, i.client.os)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create opensearch index")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, errors.ErrCodePrecedentIndexFailed, "create index failed")
	}
	i.logger.Info("opensearch index created", logging.String("index", i.client.index))
	return nil
}

type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Index bulk-writes docs in batches. Any rejected item fails the call.
func (i *Indexer) Index(ctx context.Context, docs []precedent.Document) error {
	for start := 0; start < len(docs); start += i.batchSize {
		end := min(start+i.batchSize, len(docs))
		if err := i.bulk(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	if len(docs) > 0 {
		i.logger.Info("indexed precedents", logging.Int("count", len(docs)), logging.String("index", i.client.index))
	}
	return nil
}

func (i *Indexer) bulk(ctx context.Context, docs []precedent.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for n, doc := range docs {
		id := doc.ID
		if id == "" {
			id = doc.Metadata.CaseID
		}
		if id == "" {
			return errors.Newf(errors.ErrCodeValidation, "precedent document %d has no id", n)
		}
		var action bulkAction
		action.Index.Index = i.client.index
		action.Index.ID = id
		if err := enc.Encode(action); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(source{Content: doc.Content, CaseMetadata: doc.Metadata}); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode precedent").WithDetail(id)
		}
	}

	resp, err := opensearchapi.BulkRequest{Body: &buf, Refresh: i.refresh}.Do(ctx, i.client.os)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePrecedentIndexFailed, "bulk request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, errors.ErrCodePrecedentIndexFailed, "bulk request failed")
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	if !br.Errors {
		return nil
	}
	failed := 0
	var first string
	for _, item := range br.Items {
		for _, v := range item {
			if v.Status >= 300 {
				if failed == 0 {
					first = v.ID + ": " + v.Error.Reason
				}
				failed++
			}
		}
	}
	return errors.Newf(errors.ErrCodePrecedentIndexFailed, "%d of %d precedents rejected", failed, len(docs)).WithDetail(first)
}
