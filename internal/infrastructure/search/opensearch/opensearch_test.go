package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeCluster(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) bool) (*fakeCluster, *Client) {
	t.Helper()
	fc := &fakeCluster{bodies: map[string]string{}, handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		key := r.Method + " " + r.URL.Path
		fc.requests = append(fc.requests, key)
		fc.bodies[key] = string(b)
		fc.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fc.handler != nil && fc.handler(w, r) {
			return
		}
		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), config.OpenSearchConfig{Addresses: []string{srv.URL}, Index: "precedents-test"}, nil)
	require.NoError(t, err)
	return fc, c
}

func (fc *fakeCluster) body(key string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.bodies[key]
}

func (fc *fakeCluster) saw(key string) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, r := range fc.requests {
		if r == key {
			return true
		}
	}
	return false
}

func TestNewClient(t *testing.T) {
	_, c := newFakeCluster(t, nil)
	assert.True(t, c.IsHealthy())
	assert.Equal(t, "precedents-test", c.Index())
}

func TestNewClient_RequiresAddresses(t *testing.T) {
	_, err := NewClient(context.Background(), config.OpenSearchConfig{}, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestNewClient_PingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(context.Background(), config.OpenSearchConfig{Addresses: []string{srv.URL}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestSearch_NormalizesScores(t *testing.T) {
	fc, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != "/precedents-test/_search" {
			return false
		}
		_, _ = w.Write([]byte(`{
			"hits": {
				"max_score": 8.0,
				"hits": [
					{"_id": "2019고단100", "_score": 8.0, "_source": {"case_id": "2019고단100", "judgment": "벌금 50만원", "fine": 50, "year": 2019, "content": "단톡방 욕설"}},
					{"_id": "2021노55", "_score": 2.0, "_source": {"case_id": "2021노55", "judgment": "무죄", "content": "게시판 글"}}
				]
			}
		}`))
		return true
	})
	s := NewPrecedentSearcher(c, nil)

	got, err := s.Search(context.Background(), "단톡방 욕설", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.25, got[1].Score, 1e-9)
	assert.Equal(t, "2019고단100", got[0].Case.ID)
	assert.Equal(t, int64(50), got[0].Case.Metadata.Fine)
	assert.True(t, got[0].Case.Convicted())
	assert.False(t, got[1].Case.Convicted())

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(fc.body("POST /precedents-test/_search")), &q))
	assert.EqualValues(t, 3, q["size"])
	assert.Contains(t, fc.body("POST /precedents-test/_search"), "multi_match")
}

func TestSearch_ErrorResponse(t *testing.T) {
	_, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if !strings.HasSuffix(r.URL.Path, "_search") {
			return false
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception","reason":"bad query"}}`))
		return true
	})

	_, err := NewPrecedentSearcher(c, nil).Search(context.Background(), "x", 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePrecedentSearchFailed))
	assert.Contains(t, err.Error(), "bad query")
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	fc, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodPut && r.URL.Path == "/precedents-test" {
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
			return true
		}
		return false
	})

	require.NoError(t, NewIndexer(c, false, nil).EnsureIndex(context.Background()))
	assert.True(t, fc.saw("HEAD /precedents-test"))
	assert.Contains(t, fc.body("PUT /precedents-test"), `"analyzer":"cjk"`)
}

func TestEnsureIndex_ExistingIsNoop(t *testing.T) {
	fc, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodHead && r.URL.Path == "/precedents-test" {
			w.WriteHeader(http.StatusOK)
			return true
		}
		return false
	})

	require.NoError(t, NewIndexer(c, false, nil).EnsureIndex(context.Background()))
	assert.False(t, fc.saw("PUT /precedents-test"))
}

func TestIndex_WritesBulkBody(t *testing.T) {
	fc, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != "/_bulk" {
			return false
		}
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		_, _ = w.Write([]byte(`{"errors": false, "items": []}`))
		return true
	})

	docs := []precedent.Document{
		{Content: "오픈채팅 모욕", Metadata: precedent.CaseMetadata{CaseID: "2020고정1", JudgmentText: "벌금 30만원"}},
		{ID: "p-2", Content: "허위사실 적시"},
	}
	require.NoError(t, NewIndexer(c, true, nil).Index(context.Background(), docs))

	lines := strings.Split(strings.TrimSpace(fc.body("POST /_bulk")), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"precedents-test","_id":"2020고정1"}}`, lines[0])
	assert.Contains(t, lines[1], `"judgment":"벌금 30만원"`)
	assert.JSONEq(t, `{"index":{"_index":"precedents-test","_id":"p-2"}}`, lines[2])
}

func TestIndex_ItemFailures(t *testing.T) {
	_, c := newFakeCluster(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != "/_bulk" {
			return false
		}
		_, _ = w.Write([]byte(`{"errors": true, "items": [
			{"index": {"_id": "a", "status": 201}},
			{"index": {"_id": "b", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "bad fine"}}}
		]}`))
		return true
	})

	err := NewIndexer(c, false, nil).Index(context.Background(), []precedent.Document{{ID: "a"}, {ID: "b"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePrecedentIndexFailed))
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestIndex_MissingID(t *testing.T) {
	_, c := newFakeCluster(t, nil)
	err := NewIndexer(c, false, nil).Index(context.Background(), []precedent.Document{{Content: "x"}})
	assert.True(t, errors.IsValidation(err))
}
