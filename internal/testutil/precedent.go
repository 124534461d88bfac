package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/turtacn/LawLens/internal/domain/precedent"
)

// Scored builds a ScoredCase whose case number is also its ID.
func Scored(caseID, judgment string, score float64) precedent.ScoredCase {
	meta := precedent.CaseMetadata{CaseID: caseID, Title: caseID + " 사건", JudgmentText: judgment}
	return precedent.ScoredCase{Case: precedent.NewCandidateCase("", "판결 요지 "+caseID, meta), Score: score}
}

// StaticSearcher returns the same results for every query and records the
// queries it saw.
type StaticSearcher struct {
	Results []precedent.ScoredCase
	Err     error

	mu      sync.Mutex
	queries []string
}

func (s *StaticSearcher) Search(_ context.Context, query string, k int) ([]precedent.ScoredCase, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if k > 0 && k < len(s.Results) {
		return s.Results[:k], nil
	}
	return s.Results, nil
}

// Queries returns the queries seen so far.
func (s *StaticSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// HashEmbedder is a deterministic bag-of-words embedder. Texts sharing
// words get a positive cosine similarity.
type HashEmbedder struct {
	Dim int
}

func (e HashEmbedder) Dimension() int {
	if e.Dim <= 0 {
		return 64
	}
	return e.Dim
}

func (e HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dimension())
	for _, word := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%uint32(len(vec))]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
