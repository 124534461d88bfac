// Package memory is an in-process precedent index: TF-IDF vectors ranked by
// cosine similarity. It needs no external service and backs the CLI and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// Index implements precedent.Searcher and precedent.Indexer.
type Index struct {
	mu      sync.RWMutex
	docs    []precedent.Document
	byID    map[string]int
	model   *vectorizer
	vectors []sparseVector
	logger  logging.Logger
}

func NewIndex(log logging.Logger) *Index {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Index{byID: make(map[string]int), logger: log.Named("memory_index")}
}

// Index adds or replaces docs by ID and refits the model over the whole
// corpus.
func (ix *Index) Index(_ context.Context, docs []precedent.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = doc.Metadata.CaseID
		}
		if doc.ID == "" {
			return errors.Newf(errors.ErrCodeValidation, "precedent document %d has no id", i)
		}
		if pos, ok := ix.byID[doc.ID]; ok {
			ix.docs[pos] = doc
			continue
		}
		ix.byID[doc.ID] = len(ix.docs)
		ix.docs = append(ix.docs, doc)
	}
	ix.refit()
	ix.logger.Info("precedent index rebuilt", logging.Int("documents", len(ix.docs)))
	return nil
}

func (ix *Index) refit() {
	corpus := make([]string, len(ix.docs))
	for i, d := range ix.docs {
		corpus[i] = d.Content
	}
	ix.model = fitVectorizer(corpus)
	ix.vectors = make([]sparseVector, len(ix.docs))
	for i, text := range corpus {
		ix.vectors[i] = ix.model.transform(text)
	}
}

// Search returns up to k documents with a positive cosine similarity to
// query, best first. Ties keep corpus order.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]precedent.ScoredCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = precedent.DefaultSearchK
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.docs) == 0 {
		return nil, nil
	}

	q := ix.model.transform(query)
	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, len(ix.docs))
	for i, vec := range ix.vectors {
		if s := q.dot(vec); s > 0 {
			hits = append(hits, hit{pos: i, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]precedent.ScoredCase, len(hits))
	for i, h := range hits {
		out[i] = ix.docs[h.pos].Candidate(h.score)
	}
	return out, nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}
