package precedent

import "context"

// DefaultSearchK is how many candidates a diagnosis asks the search backend for.
const DefaultSearchK = 10

// Searcher retrieves precedents similar to a query, best match first.
// Backends: pgvector, Milvus, OpenSearch and the in-memory index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]ScoredCase, error)
}

// Document is a precedent as stored in a search backend.
type Document struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Metadata  CaseMetadata `json:"metadata"`
	Embedding []float32    `json:"-"`
}

// Candidate converts a stored document into a search result.
func (d Document) Candidate(score float64) ScoredCase {
	return ScoredCase{Case: NewCandidateCase(d.ID, d.Content, d.Metadata), Score: score}
}

// Indexer stores precedents for later search.
type Indexer interface {
	Index(ctx context.Context, docs []Document) error
}

// Embedder turns text into a dense vector for vector backends.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
