package gemini

import (
	"context"
	"strings"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

var _ precedent.Embedder = (*Embedder)(nil)

// Embedder implements precedent.Embedder with the configured embedding model.
type Embedder struct {
	client *Client
	dim    int
}

// NewEmbedder returns an Embedder producing vectors of dim dimensions.
// Responses of any other length are rejected.
func NewEmbedder(c *Client, dim int) *Embedder {
	if dim <= 0 {
		dim = config.DefaultEmbeddingDim
	}
	return &Embedder{client: c, dim: dim}
}

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "cannot embed empty text")
	}
	vec, err := e.client.backend.Embed(ctx, e.client.embeddingModel, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "gemini embedding failed")
	}
	if len(vec) != e.dim {
		return nil, errors.Newf(errors.ErrCodeEmbeddingFailed, "embedding has %d dimensions, want %d", len(vec), e.dim)
	}
	return vec, nil
}
