// Package gemini calls Google's Gemini models for embeddings, legal feature
// analysis, advisory answers and complaint drafts.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const jsonMIMEType = "application/json"

type generateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	JSON        bool
}

// backend is the model surface the components use. The SDK implements it
// in production and tests substitute a scripted fake.
type backend interface {
	Generate(ctx context.Context, req generateRequest) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
	Close() error
}

type sdkBackend struct {
	client *genai.Client
}

func (b sdkBackend) Generate(ctx context.Context, req generateRequest) (string, error) {
	m := b.client.GenerativeModel(req.Model)
	m.SetTemperature(req.Temperature)
	if req.System != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.JSON {
		m.ResponseMIMEType = jsonMIMEType
	}
	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", errors.New(errors.ErrCodeGenerationFailed, "model returned no text")
	}
	return sb.String(), nil
}

func (b sdkBackend) Embed(ctx context.Context, model, text string) ([]float32, error) {
	em := b.client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Embedding == nil {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "model returned no embedding")
	}
	return resp.Embedding.Values, nil
}

func (b sdkBackend) Close() error { return b.client.Close() }

// Client holds the SDK connection and model settings shared by the
// embedder, analyzer and advisor. The configured temperature applies to
// complaint drafting; analysis and advice use fixed temperatures.
type Client struct {
	backend        backend
	model          string
	embeddingModel string
	temperature    float32
	logger         logging.Logger
}

// NewClient authenticates with cfg.APIKey.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "gemini api key is not configured")
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create gemini client")
	}
	return newClient(sdkBackend{client: gc}, cfg, log), nil
}

func newClient(b backend, cfg config.GeminiConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultGeminiModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = config.DefaultGeminiEmbedModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = complaintTemperature
	}
	return &Client{
		backend:        b,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
		logger:         log.Named("gemini"),
	}
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	out, err := c.backend.Generate(ctx, req)
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", errors.Wrap(err, errors.ErrCodeGenerationFailed, "gemini generation failed").WithDetail(req.Model)
	}
	return out, nil
}

func (c *Client) Close() error { return c.backend.Close() }
