package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

var _ diagnosis.FeatureAnalyzer = (*Analyzer)(nil)

// Analyzer implements diagnosis.FeatureAnalyzer.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(c *Client) *Analyzer { return &Analyzer{client: c} }

type analysisResponse struct {
	Features struct {
		TargetType   string   `json:"target_type"`
		Space        string   `json:"space"`
		Expression   []string `json:"expression"`
		SexualIntent string   `json:"sexual_intent"`
	} `json:"features"`
	CandidateCrime string `json:"candidate_crime"`
	RiskLevel      string `json:"risk_level"`
	Reason         string `json:"reason"`
}

// Analyze asks the model for the structured legal reading of text.
func (a *Analyzer) Analyze(ctx context.Context, text string) (diagnosis.Features, error) {
	prompt, err := render("analyzer", struct{ Text string }{text})
	if err != nil {
		return diagnosis.Features{}, err
	}
	out, err := a.client.generate(ctx, generateRequest{
		System:      analyzerSystem,
		Prompt:      prompt,
		Temperature: analyzerTemperature,
		JSON:        true,
	})
	if err != nil {
		return diagnosis.Features{}, err
	}
	f, err := ParseFeatures(out)
	if err != nil {
		a.client.logger.Warn("unparseable analysis response", logging.Int("length", len(out)), logging.Err(err))
		return diagnosis.Features{}, err
	}
	return f, nil
}

// ParseFeatures decodes a model answer, tolerating a surrounding
// ```json fence or chatter before and after the object.
func ParseFeatures(raw string) (diagnosis.Features, error) {
	body := stripFence(raw)
	var r analysisResponse
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return diagnosis.Features{}, errors.Wrap(err, errors.ErrCodeAnalysisResponseParse, "analysis response is not valid JSON")
	}
	if r.CandidateCrime == "" {
		return diagnosis.Features{}, errors.New(errors.ErrCodeAnalysisResponseParse, "analysis response has no candidate_crime")
	}
	return diagnosis.Features{
		TargetType:     r.Features.TargetType,
		Space:          r.Features.Space,
		Expression:     r.Features.Expression,
		SexualIntent:   r.Features.SexualIntent,
		CandidateCrime: r.CandidateCrime,
		RiskLevel:      r.RiskLevel,
		Reason:         r.Reason,
	}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return s
}
