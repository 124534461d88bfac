package gemini

import (
	"context"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

var _ diagnosis.Advisor = (*Advisor)(nil)

// Advisor implements diagnosis.Advisor.
type Advisor struct {
	client *Client
}

func NewAdvisor(c *Client) *Advisor { return &Advisor{client: c} }

type adviceData struct {
	Situation string
	Title     string
	Guide     string
	Comments  bool
	Main      precedent.ScoredCase
	Others    []precedent.ScoredCase
	Features  diagnosis.Features
}

// Advise drafts the advisory answer around the ranked precedents. The
// heading and guidance switch to the warning variant when no convicting
// precedent was found.
func (a *Advisor) Advise(ctx context.Context, req diagnosis.AdviceRequest) (string, error) {
	if !req.Outcome.HasPrecedent() {
		return "", errors.New(errors.ErrCodeValidation, "advice needs at least one precedent")
	}
	data := adviceData{
		Situation: req.Situation,
		Title:     TitleWarning,
		Guide:     guideWarning,
		Comments:  req.Mode == diagnosis.ModeComments,
		Main:      req.Outcome.Main,
		Others:    req.Outcome.Remainder,
		Features:  req.Features,
	}
	if req.Outcome.ConvictionFound {
		data.Title, data.Guide = TitleConviction, guideConviction
	}
	prompt, err := render("advisor", data)
	if err != nil {
		return "", err
	}
	return a.client.generate(ctx, generateRequest{
		System:      advisorSystem,
		Prompt:      prompt,
		Temperature: advisorTemperature,
	})
}

// DraftComplaint writes a police complaint from the situation.
func (a *Advisor) DraftComplaint(ctx context.Context, req diagnosis.ComplaintRequest) (string, error) {
	prompt, err := render("complaint", req)
	if err != nil {
		return "", err
	}
	return a.client.generate(ctx, generateRequest{
		Prompt:      prompt,
		Temperature: a.client.temperature,
	})
}

func caseIDOf(c precedent.ScoredCase) string {
	if id := c.Case.Metadata.CaseID; id != "" {
		return id
	}
	return "정보 없음"
}

func judgmentOf(c precedent.ScoredCase) string {
	if j := c.Case.Metadata.JudgmentText; j != "" {
		return j
	}
	return "미상"
}
