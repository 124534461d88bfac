package diagnosis

import (
	"time"

	"github.com/turtacn/LawLens/internal/domain/precedent"
)

// Mode selects how the typed text is framed before analysis.
type Mode string

const (
	// ModeGeneral is a one-to-one chat or game chat log.
	ModeGeneral Mode = "general"
	// ModeComments is a post with several hostile comments.
	ModeComments Mode = "comments"
)

// AnalysisFailed is the candidate crime recorded when feature analysis
// cannot produce a result.
const AnalysisFailed = "분석실패"

// Evidence is an uploaded file.
type Evidence struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
	// ObjectKey references evidence already stored in the evidence bucket.
	// Data wins when both are set.
	ObjectKey string `json:"object_key,omitempty"`
}

// Request is one diagnosis request.
type Request struct {
	Mode           Mode       `json:"mode"`
	Text           string     `json:"text"`
	PostTitle      string     `json:"post_title,omitempty"`
	Victim         string     `json:"victim,omitempty"`
	Images         []Evidence `json:"images,omitempty"`
	Audio          []Evidence `json:"audio,omitempty"`
	DraftComplaint bool       `json:"draft_complaint,omitempty"`
}

// HasEvidence reports whether any file accompanies the request.
func (r Request) HasEvidence() bool {
	return len(r.Images) > 0 || len(r.Audio) > 0
}

// Features is the structured legal reading of the cleaned text.
type Features struct {
	TargetType     string   `json:"target_type"`
	Space          string   `json:"space"`
	Expression     []string `json:"expression"`
	SexualIntent   string   `json:"sexual_intent"`
	CandidateCrime string   `json:"candidate_crime"`
	RiskLevel      string   `json:"risk_level"`
	Reason         string   `json:"reason"`
}

// FailedFeatures is what a diagnosis carries when analysis fails.
func FailedFeatures(reason string) Features {
	return Features{CandidateCrime: AnalysisFailed, Reason: reason}
}

// AdviceRequest is the grounding handed to the Advisor.
type AdviceRequest struct {
	Situation string
	Mode      Mode
	Outcome   precedent.RankedOutcome
	Features  Features
}

// ComplaintRequest asks for a police complaint draft.
type ComplaintRequest struct {
	Situation string
	Features  Features
	Main      *precedent.ScoredCase
}

// CaseRow is one line of the precedent table shown with a report.
type CaseRow struct {
	Title      string  `json:"title"`
	CaseID     string  `json:"case_id"`
	Fine       int64   `json:"fine"` // 만원
	Year       int     `json:"year"`
	Judgment   string  `json:"judgment"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"` // percent
	Link       string  `json:"link"`
	Main       bool    `json:"main"`
}

// GlossaryEntry explains a legal term that appears in the advice.
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Link       string `json:"link"`
}

// Section is one evidence item's extracted text.
type Section struct {
	Kind  string `json:"kind"` // "image" | "audio"
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Report is the result of a diagnosis.
type Report struct {
	ID                string                  `json:"id"`
	Mode              Mode                    `json:"mode"`
	Status            precedent.Status        `json:"status"`
	CleanedText       string                  `json:"cleaned_text"`
	SearchQuery       string                  `json:"search_query"`
	Sections          []Section               `json:"sections,omitempty"`
	Features          Features                `json:"features"`
	Outcome           precedent.RankedOutcome `json:"outcome"`
	Rows              []CaseRow               `json:"rows"`
	AverageSimilarity float64                 `json:"average_similarity"` // percent
	Advice            string                  `json:"advice"`
	Complaint         string                  `json:"complaint,omitempty"`
	Glossary          []GlossaryEntry         `json:"glossary,omitempty"`
	Cached            bool                    `json:"cached,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// Job is a queued diagnosis.
type Job struct {
	ID          string    `json:"id"`
	Request     Request   `json:"request"`
	SubmittedAt time.Time `json:"submitted_at"`
	Attempt     int       `json:"attempt"`
}

// JobResult is published when a queued diagnosis finishes. Status is nil
// when the job was rejected.
type JobResult struct {
	JobID     string            `json:"job_id"`
	ReportKey string            `json:"report_key,omitempty"`
	Status    *precedent.Status `json:"status,omitempty"`
	Error     string            `json:"error,omitempty"`
	Completed time.Time         `json:"completed_at"`
}
