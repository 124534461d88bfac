package diagnosis

import (
	"context"
	"time"

	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

// ErrDiarizerUnavailable signals that speaker diarization is not configured
// or cannot run. Audio evidence then falls back to an unlabeled transcript.
var ErrDiarizerUnavailable = errors.New(errors.ErrCodeDiarizerUnavailable, "speaker diarization unavailable")

// TextDetector finds text regions in an image.
type TextDetector interface {
	Detect(ctx context.Context, image []byte) ([]evidence.Fragment, error)
}

// SpeechRecognizer transcribes audio into timed segments.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) ([]evidence.Segment, error)
}

// Diarizer attributes spans of audio to speakers.
type Diarizer interface {
	Diarize(ctx context.Context, audio []byte, filename string) ([]evidence.Turn, error)
}

// PrecedentSearcher is any precedent search backend.
type PrecedentSearcher = precedent.Searcher

// FeatureAnalyzer extracts legal features from cleaned text.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, text string) (Features, error)
}

// Advisor drafts the advisory answer and the optional complaint.
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (string, error)
	DraftComplaint(ctx context.Context, req ComplaintRequest) (string, error)
}

// ReportCache caches reports by query hash. A miss is any error for which
// errors.IsNotFound holds.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportRepository persists finished reports.
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, id string) (*Report, error)
}

// EvidenceStore holds uploaded evidence and rendered reports.
type EvidenceStore interface {
	PutEvidence(ctx context.Context, jobID string, ev Evidence) (string, error)
	GetEvidence(ctx context.Context, key string) ([]byte, error)
	PutReport(ctx context.Context, report *Report) (string, error)
}

// JobPublisher enqueues diagnosis jobs and announces their results.
type JobPublisher interface {
	PublishJob(ctx context.Context, job Job) error
	PublishResult(ctx context.Context, result JobResult) error
}
