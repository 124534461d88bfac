// Package whisper transcribes voice recordings through an OpenAI-compatible
// /audio/transcriptions endpoint.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const maxErrorBody = 4 << 10

var _ diagnosis.SpeechRecognizer = (*Recognizer)(nil)

type Recognizer struct {
	http     *http.Client
	endpoint string
	apiKey   string
	model    string
	language string
	logger   logging.Logger
}

type verboseTranscript struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewRecognizer builds a client from cfg. httpClient may be nil.
func NewRecognizer(cfg config.WhisperConfig, httpClient *http.Client, log logging.Logger) (*Recognizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "whisper api key is not configured")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultWhisperBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultWhisperModel
	}
	lang := cfg.Language
	if lang == "" {
		lang = config.DefaultWhisperLanguage
	}
	return &Recognizer{
		http:     httpClient,
		endpoint: strings.TrimRight(base, "/") + "/audio/transcriptions",
		apiKey:   cfg.APIKey,
		model:    model,
		language: lang,
		logger:   log.Named("whisper"),
	}, nil
}

// Transcribe uploads audio and returns timestamped segments. A response
// without segments yields a single segment spanning the whole text.
func (r *Recognizer) Transcribe(ctx context.Context, audio []byte, filename string) ([]evidence.Segment, error) {
	if len(audio) == 0 {
		return nil, errors.New(errors.ErrCodeEvidenceEmpty, "audio is empty")
	}
	body, contentType, err := r.form(audio, filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTranscriptionFailed, "failed to build upload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTranscriptionFailed, "failed to build request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTranscriptionFailed, "transcription request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		r.logger.Warn("transcription rejected",
			logging.Int("status", resp.StatusCode),
			logging.String("file", filename))
		return nil, errors.Newf(errors.ErrCodeTranscriptionFailed, "transcription returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out verboseTranscript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTranscriptionFailed, "failed to decode transcript")
	}
	if len(out.Segments) == 0 {
		text := strings.TrimSpace(out.Text)
		if text == "" {
			return nil, nil
		}
		return []evidence.Segment{{Text: text}}, nil
	}
	segments := make([]evidence.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		segments = append(segments, evidence.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return segments, nil
}

func (r *Recognizer) form(audio []byte, filename string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", r.model},
		{"language", r.language},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if filename == "" {
		filename = "audio.m4a"
	}
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
