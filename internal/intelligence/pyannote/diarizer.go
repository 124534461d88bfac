// Package pyannote is a client for the speaker-diarization sidecar that runs
// pyannote/speaker-diarization-3.1.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
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

// Pipeline is the model the sidecar is asked to run.
const Pipeline = "pyannote/speaker-diarization-3.1"

var _ diagnosis.Diarizer = (*Diarizer)(nil)

type Diarizer struct {
	http     *http.Client
	endpoint string
	token    string
	logger   logging.Logger
}

type diarizeResponse struct {
	Turns []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
	} `json:"turns"`
}

// NewDiarizer never fails. Without a base URL or token every Diarize call
// returns diagnosis.ErrDiarizerUnavailable.
func NewDiarizer(cfg config.PyannoteConfig, httpClient *http.Client, log logging.Logger) *Diarizer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	d := &Diarizer{http: httpClient, token: cfg.Token, logger: log.Named("pyannote")}
	if cfg.BaseURL != "" {
		d.endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/diarize"
	}
	return d
}

func (d *Diarizer) Enabled() bool {
	return d.endpoint != "" && d.token != ""
}

func (d *Diarizer) Diarize(ctx context.Context, audio []byte, filename string) ([]evidence.Turn, error) {
	if !d.Enabled() {
		return nil, diagnosis.ErrDiarizerUnavailable
	}
	if len(audio) == 0 {
		return nil, errors.New(errors.ErrCodeEvidenceEmpty, "audio is empty")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("pipeline", Pipeline); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiarizationFailed, "failed to build upload")
	}
	if filename == "" {
		filename = "audio.wav"
	}
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err == nil {
		_, err = part.Write(audio)
	}
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiarizationFailed, "failed to build upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &buf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiarizationFailed, "failed to build request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiarizationFailed, "diarization request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		// Sidecar is up but has no model loaded.
		return nil, diagnosis.ErrDiarizerUnavailable
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		d.logger.Warn("diarization rejected", logging.Int("status", resp.StatusCode), logging.String("file", filename))
		return nil, errors.Newf(errors.ErrCodeDiarizationFailed, "diarization returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDiarizationFailed, "failed to decode turns")
	}
	turns := make([]evidence.Turn, 0, len(out.Turns))
	for _, t := range out.Turns {
		if t.End < t.Start {
			continue
		}
		turns = append(turns, evidence.Turn{Start: t.Start, End: t.End, SpeakerID: t.Speaker})
	}
	d.logger.Debug("diarized", logging.String("file", filename), logging.Int("turns", len(turns)))
	return turns, nil
}
