package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// Multipart form field names.
const (
	formMode           = "mode"
	formText           = "text"
	formPostTitle      = "post_title"
	formVictim         = "victim"
	formDraftComplaint = "draft_complaint"
	formImages         = "images"
	formAudio          = "audio"
)

// DiagnosisHandler serves diagnosis, job submission and the standalone
// normalization tools.
type DiagnosisHandler struct {
	svc           diagnosis.Service
	maxFileBytes  int64
	yThreshold    float64
	speakerPrefix string
	logger        logging.Logger
}

// NewDiagnosisHandler returns a handler. maxFileBytes <= 0 disables the
// per-file size check here; the service still enforces its own limit.
func NewDiagnosisHandler(svc diagnosis.Service, maxFileBytes int64, yThreshold float64, speakerPrefix string, log logging.Logger) *DiagnosisHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DiagnosisHandler{
		svc:           svc,
		maxFileBytes:  maxFileBytes,
		yThreshold:    yThreshold,
		speakerPrefix: speakerPrefix,
		logger:        log.Named("diagnosis_handler"),
	}
}

// Diagnose handles POST /api/v1/diagnoses. It accepts a JSON Request or a
// multipart form carrying image and audio files.
func (h *DiagnosisHandler) Diagnose(c *gin.Context) {
	req, err := h.bindRequest(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	report, err := h.svc.Diagnose(c.Request.Context(), req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SubmitResponse acknowledges a queued diagnosis.
type SubmitResponse struct {
	JobID    string `json:"job_id"`
	ReportID string `json:"report_id"`
}

// Submit handles POST /api/v1/jobs.
func (h *DiagnosisHandler) Submit(c *gin.Context) {
	req, err := h.bindRequest(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	id, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Header("Location", "/api/v1/reports/"+id)
	c.JSON(http.StatusAccepted, SubmitResponse{JobID: id, ReportID: id})
}

type normalizeRequest struct {
	Text string `json:"text" binding:"required"`
}

type normalizeResponse struct {
	Cleaned string `json:"cleaned"`
}

// Normalize handles POST /api/v1/normalize.
func (h *DiagnosisHandler) Normalize(c *gin.Context) {
	var body normalizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	cleaned, err := h.svc.Normalize(c.Request.Context(), body.Text)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, normalizeResponse{Cleaned: cleaned})
}

type linesRequest struct {
	Fragments  []evidence.Fragment `json:"fragments"`
	YThreshold float64             `json:"y_threshold"`
}

type linesResponse struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

// Lines handles POST /api/v1/lines: OCR fragments in, reading-order lines out.
func (h *DiagnosisHandler) Lines(c *gin.Context) {
	var body linesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	threshold := body.YThreshold
	if threshold <= 0 {
		threshold = h.yThreshold
	}
	lines := evidence.ReconstructLines(body.Fragments, threshold)
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, linesResponse{Lines: lines, Text: strings.Join(lines, "\n")})
}

type alignRequest struct {
	Segments []evidence.Segment `json:"segments"`
	Turns    []evidence.Turn    `json:"turns"`
}

type alignResponse struct {
	Segments []evidence.LabeledSegment `json:"segments"`
	Text     string                    `json:"text"`
}

// Align handles POST /api/v1/align: transcript segments and diarization
// turns in, speaker-labeled transcript out.
func (h *DiagnosisHandler) Align(c *gin.Context) {
	var body alignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	labeled := evidence.NewAligner(h.speakerPrefix).Align(body.Segments, body.Turns)
	if labeled == nil {
		labeled = []evidence.LabeledSegment{}
	}
	c.JSON(http.StatusOK, alignResponse{Segments: labeled, Text: evidence.FormatLabeled(labeled)})
}

func (h *DiagnosisHandler) bindRequest(c *gin.Context) (diagnosis.Request, error) {
	var req diagnosis.Request
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request")
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed multipart form")
	}
	req.Mode = diagnosis.Mode(formValue(form, formMode))
	req.Text = formValue(form, formText)
	req.PostTitle = formValue(form, formPostTitle)
	req.Victim = formValue(form, formVictim)
	if v := formValue(form, formDraftComplaint); v != "" {
		req.DraftComplaint, err = strconv.ParseBool(v)
		if err != nil {
			return req, errors.New(errors.ErrCodeBadRequest, "draft_complaint must be a boolean").WithDetail(v)
		}
	}
	if req.Images, err = h.readFiles(form.File[formImages]); err != nil {
		return req, err
	}
	if req.Audio, err = h.readFiles(form.File[formAudio]); err != nil {
		return req, err
	}
	return req, nil
}

func (h *DiagnosisHandler) readFiles(headers []*multipart.FileHeader) ([]diagnosis.Evidence, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	out := make([]diagnosis.Evidence, 0, len(headers))
	for _, fh := range headers {
		if h.maxFileBytes > 0 && fh.Size > h.maxFileBytes {
			return nil, errors.New(errors.ErrCodeEvidenceTooLarge, "evidence file exceeds size limit").WithDetail(fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read uploaded file").WithDetail(fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read uploaded file").WithDetail(fh.Filename)
		}
		out = append(out, diagnosis.Evidence{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
