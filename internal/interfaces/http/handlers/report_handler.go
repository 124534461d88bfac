package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/storage/minio"
	"github.com/turtacn/LawLens/pkg/errors"
)

const defaultLinkExpiry = 15 * time.Minute

// ReportLister pages through stored diagnoses.
type ReportLister interface {
	List(ctx context.Context, limit, offset int) ([]repositories.DiagnosisSummary, error)
}

// ReportLinker issues time-limited download links for rendered reports.
type ReportLinker interface {
	ReportURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ReportHandler serves stored diagnosis reports. Lister and Linker are
// optional; their routes answer 501 without them.
type ReportHandler struct {
	svc    diagnosis.Service
	lister ReportLister
	linker ReportLinker
	expiry time.Duration
	logger logging.Logger
}

func NewReportHandler(svc diagnosis.Service, lister ReportLister, linker ReportLinker, log logging.Logger) *ReportHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ReportHandler{
		svc:    svc,
		lister: lister,
		linker: linker,
		expiry: defaultLinkExpiry,
		logger: log.Named("report_handler"),
	}
}

// Get handles GET /api/v1/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type listResponse struct {
	Items  []repositories.DiagnosisSummary `json:"items"`
	Limit  int                             `json:"limit"`
	Offset int                             `json:"offset"`
}

// List handles GET /api/v1/reports?limit=&offset=.
func (h *ReportHandler) List(c *gin.Context) {
	if h.lister == nil {
		writeAppError(c, errors.New(errors.ErrCodeNotImplemented, "report history is not configured"))
		return
	}
	limit, offset := parsePagination(c)
	items, err := h.lister.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Limit: limit, Offset: offset})
}

type downloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download handles GET /api/v1/reports/:id/download. The report must exist;
// the link points at the JSON object the worker uploaded for it.
func (h *ReportHandler) Download(c *gin.Context) {
	if h.linker == nil {
		writeAppError(c, errors.New(errors.ErrCodeNotImplemented, "report downloads are not configured"))
		return
	}
	id := c.Param("id")
	if _, err := h.svc.GetReport(c.Request.Context(), id); err != nil {
		writeAppError(c, err)
		return
	}
	url, err := h.linker.ReportURL(c.Request.Context(), minio.ReportKey(id), h.expiry)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, downloadResponse{URL: url, ExpiresAt: time.Now().Add(h.expiry).UTC()})
}
