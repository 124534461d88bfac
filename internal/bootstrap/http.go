package bootstrap

import (
	"github.com/gin-gonic/gin"

	apihttp "github.com/turtacn/LawLens/internal/interfaces/http"
	"github.com/turtacn/LawLens/internal/interfaces/http/handlers"
)

// Router builds the API route tree over the app's service. Report listing
// needs Postgres and download links need MinIO; without them those routes
// answer 501.
func (a *App) Router(version string) *gin.Engine {
	cfg := a.Config

	var lister handlers.ReportLister
	if a.Reports != nil {
		lister = a.Reports
	}
	var linker handlers.ReportLinker
	if a.Store != nil {
		linker = a.Store
	}

	return apihttp.NewRouter(apihttp.RouterConfig{
		DiagnosisHandler: handlers.NewDiagnosisHandler(a.Service, cfg.Pipeline.MaxEvidenceBytes,
			cfg.Pipeline.YThreshold, cfg.Pipeline.SpeakerPrefix, a.Logger),
		ReportHandler:    handlers.NewReportHandler(a.Service, lister, linker, a.Logger),
		HealthHandler:    handlers.NewHealthHandler(version, a.HealthCheckers()...),
		Mode:             cfg.Server.Mode,
		MaxBodySize:      cfg.Server.MaxBodySize,
		CORSOrigins:      cfg.Server.CORSOrigins,
		RateLimit:        cfg.Server.RateLimit,
		RateBurst:        cfg.Server.RateBurst,
		Logger:           a.Logger,
		Metrics:          a.Metrics,
		MetricsCollector: a.Collector,
	})
}
