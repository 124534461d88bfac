// Package http assembles the gin engine and server of the LawLens API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/LawLens/internal/interfaces/http/handlers"
	"github.com/turtacn/LawLens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware settings. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	DiagnosisHandler *handlers.DiagnosisHandler
	ReportHandler    *handlers.ReportHandler
	HealthHandler    *handlers.HealthHandler

	Mode        string // gin mode: debug | release | test
	MaxBodySize int64
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int

	Logger           logging.Logger
	Metrics          *prometheus.PipelineMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	if len(cfg.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.CORSOrigins
		cors.AllowWildcard = true
		r.Use(middleware.CORS(cors))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, middleware.DefaultLoggingConfig()))
	if cfg.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute)
		r.Use(middleware.RateLimit(limiter, "/healthz", "/readyz", "/metrics"))
	}
	if cfg.MaxBodySize > 0 {
		r.MaxMultipartMemory = cfg.MaxBodySize
		r.Use(maxBody(cfg.MaxBodySize))
	}

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerDiagnosisRoutes(api, cfg.DiagnosisHandler)
	registerReportRoutes(api, cfg.ReportHandler)
	return r
}

func registerDiagnosisRoutes(g *gin.RouterGroup, h *handlers.DiagnosisHandler) {
	if h == nil {
		return
	}
	g.POST("/diagnoses", h.Diagnose)
	g.POST("/jobs", h.Submit)
	g.POST("/normalize", h.Normalize)
	g.POST("/lines", h.Lines)
	g.POST("/align", h.Align)
}

func registerReportRoutes(g *gin.RouterGroup, h *handlers.ReportHandler) {
	if h == nil {
		return
	}
	reports := g.Group("/reports")
	reports.GET("", h.List)
	reports.GET("/:id", h.Get)
	reports.GET("/:id/download", h.Download)
}

func maxBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
