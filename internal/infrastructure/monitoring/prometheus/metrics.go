package prometheus

import (
	"strconv"
	"time"
)

// PipelineMetrics holds the metric families recorded by the diagnosis
// pipeline and its adapters.
type PipelineMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Diagnosis
	DiagnosesTotal    CounterVec
	DiagnosisDuration HistogramVec
	EvidenceTotal     CounterVec

	// External engines (OCR, transcription, diarization, LLM)
	EngineCallsTotal   CounterVec
	EngineCallDuration HistogramVec

	// Precedent search
	SearchDuration   HistogramVec
	SearchCandidates HistogramVec

	// Infrastructure
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	JobsTotal        CounterVec
	JobDuration      HistogramVec
}

var (
	DefaultHTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDiagnosisDurationBuckets = []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120, 300}
	DefaultEngineDurationBuckets    = []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60}
	DefaultSearchDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultCandidateBuckets         = []float64{0, 1, 2, 3, 5, 10, 20, 50}
)

// NewPipelineMetrics registers every pipeline family on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	if collector == nil {
		collector = NewNoopCollector()
	}
	return &PipelineMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		DiagnosesTotal:    collector.RegisterCounter("diagnoses_total", "Completed diagnoses by outcome status", "status"),
		DiagnosisDuration: collector.RegisterHistogram("diagnosis_duration_seconds", "End-to-end diagnosis latency", DefaultDiagnosisDurationBuckets, "status"),
		EvidenceTotal:     collector.RegisterCounter("evidence_items_total", "Evidence items processed", "kind", "outcome"),

		EngineCallsTotal:   collector.RegisterCounter("engine_calls_total", "Calls to external engines", "engine", "outcome"),
		EngineCallDuration: collector.RegisterHistogram("engine_call_duration_seconds", "External engine latency", DefaultEngineDurationBuckets, "engine"),

		SearchDuration:   collector.RegisterHistogram("precedent_search_duration_seconds", "Precedent search latency", DefaultSearchDurationBuckets, "backend", "outcome"),
		SearchCandidates: collector.RegisterHistogram("precedent_search_candidates", "Candidates returned per search", DefaultCandidateBuckets, "backend"),

		CacheHitsTotal:   collector.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal: collector.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		JobsTotal:        collector.RegisterCounter("jobs_total", "Queued diagnosis jobs handled", "outcome"),
		JobDuration:      collector.RegisterHistogram("job_duration_seconds", "Queued job handling latency", DefaultDiagnosisDurationBuckets, "outcome"),
	}
}

// RecordHTTPRequest records one served request.
func (m *PipelineMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDiagnosis records a finished diagnosis under its outcome status.
func (m *PipelineMetrics) RecordDiagnosis(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DiagnosesTotal.WithLabelValues(status).Inc()
	m.DiagnosisDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordEvidence counts one evidence item of kind ("text", "image", "audio").
func (m *PipelineMetrics) RecordEvidence(kind, outcome string) {
	if m == nil {
		return
	}
	m.EvidenceTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *PipelineMetrics) RecordEngineCall(engine, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EngineCallsTotal.WithLabelValues(engine, outcome).Inc()
	m.EngineCallDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordSearch(backend, outcome string, candidates int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(backend, outcome).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.SearchCandidates.WithLabelValues(backend).Observe(float64(candidates))
	}
}

func (m *PipelineMetrics) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *PipelineMetrics) RecordJob(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Inc()
	m.JobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
