package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelineMetrics(t *testing.T) (*PipelineMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	m := NewPipelineMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordHTTPRequest("POST", "/api/v1/diagnoses", 201, 120*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/diagnoses",status_code="201"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/diagnoses"} 1`)
}

func TestRecordDiagnosis(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordDiagnosis("conviction_found", 2*time.Second)
	m.RecordDiagnosis("conviction_found", 3*time.Second)
	m.RecordDiagnosis("no_precedent", time.Second)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_diagnoses_total{status="conviction_found"} 2`)
	assert.Contains(t, out, `test_unit_diagnoses_total{status="no_precedent"} 1`)
	assert.Contains(t, out, `test_unit_diagnosis_duration_seconds_sum{status="conviction_found"} 5`)
}

func TestRecordEvidenceAndEngine(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordEvidence("image", OutcomeSuccess)
	m.RecordEngineCall("vision", Outcome(errors.New("quota")), 500*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_evidence_items_total{kind="image",outcome="success"} 1`)
	assert.Contains(t, out, `test_unit_engine_calls_total{engine="vision",outcome="failure"} 1`)
	assert.Contains(t, out, `test_unit_engine_call_duration_seconds_count{engine="vision"} 1`)
}

func TestRecordSearch_CandidatesOnlyOnSuccess(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordSearch("memory", OutcomeSuccess, 7, 10*time.Millisecond)
	m.RecordSearch("memory", OutcomeFailure, 0, 10*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_precedent_search_candidates_sum{backend="memory"} 7`)
	assert.Contains(t, out, `test_unit_precedent_search_candidates_count{backend="memory"} 1`)
	assert.Contains(t, out, `test_unit_precedent_search_duration_seconds_count{backend="memory",outcome="failure"} 1`)
}

func TestRecordCache(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordCache("diagnosis", true)
	m.RecordCache("diagnosis", false)
	m.RecordCache("diagnosis", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="diagnosis"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="diagnosis"} 2`)
}

func TestRecordJob(t *testing.T) {
	m, c := newTestPipelineMetrics(t)
	m.RecordJob(OutcomeSkipped, time.Millisecond)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_jobs_total{outcome="skipped"} 1`)
}

func TestNilPipelineMetrics_NoPanic(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, 0)
		m.RecordDiagnosis("warning", 0)
		m.RecordEvidence("text", OutcomeSuccess)
		m.RecordEngineCall("gemini", OutcomeSuccess, 0)
		m.RecordSearch("milvus", OutcomeSuccess, 1, 0)
		m.RecordCache("x", true)
		m.RecordJob(OutcomeSuccess, 0)
	})
}

func TestNewPipelineMetrics_NilCollector(t *testing.T) {
	m := NewPipelineMetrics(nil)
	require.NotNil(t, m)
	assert.NotPanics(t, func() { m.RecordDiagnosis("warning", time.Second) })
}
