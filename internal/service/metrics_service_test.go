package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/practices/:practiceId/evaluate", http.StatusOK, 20*time.Millisecond)
	metrics.RecordEvaluation("BLOCK", time.Millisecond)
	metrics.RecordEvaluation("ALLOW", time.Millisecond)
	metrics.RecordEvaluation("ALLOW", time.Millisecond)
	metrics.RecordFork()
	metrics.RecordTxRetry()
	metrics.RecordInvalidation("deferred")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{
		`rule_evaluations_total{action="ALLOW"} 2`,
		`rule_set_forks_total 1`,
		`db_tx_retries_total 1`,
		`cache_invalidations_total{outcome="deferred"} 1`,
		`http_requests_total{method="POST",path="/api/v1/practices/:practiceId/evaluate",status="200"} 1`,
	} {
		assert.Contains(t, body, name)
	}

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.Evaluations["BLOCK"])
	assert.EqualValues(t, 2, snapshot.Evaluations["ALLOW"])
	assert.EqualValues(t, 1, snapshot.Forks)
	assert.EqualValues(t, 1, snapshot.TxRetries)
	assert.EqualValues(t, 1, snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 0.001)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordEvaluation("BLOCK", time.Millisecond)
	metrics.RecordFork()
	metrics.RecordTxRetry()
	metrics.RecordInvalidation("ok")
	metrics.RecordCacheOperation(true, time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, metrics.Snapshot().Forks)
}
