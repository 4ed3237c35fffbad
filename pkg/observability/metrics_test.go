package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("test")

	c.RecordFallback(StageSummarize, "malformed")
	c.RecordFallback(StageSummarize, "malformed")
	c.RecordModelCall(StageQuiz, errors.New("timeout"), time.Second)
	c.RecordIntegration(3)
	c.RecordRecallCompletion(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ExtractionFallbacks.WithLabelValues(StageSummarize, "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ModelCalls.WithLabelValues(StageQuiz, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NodesCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ConnectionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RecallCompletions.WithLabelValues("success")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("test")
		NewCollector("test")
	})
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordFallback(StageConcepts, "error")
		c.RecordImport("succeeded")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordImport("queued")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_imports_total{status="queued"} 1`)
}
