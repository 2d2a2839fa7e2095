package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.AnalysisFinished("completed", 3*time.Second)
	m.AnalysisFinished("failed", time.Second)
	m.AnalysisFinished("completed", time.Second)
	m.ChunksExtracted(4)
	m.ExtractionFailed()
	m.IndexBuilt(12, nil)
	m.IndexBuilt(0, errors.New("embedding down"))
	m.QueryAnswered("not_indexed")
	m.ModelUsage(ai.ModelMetrics{InputTokens: 100, OutputTokens: 20})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.chunksExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionFailures))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.indexedChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("not_indexed")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.modelTokens.WithLabelValues("input")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AnalysisFinished("completed", time.Second)
		m.ExtractionFailed()
		m.HTTPRequest("GET", "/books", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.HTTPRequest("POST", "/query", 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bookgraph_http_requests_total{code="200",method="POST",route="/query"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
