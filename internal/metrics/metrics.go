// Package metrics exposes Prometheus metrics for analysis runs, queries and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
)

const namespace = "bookgraph"

// Metrics holds all collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	analyses           *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	chunksExtracted    prometheus.Counter
	extractionFailures prometheus.Counter
	indexFailures      prometheus.Counter
	indexedChunks      prometheus.Counter
	queries            *prometheus.CounterVec
	modelTokens        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analyses_total",
			Help:      "Finished analysis runs by final status",
		}, []string{"status"}),

		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of analysis runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),

		chunksExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_extracted_total",
			Help:      "Chunks sent to the extraction model",
		}),

		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extraction_failures_total",
			Help:      "Chunk extractions that fell back to an empty result",
		}),

		indexFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "build_failures_total",
			Help:      "Index builds that failed and were skipped",
		}),

		indexedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "chunks_total",
			Help:      "Chunks written to the vector store",
		}),

		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Answered questions by outcome",
		}, []string{"outcome"}), // answered, not_indexed, error

		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "tokens_total",
			Help:      "Model tokens used by analysis runs",
		}, []string{"kind"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyses,
		m.analysisDuration,
		m.chunksExtracted,
		m.extractionFailures,
		m.indexFailures,
		m.indexedChunks,
		m.queries,
		m.modelTokens,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AnalysisFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Metrics) ChunksExtracted(n int) {
	if m == nil {
		return
	}
	m.chunksExtracted.Add(float64(n))
}

func (m *Metrics) ExtractionFailed() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

func (m *Metrics) IndexBuilt(chunks int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.indexFailures.Inc()
		return
	}
	m.indexedChunks.Add(float64(chunks))
}

func (m *Metrics) QueryAnswered(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// ModelUsage adds the token counts of one run.
func (m *Metrics) ModelUsage(usage ai.ModelMetrics) {
	if m == nil {
		return
	}
	m.modelTokens.WithLabelValues("input").Add(float64(usage.InputTokens))
	m.modelTokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
}

func (m *Metrics) HTTPRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
