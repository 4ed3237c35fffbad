package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction stage names used as metric labels and span names.
const (
	StageSummarize = "summarize"
	StageConcepts  = "concepts"
	StageQuiz      = "quiz"
)

// Collector holds the Prometheus metrics of one process. Each collector owns
// its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ImportsTotal       *prometheus.CounterVec
	ConceptsExtracted  prometheus.Counter
	QuizzesGenerated   prometheus.Counter
	NodesCreated       prometheus.Counter
	ConnectionsCreated prometheus.Counter
	RecallCompletions  *prometheus.CounterVec

	ExtractionFallbacks *prometheus.CounterVec
	ModelCalls          *prometheus.CounterVec
	ModelDuration       *prometheus.HistogramVec

	JobQueueDepth prometheus.Gauge
}

// NewCollector creates and registers every metric under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imports by lifecycle status",
		}, []string{"status"}),
		ConceptsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concepts_extracted_total",
			Help:      "Concepts stored by the pipeline",
		}),
		QuizzesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_generated_total",
			Help:      "Quizzes stored by the pipeline",
		}),
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_nodes_created_total",
			Help:      "Knowledge nodes created from concepts",
		}),
		ConnectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_connections_created_total",
			Help:      "Connections added to new nodes during linking",
		}),
		RecallCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_completions_total",
			Help:      "Completed recall sessions by outcome",
		}, []string{"outcome"}),
		ExtractionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_fallbacks_total",
			Help:      "Extraction stages that used the deterministic fallback",
		}, []string{"stage", "reason"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language model calls by stage and result",
		}, []string{"stage", "result"}),
		ModelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Language model call latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"stage"}),
		JobQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_queue_depth",
			Help:      "Import jobs waiting for a worker",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.ImportsTotal, c.ConceptsExtracted, c.QuizzesGenerated,
		c.NodesCreated, c.ConnectionsCreated, c.RecallCompletions,
		c.ExtractionFallbacks, c.ModelCalls, c.ModelDuration,
		c.JobQueueDepth,
	)
	return c
}

// RecordFallback counts a stage that fell back. Safe on a nil collector.
func (c *Collector) RecordFallback(stage, reason string) {
	if c == nil {
		return
	}
	c.ExtractionFallbacks.WithLabelValues(stage, reason).Inc()
}

// RecordModelCall records the outcome and latency of one model call.
func (c *Collector) RecordModelCall(stage string, err error, d time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.ModelCalls.WithLabelValues(stage, result).Inc()
	c.ModelDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordImport counts an import reaching status.
func (c *Collector) RecordImport(status string) {
	if c == nil {
		return
	}
	c.ImportsTotal.WithLabelValues(status).Inc()
}

// RecordExtraction counts concepts and quizzes stored for one conversation.
func (c *Collector) RecordExtraction(concepts, quizzes int) {
	if c == nil {
		return
	}
	c.ConceptsExtracted.Add(float64(concepts))
	c.QuizzesGenerated.Add(float64(quizzes))
}

// RecordIntegration counts the output of one integrated concept.
func (c *Collector) RecordIntegration(connections int) {
	if c == nil {
		return
	}
	c.NodesCreated.Inc()
	c.ConnectionsCreated.Add(float64(connections))
}

// RecordRecallCompletion counts a completed session.
func (c *Collector) RecordRecallCompletion(success bool) {
	if c == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.RecallCompletions.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetQueueDepth reports how many jobs wait for a worker.
func (c *Collector) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.JobQueueDepth.Set(float64(n))
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
