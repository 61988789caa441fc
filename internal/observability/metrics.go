package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agepredict"

// Metrics holds the prometheus collectors for the API and the prediction flow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	predictions       *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec

	sessionsStarted  prometheus.Counter
	sessionsFinished prometheus.Counter
	sessionsResets   prometheus.Counter
	sessionsActive   prometheus.Gauge

	questionnaires *prometheus.CounterVec
	eventFailures  *prometheus.CounterVec
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MustNewMetrics registers every collector on reg and panics on conflicts.
func MustNewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "predictions_total",
			Help:      "Modality submissions by outcome.",
		}, []string{"modality", "outcome"}),
		predictionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "prediction_duration_seconds",
			Help:      "Latency of calls to the prediction service.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"modality"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "sessions_started_total",
			Help:      "Flows started with a modality selection.",
		}),
		sessionsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "sessions_finished_total",
			Help:      "Flows that reached the result page.",
		}),
		sessionsResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "sessions_reset_total",
			Help:      "Session resets.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "sessions_active",
			Help:      "Sessions held in the registry.",
		}),
		questionnaires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questionnaire",
			Name:      "completed_total",
			Help:      "Completed questionnaires by discovered category.",
		}, []string{"category"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Flow events that could not be published.",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.predictions, m.predictionLatency,
		m.sessionsStarted, m.sessionsFinished, m.sessionsResets, m.sessionsActive,
		m.questionnaires, m.eventFailures,
	)
	return m
}

// Handler serves the prometheus text exposition for the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObservePrediction records one adapter call. outcome is "ok", "failed",
// "stale" or "rejected".
func (m *Metrics) ObservePrediction(modality, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(modality, outcome).Inc()
	if dur > 0 {
		m.predictionLatency.WithLabelValues(modality).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) IncSessionFinished() {
	if m == nil {
		return
	}
	m.sessionsFinished.Inc()
}

func (m *Metrics) IncSessionReset() {
	if m == nil {
		return
	}
	m.sessionsResets.Inc()
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) IncQuestionnaireCompleted(category string) {
	if m == nil {
		return
	}
	m.questionnaires.WithLabelValues(category).Inc()
}

func (m *Metrics) IncEventPublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.eventFailures.WithLabelValues(eventType).Inc()
}
