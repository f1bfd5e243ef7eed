// Package metrics exposes Prometheus instrumentation for node processing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samvad-hq/samvad-profile-enricher/internal/apperr"
	"github.com/samvad-hq/samvad-profile-enricher/internal/domain"
	"github.com/samvad-hq/samvad-profile-enricher/pkg/providers"
)

const namespace = "enricher"

// Metrics holds all Prometheus collectors of the enricher.
type Metrics struct {
	NodesProcessed   *prometheus.CounterVec
	NodeDuration     prometheus.Histogram
	Retries          *prometheus.CounterVec
	RetryDelay       prometheus.Histogram
	QualityScores    *prometheus.HistogramVec
	ProviderAttempts *prometheus.CounterVec
	Errors           *prometheus.CounterVec
	BatchItems       *prometheus.CounterVec
	BatchFailures    *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		NodesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_processed_total",
			Help:      "Nodes processed, by outcome.",
		}, []string{"outcome"}),
		NodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Wall time spent processing one node.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retry attempts scheduled, by reason.",
		}, []string{"reason"}),
		RetryDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay before a retry.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		QualityScores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Quality score of transformed profiles, by provider.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"provider"}),
		ProviderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider fetch attempts in the fallback chain, by provider and result.",
		}, []string{"provider", "result"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Structured errors handled, by code and category.",
		}, []string{"code", "category"}),
		BatchItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Jobs received in batches, by source.",
		}, []string{"source"}),
		BatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Jobs that failed within batches, by source.",
		}, []string{"source"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time per batch, by source.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"source"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RetryScheduled(reason string, delay time.Duration) {
	m.Retries.WithLabelValues(reason).Inc()
	m.RetryDelay.Observe(delay.Seconds())
}

func (m *Metrics) QualityScored(provider string, score int) {
	m.QualityScores.WithLabelValues(provider).Observe(float64(score))
}

func (m *Metrics) NodeProcessed(out domain.Outcome, elapsed time.Duration) {
	m.NodesProcessed.WithLabelValues(out.Status()).Inc()
	m.NodeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) BatchCompleted(source string, processed, failed int, elapsed time.Duration) {
	m.BatchItems.WithLabelValues(source).Add(float64(processed))
	m.BatchFailures.WithLabelValues(source).Add(float64(failed))
	m.BatchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ProviderAttempt counts one step of the fallback chain.
func (m *Metrics) ProviderAttempt(a providers.Attempt) {
	m.ProviderAttempts.WithLabelValues(a.Provider, a.Outcome).Inc()
}

// StructuredError counts a handled error.
func (m *Metrics) StructuredError(se *apperr.StructuredError) {
	m.Errors.WithLabelValues(string(se.Code), string(se.Category)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
