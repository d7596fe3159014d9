// Package metrics exposes Prometheus instrumentation for the prediction
// pipeline and the HTTP surface.
//
// Metrics exposed:
//   - belens_http_requests_total: Counter of HTTP requests by route and status
//   - belens_pipeline_stage_seconds: Histogram of per-stage durations
//   - belens_pipeline_failures_total: Counter of stage failures by stage and kind
//   - belens_model_loaded: Gauge set to 1 once the model handle is resident
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	StageSeconds  *prometheus.HistogramVec
	FailuresTotal *prometheus.CounterVec
	ModelLoaded   prometheus.Gauge
}

// New creates and registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "belens_http_requests_total",
			Help: "HTTP requests served, by route and status code",
		}, []string{"route", "status"}),

		StageSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "belens_pipeline_stage_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),

		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "belens_pipeline_failures_total",
			Help: "Pipeline stage failures, by stage and error kind",
		}, []string{"stage", "kind"}),

		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "belens_model_loaded",
			Help: "Whether the classification model handle is resident",
		}),
	}
}

// ObserveStage records a completed stage execution. Nil receivers are
// allowed so instrumentation stays optional in tests.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// CountFailure records a stage failure.
func (m *Metrics) CountFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(stage, kind).Inc()
}

// SetModelLoaded flips the model residency gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.ModelLoaded.Set(1)
	} else {
		m.ModelLoaded.Set(0)
	}
}

// CountRequest records a served HTTP request.
func (m *Metrics) CountRequest(route, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}
