package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the engine's prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Collector struct {
	registry       *prometheus.Registry
	sessions       *prometheus.CounterVec
	activeRuns     prometheus.Gauge
	stageDuration  *prometheus.HistogramVec
	scorerFailures *prometheus.CounterVec
	generatorCalls *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "readiness",
			Name:      "sessions_total",
			Help:      "Assessment sessions by final status.",
		}, []string{"status"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "readiness",
			Name:      "active_runs",
			Help:      "Pipelines currently running.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "readiness",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		scorerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "readiness",
			Name:      "scorer_failures_total",
			Help:      "Dimension scorer failures.",
		}, []string{"dimension"}),
		generatorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "readiness",
			Name:      "generator_calls_total",
			Help:      "Structured generative calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
	c.registry.MustRegister(
		c.sessions,
		c.activeRuns,
		c.stageDuration,
		c.scorerFailures,
		c.generatorCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	c.activeRuns.Inc()
}

func (c *Collector) RunFinished(status string) {
	if c == nil {
		return
	}
	c.activeRuns.Dec()
	c.sessions.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) ScorerFailed(dimension string) {
	if c == nil {
		return
	}
	c.scorerFailures.WithLabelValues(dimension).Inc()
}

func (c *Collector) GeneratorCall(stage string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.generatorCalls.WithLabelValues(stage, outcome).Inc()
}
