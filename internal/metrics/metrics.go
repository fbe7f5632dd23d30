// Package metrics exposes prometheus collectors for active-learning runs.
// All methods are safe on a nil *Metrics so callers can leave metrics off.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plastering"

type Metrics struct {
	registry *prometheus.Registry

	trainingSrcids   *prometheus.GaugeVec
	iterations       *prometheus.CounterVec
	f1               *prometheus.GaugeVec
	macroF1          *prometheus.GaugeVec
	priorCorrections *prometheus.CounterVec
	engineCalls      *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		trainingSrcids: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_srcids",
			Help:      "Number of srcids whose labels the classifier has consumed.",
		}, []string{"framework"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learning_iterations_total",
			Help:      "Completed active-learning iterations.",
		}, []string{"framework"}),
		f1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "f1",
			Help:      "Point tagset F1 of the latest evaluation.",
		}, []string{"framework"}),
		macroF1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "macro_f1",
			Help:      "Point tagset macro F1 of the latest evaluation.",
		}, []string{"framework"}),
		priorCorrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prior_corrections_total",
			Help:      "Predictions overwritten by a high-confidence prior.",
		}, []string{"framework"}),
		engineCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_call_duration_seconds",
			Help:      "Latency of classifier engine calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"engine", "method"}),
	}

	m.registry.MustRegister(
		m.trainingSrcids,
		m.iterations,
		m.f1,
		m.macroF1,
		m.priorCorrections,
		m.engineCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetTrainingSize(framework string, n int) {
	if m == nil {
		return
	}
	m.trainingSrcids.WithLabelValues(framework).Set(float64(n))
}

func (m *Metrics) IncIteration(framework string) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(framework).Inc()
}

func (m *Metrics) SetScores(framework string, f1, macroF1 float64) {
	if m == nil {
		return
	}
	m.f1.WithLabelValues(framework).Set(f1)
	m.macroF1.WithLabelValues(framework).Set(macroF1)
}

func (m *Metrics) AddPriorCorrections(framework string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.priorCorrections.WithLabelValues(framework).Add(float64(n))
}

func (m *Metrics) ObserveEngineCall(engine, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.engineCalls.WithLabelValues(engine, method).Observe(d.Seconds())
}
