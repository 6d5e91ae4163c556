// Package observability exposes Prometheus metrics and OpenTelemetry tracing
// for sessions and the HTTP layer.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/skillpath/internal/mastery"
)

const namespace = "skillpath"

// Metrics holds every collector, registered on its own registry so tests
// can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	sessionsInitialized *prometheus.CounterVec
	questionsServed     *prometheus.CounterVec
	answers             *prometheus.CounterVec
	sessionsComplete    prometheus.Counter
	predictorFailures   prometheus.Counter
	mastery             *prometheus.GaugeVec
	httpDuration        *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsInitialized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_initialized_total",
			Help:      "Sessions initialized, by kind (initialize or reset).",
		}, []string{"kind"}),
		questionsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_served_total",
			Help:      "Questions served, by skill.",
		}, []string{"skill"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers graded, by skill and verdict.",
		}, []string{"skill", "verdict"}),
		sessionsComplete: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_complete_total",
			Help:      "Sessions that ran out of questions.",
		}),
		predictorFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictor_failures_total",
			Help:      "Initializations that failed because the predictor was unavailable.",
		}),
		mastery: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mastery",
			Help:      "Current mastery probability per learner and skill.",
		}, []string{"learner", "skill"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionInitialized(kind string) {
	m.sessionsInitialized.WithLabelValues(kind).Inc()
}

func (m *Metrics) QuestionServed(skill string) {
	m.questionsServed.WithLabelValues(skill).Inc()
}

func (m *Metrics) AnswerApplied(skill string, correct bool) {
	verdict := "incorrect"
	if correct {
		verdict = "correct"
	}
	m.answers.WithLabelValues(skill, verdict).Inc()
}

func (m *Metrics) SessionComplete() { m.sessionsComplete.Inc() }

func (m *Metrics) PredictorFailed() { m.predictorFailures.Inc() }

// Standings sets the mastery gauge for every entry.
func (m *Metrics) Standings(learner string, entries []mastery.Entry) {
	for _, e := range entries {
		m.mastery.WithLabelValues(learner, e.Skill).Set(e.Probability)
	}
}

// Forget drops the mastery series of an ended session.
func (m *Metrics) Forget(learner string, skills []string) {
	for _, s := range skills {
		m.mastery.DeleteLabelValues(learner, s)
	}
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(route, method, status string, seconds float64) {
	m.httpDuration.WithLabelValues(route, method, status).Observe(seconds)
}
