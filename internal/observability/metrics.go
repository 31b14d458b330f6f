package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the agent system. Each
// instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Queries  *prometheus.CounterVec
	Steps    *prometheus.CounterVec
	LLMCalls *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Name:      "queries_total",
			Help:      "Queries processed, by terminal status.",
		}, []string{"status"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Name:      "plan_steps_total",
			Help:      "Plan steps dispatched, by agent and result status.",
		}, []string{"agent", "status"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Name:      "llm_calls_total",
			Help:      "Language model calls, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.Queries, m.Steps, m.LLMCalls)
	return m
}

func (m *Metrics) ObserveQuery(status string) {
	if m != nil {
		m.Queries.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveStep(agent, status string) {
	if m != nil {
		m.Steps.WithLabelValues(agent, status).Inc()
	}
}

func (m *Metrics) ObserveLLM(failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.LLMCalls.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
