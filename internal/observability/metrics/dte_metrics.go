// Package metrics expone las métricas Prometheus del pipeline de transmisión DTE.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados de un envío.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Config etiquetas constantes.
type Config struct {
	ServiceName string
	Environment string
}

// DTEMetrics implementa billing.PipelineObserver e infradte.RequestObserver.
type DTEMetrics struct {
	transitions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	retries     *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewDTEMetrics registra las métricas en registerer (DefaultRegisterer si es nil).
func NewDTEMetrics(registerer prometheus.Registerer, cfg Config) *DTEMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "facturacion-dte"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &DTEMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dte_pipeline_transitions_total",
			Help:        "Transiciones del pipeline de transmisión por estado.",
			ConstLabels: constLabels,
		}, []string{"state"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dte_submissions_total",
			Help:        "Envíos terminados por resultado.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dte_transport_retries_total",
			Help:        "Reintentos del cliente de recepción por ruta.",
			ConstLabels: constLabels,
		}, []string{"path"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dte_transport_requests_total",
			Help:        "Peticiones al servicio de recepción por ruta y código HTTP (0 = sin respuesta).",
			ConstLabels: constLabels,
		}, []string{"path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "dte_transport_request_duration_seconds",
			Help:        "Latencia de las peticiones al servicio de recepción.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
			ConstLabels: constLabels,
		}, []string{"path"}),
	}
	registerer.MustRegister(m.transitions, m.outcomes, m.retries, m.requests, m.latency)
	return m
}

func (m *DTEMetrics) ObserveTransition(state string, _ int) {
	m.transitions.WithLabelValues(state).Inc()
}

func (m *DTEMetrics) ObserveOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *DTEMetrics) ObserveRetry(path string) {
	m.retries.WithLabelValues(path).Inc()
}

func (m *DTEMetrics) ObserveRequest(path string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path).Observe(elapsed.Seconds())
}
