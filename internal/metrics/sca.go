package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SCA engine Prometheus metrics. Defined in a standalone package to avoid
// import cycles between the stage handlers and the facades.

var (
	StageTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sca_stage_transitions_total",
		Help: "Transiciones de estado por approach y resultado",
	}, []string{"approach", "from", "to"})

	ConnectorLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sca_connector_latency_ms",
		Help:    "Latencia de llamadas al SCA connector en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"operation"})

	ConfirmationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sca_confirmation_outcomes_total",
		Help: "Resultados de validación de confirmation code por modo",
	}, []string{"mode", "outcome"})

	FailedAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sca_failed_credential_attempts_total",
		Help: "Intentos de autenticación de PSU rechazados",
	})
)

// RegisterSCA registers the SCA metrics on the given registry (or default if nil).
func RegisterSCA(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{StageTransitions, ConnectorLatency, ConfirmationOutcomes, FailedAttempts} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
