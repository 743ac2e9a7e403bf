package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/mailmaint/internal/progress"
)

// Maintenance-related Prometheus metrics. Standalone package to avoid import
// cycles between the sequencer and the HTTP status listener.

var (
	StepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailmaint_steps_total",
		Help: "Transiciones de pasos por plan y estado final",
	}, []string{"plan", "status"})

	PlanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailmaint_plan_duration_seconds",
		Help:    "Duración total del plan en segundos",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"plan", "outcome"})

	PollAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailmaint_quiescence_poll_attempts_total",
		Help: "Intentos de poll de quiescencia",
	})
)

// Register registra las métricas en el registry dado (o el default si es nil).
// Tolera AlreadyRegisteredError para permitir múltiples runs en proceso.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{StepsTotal, PlanDuration, PollAttempts} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Sink adapta las métricas al stream de progreso del sequencer.
type Sink struct{}

func (Sink) Emit(ev progress.Event) {
	switch ev.Status {
	case progress.StatusRunning:
		// transición de entrada, no cuenta como resultado
	case progress.StatusWaiting:
		PollAttempts.Inc()
	default:
		StepsTotal.WithLabelValues(ev.Plan, string(ev.Status)).Inc()
	}
}

// ObservePlan registra la duración/outcome de un plan completo.
func ObservePlan(plan string, ok bool, took time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	PlanDuration.WithLabelValues(plan, outcome).Observe(took.Seconds())
}
