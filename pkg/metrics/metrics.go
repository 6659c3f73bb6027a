package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's prometheus instruments.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	TriggersRegistered prometheus.Counter
	TriggersFired      prometheus.Counter
	TriggersPurged     prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Schedule requests handled, by status code",
		}, []string{"status"}),
		TriggersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_registered_total",
			Help:      "One-shot check-in triggers registered",
		}),
		TriggersFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_fired_total",
			Help:      "One-shot check-in triggers fired by the dispatcher",
		}),
		TriggersPurged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_purged_total",
			Help:      "Fired triggers deleted after retention",
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by operation",
		}, []string{"operation"}),
	}
}
