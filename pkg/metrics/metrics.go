package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch related metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	RecordsCreated   prometheus.Counter
	PushSent         prometheus.Counter
	PushFailed       prometheus.Counter
	InvalidTokens    prometheus.Counter

	SchedulerTicks  *prometheus.CounterVec
	HeartbeatChecks *prometheus.CounterVec

	TokensRegistered   prometheus.Counter
	RetentionDeletions *prometheus.CounterVec
}

// New creates application metrics under the given namespace. Collectors are
// returned unregistered so callers (and tests) control registration.
func New(namespace string) *Metrics {
	return &Metrics{
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of notification dispatch attempts",
		}, []string{"status"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		RecordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_notifications_created_total",
			Help:      "Total number of per-user delivery records created",
		}),
		PushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_sent_total",
			Help:      "Total number of push messages accepted by the gateway",
		}),
		PushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failed_total",
			Help:      "Total number of push messages that failed delivery",
		}),
		InvalidTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_tokens_total",
			Help:      "Total number of device tokens reported invalid by the gateway",
		}),
		SchedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks by outcome",
		}, []string{"result"}),
		HeartbeatChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeat_checks_total",
			Help:      "Heartbeat polls by caller kind",
		}, []string{"caller"}),
		TokensRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_tokens_registered_total",
			Help:      "Total number of device token registrations",
		}),
		RetentionDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deletions_total",
			Help:      "Rows removed by retention cleanup, by resource",
		}, []string{"resource"}),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.DispatchesTotal,
		m.DispatchDuration,
		m.RecordsCreated,
		m.PushSent,
		m.PushFailed,
		m.InvalidTokens,
		m.SchedulerTicks,
		m.HeartbeatChecks,
		m.TokensRegistered,
		m.RetentionDeletions,
	)
}
