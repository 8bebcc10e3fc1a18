package store

import "github.com/prometheus/client_golang/prometheus"

var (
	actionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "joseki",
			Subsystem: "store",
			Name:      "actions_total",
			Help:      "Total number of actions dispatched to stores",
		},
		[]string{"type"},
	)

	notificationsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "joseki",
			Subsystem: "store",
			Name:      "notifications_total",
			Help:      "Total number of store notifications emitted",
		},
		[]string{"notification"},
	)
)

func init() {
	prometheus.MustRegister(actionsDispatched, notificationsEmitted)
}
