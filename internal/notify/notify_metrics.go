package notify

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for notification fan-out.
type Metrics struct {
	NotificationsTotal *prometheus.CounterVec
	InsertFailures     prometheus.Counter
}

// NewMetrics registers and returns fan-out metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_notifications_total",
			Help: "Notification records created, by type.",
		}, []string{"type"}),
		InsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civiclens_notification_insert_failures_total",
			Help: "Notification inserts that failed and were skipped.",
		}),
	}
	reg.MustRegister(m.NotificationsTotal, m.InsertFailures)
	return m
}
