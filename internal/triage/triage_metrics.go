package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TasksTotal   *prometheus.CounterVec
	TaskDuration prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_triage_tasks_total",
			Help: "Triage tasks run, by outcome.",
		}, []string{"outcome"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "civiclens_triage_task_duration_seconds",
			Help:    "Duration of triage tasks in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}
	reg.MustRegister(m.TasksTotal, m.TaskDuration)
	return m
}
