package iot

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the sensor subsystem.
type Metrics struct {
	ReadingsTotal *prometheus.CounterVec
	AlertsTotal   prometheus.Counter
}

// NewMetrics registers and returns sensor metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_sensor_readings_total",
			Help: "Sensor readings ingested, by sensor type and derived status.",
		}, []string{"type", "status"}),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civiclens_sensor_alerts_total",
			Help: "Critical readings that triggered an alert fan-out.",
		}),
	}
	reg.MustRegister(m.ReadingsTotal, m.AlertsTotal)
	return m
}
