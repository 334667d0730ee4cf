package civic

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the report subsystem.
type Metrics struct {
	ReportsCreated  prometheus.Counter
	AnalysesApplied *prometheus.CounterVec
	StatusUpdates   *prometheus.CounterVec
	UpvotesTotal    prometheus.Counter
	CommentsTotal   prometheus.Counter
}

// NewMetrics registers and returns report metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civiclens_reports_created_total",
			Help: "Total reports created.",
		}),
		AnalysesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_report_analyses_applied_total",
			Help: "AI analyses applied to reports, by derived priority.",
		}, []string{"priority"}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civiclens_report_status_updates_total",
			Help: "Report status changes, by new status.",
		}, []string{"status"}),
		UpvotesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civiclens_report_upvotes_total",
			Help: "Total report upvotes recorded.",
		}),
		CommentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civiclens_report_comments_total",
			Help: "Total report comments appended.",
		}),
	}
	reg.MustRegister(
		m.ReportsCreated,
		m.AnalysesApplied,
		m.StatusUpdates,
		m.UpvotesTotal,
		m.CommentsTotal,
	)
	return m
}
