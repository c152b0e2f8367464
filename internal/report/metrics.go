package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitvibe_client_reports_submitted_total",
		Help: "Report submissions by target type and outcome",
	},
	[]string{"type", "outcome"},
)
