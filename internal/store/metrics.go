package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fitvibe_client_mutations_total",
		Help: "Store mutations by action and outcome",
	},
	[]string{"action", "outcome"},
)

func observe(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	mutationsTotal.WithLabelValues(action, outcome).Inc()
}
