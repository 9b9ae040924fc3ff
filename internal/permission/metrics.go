package permission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matrixBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantops_permission_matrix_builds_total",
			Help: "Number of permission matrices built, by input source.",
		},
		[]string{"source"},
	)

	recordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantops_permission_records_skipped_total",
			Help: "Number of raw permission records or entries skipped while building a matrix.",
		},
		[]string{"reason"},
	)

	permissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantops_permission_checks_total",
			Help: "Number of permission checks evaluated through the HTTP layer.",
		},
		[]string{"module", "result"},
	)
)

// ObserveCheck records the outcome of an enforced permission check.
func ObserveCheck(module string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	if _, ok := ParseModule(module); !ok {
		module = "unknown"
	}
	permissionChecks.WithLabelValues(module, result).Inc()
}
