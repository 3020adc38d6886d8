// Package metrics declares the Prometheus collectors for the credential core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of bearer tokens issued.",
		},
		[]string{"result"},
	)

	SignInsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_signins_total",
			Help: "Total number of sign-in attempts.",
		},
		[]string{"result"},
	)

	ThrottleBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_throttle_blocks_total",
			Help: "Total number of login attempts rejected by the throttle.",
		},
	)

	ValidationCodesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_validation_codes_issued_total",
			Help: "Total number of one-time validation codes issued.",
		},
		[]string{"purpose"},
	)

	ReaperDeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_reaper_deletions_total",
			Help: "Total number of rows deleted by the reaper.",
		},
		[]string{"entity"},
	)
)

// MustRegister registers all collectors with the default registry.
// Call once at process startup.
func MustRegister() {
	prometheus.MustRegister(
		TokensIssuedTotal,
		SignInsTotal,
		ThrottleBlocksTotal,
		ValidationCodesIssuedTotal,
		ReaperDeletionsTotal,
	)
}
