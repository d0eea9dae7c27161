// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_deposits_total",
		Help: "Deposits accepted into escrow custody.",
	}, []string{"service_id"})

	FulfillmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_fulfillments_total",
		Help: "Fulfillment outcomes registered, by terminal status.",
	}, []string{"service_id", "status"})

	WithdrawalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_withdrawals_total",
		Help: "Completed withdrawals, by kind (refund or pool).",
	}, []string{"service_id", "kind"})

	RejectedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_rejected_operations_total",
		Help: "Mutating operations rejected by a precondition.",
	}, []string{"operation"})
)
