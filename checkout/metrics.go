package checkout

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
	)

	paymentCapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_captures_total",
			Help: "Total number of payment capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	stockConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_conflicts_total",
			Help: "Total number of captures rolled back because stock ran out",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersCreatedTotal)
	prometheus.MustRegister(paymentCapturesTotal)
	prometheus.MustRegister(stockConflictsTotal)
}
