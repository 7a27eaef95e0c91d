package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StoreMetrics counts the order/cart workflow outcomes worth alerting on.
type StoreMetrics struct {
	OrdersCreated      prometheus.Counter
	OrdersCancelled    prometheus.Counter
	DuplicateCheckouts prometheus.Counter
	CartConflicts      prometheus.Counter
	ReconcileFailures  prometheus.Counter
}

func NewStoreMetrics() *StoreMetrics {
	m := &StoreMetrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_created_total",
			Help:      "Total number of orders materialized from checkouts.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_cancelled_total",
			Help:      "Total number of cancelled orders.",
		}),
		DuplicateCheckouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "duplicate_checkouts_total",
			Help:      "Payment confirmations discarded as already processed.",
		}),
		CartConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_version_conflicts_total",
			Help:      "Cart writes rejected by the optimistic version check.",
		}),
		ReconcileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "inventory_reconcile_failures_total",
			Help:      "Stock adjustments that failed after order persistence.",
		}),
	}
	prometheus.MustRegister(
		m.OrdersCreated,
		m.OrdersCancelled,
		m.DuplicateCheckouts,
		m.CartConflicts,
		m.ReconcileFailures,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
