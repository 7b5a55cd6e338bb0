// Package metrics declares the Prometheus collectors of both services.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	OrdersCreated     prometheus.Counter
	OrdersRejected    *prometheus.CounterVec
	OrderTransitions  *prometheus.CounterVec
	Compensations     *prometheus.CounterVec
	PriceFallbacks    prometheus.Counter
	InventoryOps      *prometheus.CounterVec
	InventoryClamped  prometheus.Counter
	IdempotentReplays prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_created_total",
			Help: "Orders persisted in PENDING.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "orders_rejected_total",
			Help: "Order creations aborted after validation, by root error kind.",
		}, []string{"reason"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_transitions_total",
			Help: "Applied order status transitions.",
		}, []string{"from", "to"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_compensations_total",
			Help: "Compensating inventory operations executed.",
		}, []string{"step"}),
		PriceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_price_fallback_total",
			Help: "Order lines priced from the caller because the catalog had no price.",
		}),
		InventoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_operations_total",
			Help: "Inventory ledger operations by outcome.",
		}, []string{"operation", "result"}),
		InventoryClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_release_clamped_total",
			Help: "Releases that asked for more than was reserved.",
		}),
		IdempotentReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_idempotent_replays_total",
			Help: "Create requests answered from an earlier request with the same key.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.OrdersRejected, m.OrderTransitions, m.Compensations,
			m.PriceFallbacks, m.InventoryOps, m.InventoryClamped, m.IdempotentReplays)
	}
	return m
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) OrderRejected(reason string) {
	if m == nil {
		return
	}
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Compensation(step string) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(step).Inc()
}

func (m *Metrics) PriceFallback() {
	if m == nil {
		return
	}
	m.PriceFallbacks.Inc()
}

func (m *Metrics) InventoryOp(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.InventoryOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ReleaseClamped() {
	if m == nil {
		return
	}
	m.InventoryClamped.Inc()
}

func (m *Metrics) IdempotentReplay() {
	if m == nil {
		return
	}
	m.IdempotentReplays.Inc()
}
