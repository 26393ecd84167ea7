// Package metrics exposes prometheus instrumentation for the exchange
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the exchange's prometheus collectors on a private
// registry so tests can run several instances side by side.
type Metrics struct {
	registry *prometheus.Registry

	Orders      *prometheus.CounterVec
	Trades      *prometheus.CounterVec
	TradeVolume *prometheus.CounterVec
	Rejects     prometheus.Counter
	Connections prometheus.Gauge
	Ticks       prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bourse",
			Name:      "orders_total",
			Help:      "Orders accepted by the matching engine.",
		}, []string{"ticker", "side"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bourse",
			Name:      "trades_total",
			Help:      "Transactions produced by matching.",
		}, []string{"ticker"}),
		TradeVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bourse",
			Name:      "trade_volume_total",
			Help:      "Shares transacted.",
		}, []string{"ticker"}),
		Rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bourse",
			Name:      "rejects_total",
			Help:      "Client requests rejected by the server.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bourse",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bourse",
			Name:      "ticks_total",
			Help:      "Scheduler ticks processed.",
		}),
	}
	m.registry.MustRegister(m.Orders, m.Trades, m.TradeVolume, m.Rejects, m.Connections, m.Ticks)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
