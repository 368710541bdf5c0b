package portal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "portal"

type metrics struct {
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec
	bridgeDropped  prometheus.Counter
	clientsActive  prometheus.Gauge
	sendFailures   prometheus.Counter
	analogDiscards prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Hardware events broadcast, by event type.",
		}, []string{"type"}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Inbound commands, by outcome.",
		}, []string{"result"}),
		bridgeDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bridge_dropped_total",
			Help:      "Events dropped because the broadcast worker was not running.",
		}),
		clientsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "clients_active",
			Help:      "Currently connected subscribers.",
		}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "Subscriber sends that failed and caused removal.",
		}),
		analogDiscards: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analog_discards_total",
			Help:      "Analog samples discarded below the change threshold.",
		}),
	}
}
