package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtrask/wsrelay"
)

// Metrics holds all Prometheus collectors for a wstap instance.
type Metrics struct {
	registry *prometheus.Registry

	messagesTotal *prometheus.CounterVec
	sinkDropped   prometheus.Counter
}

// New creates and registers all collectors. stats is sampled lazily on
// every scrape.
func New(prefix string, stats func() wsrelay.ManagerStats) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{registry: registry}

	m.messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: prefix,
		Subsystem: "relay",
		Name:      "messages_total",
		Help:      "Messages delivered to the tap subscriber, by kind",
	}, []string{"kind"})

	m.sinkDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: prefix,
		Subsystem: "sink",
		Name:      "dropped_total",
		Help:      "Records dropped because the sink buffer was full",
	})

	connected := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: prefix,
		Subsystem: "relay",
		Name:      "connected",
		Help:      "Whether the transport is currently open (1) or not (0)",
	}, func() float64 {
		if stats().Connected {
			return 1
		}
		return 0
	})

	backlogDepth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: prefix,
		Subsystem: "relay",
		Name:      "backlog_depth",
		Help:      "Payloads buffered while no subscriber was registered",
	}, func() float64 {
		return float64(stats().BacklogDepth)
	})

	reconnectAttempts := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: prefix,
		Subsystem: "relay",
		Name:      "reconnect_attempts_total",
		Help:      "Reconnection attempts made after transport failures",
	}, func() float64 {
		return float64(stats().ReconnectAttempts)
	})

	reconnects := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: prefix,
		Subsystem: "relay",
		Name:      "reconnects_total",
		Help:      "Successful reconnections",
	}, func() float64 {
		return float64(stats().Reconnects)
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		m.messagesTotal,
		m.sinkDropped,
		connected,
		backlogDepth,
		reconnectAttempts,
		reconnects,
	)

	return m
}

// ObserveMessage counts one delivered message.
func (m *Metrics) ObserveMessage(structured bool) {
	kind := "raw"
	if structured {
		kind = "structured"
	}
	m.messagesTotal.WithLabelValues(kind).Inc()
}

// ObserveSinkDrop counts one record dropped by the sink.
func (m *Metrics) ObserveSinkDrop() {
	m.sinkDropped.Inc()
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
