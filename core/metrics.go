package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇总传输层的 Prometheus 指标
type Metrics struct {
	queueDepth    prometheus.Gauge
	queued        *prometheus.CounterVec
	sent          *prometheus.CounterVec
	sendErrors    prometheus.Counter
	inbound       *prometheus.CounterVec
	parseFailures prometheus.Counter
	unknown       prometheus.Counter
	statusChanges *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用独立的 registry，
// 避免同一进程内多个 Client 重复注册。
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	const subsystem = "transport"

	return &Metrics{
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Number of serialized requests waiting for an open connection",
		}),
		queued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_queued_total",
			Help:      "Requests buffered because the connection was not open",
		}, []string{"command"}),
		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Requests written to the socket, including flushed entries",
		}, []string{"command"}),
		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "send_errors_total",
			Help:      "Socket writes that failed",
		}),
		inbound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inbound_messages_total",
			Help:      "Replies routed to a handler",
		}, []string{"command"}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inbound_parse_failures_total",
			Help:      "Inbound frames that were not valid envelopes",
		}),
		unknown: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inbound_unknown_total",
			Help:      "Inbound frames dropped for a missing or unrecognized command",
		}),
		statusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "network_status_changes_total",
			Help:      "Network status values surfaced to the application",
		}, []string{"status"}),
	}
}
