// Package metrics exposes gateway counters and latency histograms to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "loan_gateway"

// GatewayMetrics records message outcomes and committed lifecycle transitions
type GatewayMetrics struct {
	messages    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	replays     *prometheus.CounterVec
}

// New registers the gateway collectors with registerer. A nil registerer uses
// the default one.
func New(registerer prometheus.Registerer) *GatewayMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &GatewayMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by endpoint message type, HTTP status and result code.",
		}, []string{"message_type", "status", "result_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time from request receipt to response write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"message_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed loan application status transitions.",
		}, []string{"from", "to"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_messages_total",
			Help:      "Repeated MsgIds by outcome (replayed or rejected).",
		}, []string{"outcome"}),
	}

	registerer.MustRegister(m.messages, m.duration, m.transitions, m.replays)
	return m
}

// ObserveMessage counts one answered message and its latency
func (m *GatewayMetrics) ObserveMessage(messageType string, status, resultCode int, elapsed time.Duration) {
	m.messages.WithLabelValues(messageType, strconv.Itoa(status), strconv.Itoa(resultCode)).Inc()
	m.duration.WithLabelValues(messageType).Observe(elapsed.Seconds())
}

// RecordTransition counts a committed status change. An empty from marks creation.
func (m *GatewayMetrics) RecordTransition(from, to loan.Status) {
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "NONE"
	}
	m.transitions.WithLabelValues(fromLabel, string(to)).Inc()
}

func (m *GatewayMetrics) RecordReplay() {
	m.replays.WithLabelValues("replayed").Inc()
}

func (m *GatewayMetrics) RecordDuplicateRejected() {
	m.replays.WithLabelValues("rejected").Inc()
}
