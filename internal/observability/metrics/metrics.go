// Package metrics registers the prometheus instruments for the message
// pipeline. All observe methods are nil-safe so instrumentation stays
// optional in tests and workers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for the conversation pipeline.
type Metrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	llmCalls      *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	bookingsTotal *prometheus.CounterVec
}

// New registers the instruments on reg, falling back to the default
// registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "messages",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp messages by type and handling status",
		}, []string{"message_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "messages",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp sends by status",
		}, []string{"status"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM completions by provider and status",
		}, []string{"provider", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atendezap",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "LLM completion latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"provider"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.llmCalls, m.llmLatency, m.bookingsTotal)
	return m
}

// ObserveInbound counts one received message.
func (m *Metrics) ObserveInbound(messageType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(messageType, status).Inc()
}

// ObserveOutbound counts one send attempt.
func (m *Metrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

// ObserveLLM counts a completion and records its latency.
func (m *Metrics) ObserveLLM(provider, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider, status).Inc()
	m.llmLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveBooking counts a booking attempt outcome ("confirmed",
// "slot_taken", "past_time", "error").
func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}
