package sphero

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports protocol counters for any number of clients.
// Every series carries a "client" label holding the client ID.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	commands      *prometheus.CounterVec
	timeouts      *prometheus.CounterVec
	responses     *prometheus.CounterVec
	resyncBytes   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pending       *prometheus.GaugeVec
	roundTrip     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "commands_total",
			Help: "Commands written to the transport.",
		}, []string{"client", "command", "mode"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "timeouts_total",
			Help: "Commands that received no response before their deadline.",
		}, []string{"client", "command"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "responses_total",
			Help: "Synchronous responses received, by outcome.",
		}, []string{"client", "outcome"}),
		resyncBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "resync_bytes_total",
			Help: "Bytes dropped while resynchronising the receive stream.",
		}, []string{"client"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "notifications_total",
			Help: "Asynchronous notifications received, by ID code.",
		}, []string{"client", "id"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "pending_requests",
			Help: "Commands currently awaiting a response.",
		}, []string{"client"}),
		roundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "protocol", Name: "round_trip_seconds",
			Help:    "Time from command write to correlated response.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"client", "command"}),
	}

	reg.MustRegister(m.commands, m.timeouts, m.responses, m.resyncBytes,
		m.notifications, m.pending, m.roundTrip)

	return m
}

func (m *Metrics) commandSent(client, command string, wait bool) {
	if m == nil {
		return
	}
	mode := "fire_and_forget"
	if wait {
		mode = "wait"
	}
	m.commands.WithLabelValues(client, command, mode).Inc()
}

func (m *Metrics) timedOut(client, command string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(client, command).Inc()
}

func (m *Metrics) responseReceived(client string, outcome completion) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(client, outcome.String()).Inc()
}

func (m *Metrics) resynced(client string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resyncBytes.WithLabelValues(client).Add(float64(n))
}

func (m *Metrics) notified(client string, id byte) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(client, fmt.Sprintf("0x%02X", id)).Inc()
}

func (m *Metrics) setPending(client string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(client).Set(float64(n))
}

func (m *Metrics) observeRoundTrip(client, command string, d time.Duration) {
	if m == nil {
		return
	}
	m.roundTrip.WithLabelValues(client, command).Observe(d.Seconds())
}
