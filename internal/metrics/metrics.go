// Package metrics exposes host counters in Prometheus format. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mathlan"

// Metrics holds the host collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	connections     prometheus.Gauge
	players         *prometheus.GaugeVec
	messages        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	answers         *prometheus.CounterVec
	responseLatency prometheus.Histogram
	rounds          *prometheus.CounterVec
	announcements   *prometheus.CounterVec
	panics          *prometheus.CounterVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open session connections",
		}),
		players: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Players in the current room by connection state",
		}, []string{"state"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Session messages by direction and type",
		}, []string{"direction", "type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Session messages dropped by reason",
		}, []string{"reason"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Scored answers by correctness",
		}, []string{"correct"}),
		responseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_response_seconds",
			Help:      "Reported answer response times",
			Buckets:   []float64{0.5, 1, 1.5, 2, 3, 5, 8, 12},
		}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Rounds by lifecycle event",
		}, []string{"event"}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_announcements_total",
			Help:      "Discovery broadcasts by outcome",
		}, []string{"outcome"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Recovered HTTP handler panics by path",
		}, []string{"path"}),
	}

	m.registry.MustRegister(
		m.connections,
		m.players,
		m.messages,
		m.dropped,
		m.answers,
		m.responseLatency,
		m.rounds,
		m.announcements,
		m.panics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// SetPlayers records the roster split by connection state
func (m *Metrics) SetPlayers(connected, disconnected int) {
	if m == nil {
		return
	}
	m.players.WithLabelValues("connected").Set(float64(connected))
	m.players.WithLabelValues("disconnected").Set(float64(disconnected))
}

func (m *Metrics) MessageReceived(msgType string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues("in", msgType).Inc()
}

func (m *Metrics) MessageSent(msgType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.messages.WithLabelValues("out", msgType).Add(float64(n))
}

func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// AnswerScored records one scored answer
func (m *Metrics) AnswerScored(correct bool, responseMs float64) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.answers.WithLabelValues(label).Inc()
	m.responseLatency.Observe(responseMs / 1000)
}

func (m *Metrics) RoundStarted() {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues("started").Inc()
}

func (m *Metrics) RoundFinished() {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues("finished").Inc()
}

func (m *Metrics) Announced(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.announcements.WithLabelValues(outcome).Inc()
}

// HandlerPanicked counts a recovered panic on an HTTP path
func (m *Metrics) HandlerPanicked(path string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(path).Inc()
}
