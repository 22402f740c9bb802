package metrics

import (
	"net/http"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expertbook"

type Metrics struct {
	registry *prometheus.Registry

	reservations   *prometheus.CounterVec
	statusUpdates  *prometheus.CounterVec
	notifyFailures prometheus.Counter
	droppedEvents  *prometheus.CounterVec
	outboxRelayed  prometheus.Counter
	breakerChanges *prometheus.CounterVec
}

// New registers every collector on a fresh registry. subscribers reports the
// current number of fan-out subscribers and may be nil.
func New(subscribers func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		reservations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		statusUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Booking status overwrites by target status.",
		}, []string{"status"}),
		notifyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_event_publish_failures_total",
			Help:      "Slot events that could not be handed to the fan-out transport.",
		}),
		droppedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_dropped_events_total",
			Help:      "Slot events dropped for slow subscribers.",
		}, []string{"expert_id"}),
		outboxRelayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox records published to Kafka.",
		}),
		breakerChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_breaker_transitions_total",
			Help:      "Redis fan-out circuit breaker transitions by target state.",
		}, []string{"to"}),
	}

	if subscribers != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_subscribers",
			Help:      "Currently connected fan-out subscribers.",
		}, func() float64 { return float64(subscribers()) })
	}
	return m
}

func (m *Metrics) Reservation(outcome string) {
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusUpdate(status model.Status) {
	m.statusUpdates.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) NotifyFailed() {
	m.notifyFailures.Inc()
}

func (m *Metrics) EventDropped(expertID string) {
	m.droppedEvents.WithLabelValues(expertID).Inc()
}

func (m *Metrics) OutboxRelayed(n int) {
	m.outboxRelayed.Add(float64(n))
}

func (m *Metrics) BreakerTransition(_, to string) {
	m.breakerChanges.WithLabelValues(to).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
