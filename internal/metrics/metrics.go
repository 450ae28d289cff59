package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's counters on a private registry so several
// instances can coexist in one process (tests, multiple contexts).
type Metrics struct {
	registry *prometheus.Registry

	Requests          *prometheus.CounterVec
	AuthInvalidations *prometheus.CounterVec
	Sagas             *prometheus.CounterVec
	Compensations     *prometheus.CounterVec
	BusPublished      prometheus.Counter
	BusDelivered      prometheus.Counter
	BusDropped        *prometheus.CounterVec
	ListenerPanics    prometheus.Counter
	RelayForwarded    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "gateway_requests_total",
			Help:      "Requests sent through the gateway, by method and outcome.",
		}, []string{"method", "outcome"}),
		AuthInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "auth_invalidations_total",
			Help:      "Credential scopes cleared after an authorization failure.",
		}, []string{"scope"}),
		Sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_sagas_total",
			Help:      "Booking workflows by kind and final state.",
		}, []string{"kind", "state"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_compensations_total",
			Help:      "Compensating booking deletions by result.",
		}, []string{"result"}),
		BusPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bus_published_total",
			Help:      "Room status events published.",
		}),
		BusDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bus_delivered_total",
			Help:      "Room status events delivered to local listeners.",
		}),
		BusDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bus_dropped_total",
			Help:      "Incoming room status payloads dropped, by reason.",
		}, []string{"reason"}),
		ListenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bus_listener_panics_total",
			Help:      "Listener invocations that panicked.",
		}),
		RelayForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "relay_forwarded_total",
			Help:      "Room status events forwarded by the relay.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.AuthInvalidations,
		m.Sagas,
		m.Compensations,
		m.BusPublished,
		m.BusDelivered,
		m.BusDropped,
		m.ListenerPanics,
		m.RelayForwarded,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
