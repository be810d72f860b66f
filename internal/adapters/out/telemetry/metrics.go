// Package telemetry exposes Octopus metrics through Prometheus.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ltuffery/Octopus/internal/domain"
)

var durationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600}

// Metrics holds the Octopus instruments.
type Metrics struct {
	// Site lifecycle
	SiteOperations        *prometheus.CounterVec
	SiteOperationDuration *prometheus.HistogramVec

	// Cron
	CronFirings        *prometheus.CounterVec
	CronFiringDuration *prometheus.HistogramVec

	// Webhooks
	WebhookResponses *prometheus.CounterVec

	// Events
	EventsProcessed *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SiteOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octopus",
			Subsystem: "site",
			Name:      "operations_total",
			Help:      "Site lifecycle operations by action and outcome",
		}, []string{"action", "outcome"}),
		SiteOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "octopus",
			Subsystem: "site",
			Name:      "operation_duration_seconds",
			Help:      "Duration of site lifecycle operations",
			Buckets:   durationBuckets,
		}, []string{"action"}),
		CronFirings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octopus",
			Subsystem: "cron",
			Name:      "firings_total",
			Help:      "Cron job firings by target kind and outcome",
		}, []string{"target", "outcome"}),
		CronFiringDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "octopus",
			Subsystem: "cron",
			Name:      "firing_duration_seconds",
			Help:      "Duration of cron job runs",
			Buckets:   durationBuckets,
		}, []string{"target"}),
		WebhookResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octopus",
			Subsystem: "webhook",
			Name:      "responses_total",
			Help:      "Webhook dispatches by HTTP status code (0 on transport error)",
		}, []string{"code"}),
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octopus",
			Subsystem: "events",
			Name:      "processed_total",
			Help:      "Events handled successfully",
		}, []string{"event_type"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "octopus",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped because the bus was full",
		}, []string{"event_type"}),
	}
}

// ObserveSiteOperation implements out.MetricsRecorder.
func (m *Metrics) ObserveSiteOperation(action domain.SiteAction, outcome string, d time.Duration) {
	m.SiteOperations.WithLabelValues(string(action), outcome).Inc()
	m.SiteOperationDuration.WithLabelValues(string(action)).Observe(d.Seconds())
}

// ObserveCronFiring implements out.MetricsRecorder.
func (m *Metrics) ObserveCronFiring(target domain.CronTargetKind, outcome string, d time.Duration) {
	m.CronFirings.WithLabelValues(string(target), outcome).Inc()
	m.CronFiringDuration.WithLabelValues(string(target)).Observe(d.Seconds())
}

// ObserveWebhook implements out.MetricsRecorder.
func (m *Metrics) ObserveWebhook(statusCode int) {
	m.WebhookResponses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// EventProcessed counts a handled event.
func (m *Metrics) EventProcessed(eventType domain.EventType) {
	m.EventsProcessed.WithLabelValues(string(eventType)).Inc()
}

// EventDropped counts an event the bus could not queue.
func (m *Metrics) EventDropped(eventType domain.EventType) {
	m.EventsDropped.WithLabelValues(string(eventType)).Inc()
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ObserveSiteOperation(domain.SiteAction, string, time.Duration) {}
func (Noop) ObserveCronFiring(domain.CronTargetKind, string, time.Duration) {}
func (Noop) ObserveWebhook(int)                                            {}
