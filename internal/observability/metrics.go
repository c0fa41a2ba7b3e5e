// Package observability provides metrics collectors for the daybook
// application.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Journal metrics
	SegmentsRecorded      prometheus.Counter
	TranscriptionsTotal   *prometheus.CounterVec
	TranscriptionRetries  prometheus.Counter
	SegmentsResetForRetry prometheus.Counter

	// Store metrics
	StoreErrorsTotal *prometheus.CounterVec

	// Location metrics
	VisitsStarted prometheus.Counter
	OpenVisits    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all collectors registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SegmentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_segments_recorded_total",
			Help: "Number of finished recording segments stored",
		}),
		TranscriptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_transcriptions_total",
			Help: "Transcription outcomes applied to segments by result",
		}, []string{"result"}),
		TranscriptionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_transcription_retries_total",
			Help: "Number of transcription dispatch retries",
		}),
		SegmentsResetForRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_segments_reset_total",
			Help: "Number of failed segments reset back to pending",
		}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daybook_store_errors_total",
			Help: "Datastore errors by operation",
		}, []string{"operation"}),
		VisitsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daybook_visits_started_total",
			Help: "Number of location visits opened",
		}),
		OpenVisits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "daybook_open_visits",
			Help: "Number of location visits currently open",
		}),
	}

	collectors := []prometheus.Collector{
		m.SegmentsRecorded,
		m.TranscriptionsTotal,
		m.TranscriptionRetries,
		m.SegmentsResetForRetry,
		m.StoreErrorsTotal,
		m.VisitsStarted,
		m.OpenVisits,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
