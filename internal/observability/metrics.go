package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Synthesis outcome labels
const (
	StatusSuccess  = "success"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// Metrics tracks metrics for a single narration run. Each run owns its
// registry, so nothing is shared through the default Prometheus registerer.
type Metrics struct {
	registry *prometheus.Registry

	slidesTotal    prometheus.Counter
	slidesNarrated prometheus.Counter
	slidesSkipped  prometheus.Counter

	synthesisRequests *prometheus.CounterVec
	synthesisLatency  prometheus.Histogram

	audioBytes   prometheus.Counter
	audioSeconds prometheus.Counter

	runDuration prometheus.Gauge

	runStart       time.Time
	synthesisStart time.Time
}

// NewMetrics creates the collectors for one run
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		slidesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "narrate_slides_total",
			Help: "Number of slides visited",
		}),
		slidesNarrated: factory.NewCounter(prometheus.CounterOpts{
			Name: "narrate_slides_narrated_total",
			Help: "Number of slides that received a narration clip",
		}),
		slidesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "narrate_slides_skipped_total",
			Help: "Number of slides left without narration",
		}),
		synthesisRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "narrate_synthesis_requests_total",
			Help: "Total number of speech synthesis requests",
		}, []string{"status"}),
		synthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "narrate_synthesis_latency_seconds",
			Help:    "Speech synthesis latency in seconds",
			Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		audioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "narrate_audio_bytes_total",
			Help: "Total bytes of audio embedded into the presentation",
		}),
		audioSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "narrate_audio_seconds_total",
			Help: "Total seconds of narration embedded into the presentation",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "narrate_run_duration_seconds",
			Help: "Wall time of the narration run",
		}),
		runStart: time.Now(),
	}
}

// Registry exposes the run registry as a gatherer
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// RecordSlide records that a slide was visited
func (m *Metrics) RecordSlide() {
	m.slidesTotal.Inc()
}

// RecordSynthesisStart records the start of a synthesis request
func (m *Metrics) RecordSynthesisStart() {
	m.synthesisStart = time.Now()
}

// RecordSynthesisEnd records the end of a synthesis request with its outcome label
func (m *Metrics) RecordSynthesisEnd(status string) {
	if !m.synthesisStart.IsZero() {
		m.synthesisLatency.Observe(time.Since(m.synthesisStart).Seconds())
		m.synthesisStart = time.Time{}
	}
	m.synthesisRequests.WithLabelValues(status).Inc()
}

// RecordNarrated records a clip embedded into a slide
func (m *Metrics) RecordNarrated(bytes int64, duration time.Duration) {
	m.slidesNarrated.Inc()
	m.audioBytes.Add(float64(bytes))
	m.audioSeconds.Add(duration.Seconds())
}

// RecordSkipped records a slide left without narration
func (m *Metrics) RecordSkipped() {
	m.slidesSkipped.Inc()
}

// WriteTextfile writes all run metrics in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	m.runDuration.Set(time.Since(m.runStart).Seconds())
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
