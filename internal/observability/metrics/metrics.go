// Package metrics records pipeline measurements in Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the collectors
type Config struct {
	Namespace   string
	ServiceName string
}

// Prometheus implements port.MetricsSink
type Prometheus struct {
	outcomes          *prometheus.CounterVec
	duration          *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	warnings          *prometheus.CounterVec
	secondaryDeferred *prometheus.CounterVec
	items             prometheus.Histogram
}

// New registers the collectors on registerer. A nil registerer uses the
// process default.
func New(registerer prometheus.Registerer, cfg Config) (*Prometheus, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "invoice_loader"
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoice-loader"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Prometheus{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "documents_total",
			Help:        "Processed documents by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "document_duration_seconds",
			Help:        "End to end processing time by outcome.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "stage_duration_seconds",
			Help:        "Processing time of a single pipeline stage.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
			ConstLabels: constLabels,
		}, []string{"stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "errors_total",
			Help:        "Pipeline errors by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "warnings_total",
			Help:        "Soft validation warnings by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		secondaryDeferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "secondary_deferred_total",
			Help:        "Staging writes deferred after the primary commit, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "line_items",
			Help:        "Line items parsed per document.",
			Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
			ConstLabels: constLabels,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.outcomes, m.duration, m.stageDuration, m.errors, m.warnings, m.secondaryDeferred, m.items,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) ObserveOutcome(outcome string, d time.Duration) {
	m.outcomes.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Prometheus) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Prometheus) IncError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Prometheus) IncWarning(kind string) {
	m.warnings.WithLabelValues(kind).Inc()
}

func (m *Prometheus) IncSecondaryDeferred(reason string) {
	m.secondaryDeferred.WithLabelValues(reason).Inc()
}

func (m *Prometheus) ObserveItems(count int) {
	m.items.Observe(float64(count))
}

// Nop discards every measurement
type Nop struct{}

func (Nop) ObserveOutcome(string, time.Duration) {}
func (Nop) ObserveStage(string, time.Duration)   {}
func (Nop) IncError(string)                      {}
func (Nop) IncWarning(string)                    {}
func (Nop) IncSecondaryDeferred(string)          {}
func (Nop) ObserveItems(int)                     {}

var (
	_ port.MetricsSink = (*Prometheus)(nil)
	_ port.MetricsSink = Nop{}
)
