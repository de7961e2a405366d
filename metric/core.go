package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the viewer.
const Namespace = "sparviewer"

// Metrics contains the viewer-wide metrics shared by the label backend,
// the decorator and the HTTP gateway.
type Metrics struct {
	LabelLookups        *prometheus.CounterVec
	LabelLookupDuration *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
	DecoratedElements   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all viewer metrics
func NewMetrics() *Metrics {
	return &Metrics{
		LabelLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "labels",
				Name:      "lookups_total",
				Help:      "Total number of label lookups by outcome (found, empty, error)",
			},
			[]string{"source", "outcome"},
		),

		LabelLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "labels",
				Name:      "lookup_duration_seconds",
				Help:      "Label lookup duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		DecoratedElements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "decorate",
				Name:      "elements_total",
				Help:      "Total number of marked elements visited by the decorator",
			},
			[]string{"marker", "outcome"},
		),
	}
}

// RecordLookup records the outcome of a single label lookup.
// Safe to call on a nil receiver.
func (m *Metrics) RecordLookup(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.LabelLookups.WithLabelValues(source, outcome).Inc()
	m.LabelLookupDuration.WithLabelValues(source).Observe(seconds)
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordElement records a decorated (or skipped) element.
func (m *Metrics) RecordElement(marker, outcome string) {
	if m == nil {
		return
	}
	m.DecoratedElements.WithLabelValues(marker, outcome).Inc()
}
