// Package metrics provides Prometheus instrumentation for the moderation
// pipeline: how inbound events were disposed of, what the classifier decided,
// how long classification took, and whether reports reached moderators.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts handled message events by outcome, e.g. "bot_author",
	// "unmapped_community", "clean", "violation", "inconclusive".
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_events_total",
		Help: "Message events handled, labelled by outcome",
	}, []string{"outcome"})

	// VerdictsTotal counts classifier verdicts. reason is empty unless the verdict
	// is inconclusive.
	VerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_verdicts_total",
		Help: "Classifier verdicts, labelled by kind and inconclusive reason",
	}, []string{"kind", "reason"})

	// ClassifyDuration records wall-clock time of one classification in seconds.
	ClassifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "modbot_classify_duration_seconds",
		Help:    "Classification latency in seconds",
		Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
	})

	// ReportsTotal counts report deliveries, labelled by result: "sent" or "failed".
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_reports_total",
		Help: "Violation reports delivered to moderators",
	}, []string{"result"})

	// SerialQueueDepth tracks classifications waiting in the single-concurrency queue.
	SerialQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_serial_queue_depth",
		Help: "Classification requests waiting for the serialized model backend",
	})
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		VerdictsTotal,
		ClassifyDuration,
		ReportsTotal,
		SerialQueueDepth,
	)
}

// ObserveVerdict records one classifier result.
func ObserveVerdict(kind, reason string, latency time.Duration) {
	VerdictsTotal.WithLabelValues(kind, reason).Inc()
	ClassifyDuration.Observe(latency.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
