package crawler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	units           *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	unmatchedLabels *prometheus.CounterVec
	writeFailures   *prometheus.CounterVec
	tasks           *prometheus.CounterVec
	sweepSeconds    *prometheus.HistogramVec
}

var (
	registered *collectors
	metricOnce sync.Once
)

// metrics returns the process-wide collectors, registering them on first use.
func metrics() *collectors {
	metricOnce.Do(func() {
		registered = &collectors{
			units: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crawler_units_total",
					Help: "Sweep units processed, labeled by site and outcome.",
				},
				[]string{"site", "outcome"},
			),
			recordsWritten: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crawler_records_written_total",
					Help: "Availability records upserted, labeled by site.",
				},
				[]string{"site"},
			),
			unmatchedLabels: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crawler_unmatched_labels_total",
					Help: "Raw labels with no catalog match, labeled by site.",
				},
				[]string{"site"},
			),
			writeFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crawler_store_write_failures_total",
					Help: "Availability upserts that failed, labeled by site.",
				},
				[]string{"site"},
			),
			tasks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crawler_tasks_total",
					Help: "Site crawl tasks finished, labeled by site and status.",
				},
				[]string{"site", "status"},
			),
			sweepSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "crawler_sweep_duration_seconds",
					Help:    "Duration of one site's full date-by-branch sweep.",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
				},
				[]string{"site"},
			),
		}
	})
	return registered
}
