// Package metrics exposes Prometheus counters for archive exports and
// restores. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/travel-journal/internal/domain"
)

const namespace = "journal"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the archive subsystem's collectors.
type Metrics struct {
	exports         *prometheus.CounterVec
	exportBytes     prometheus.Counter
	exportDuration  prometheus.Histogram
	restores        *prometheus.CounterVec
	restoredRows    *prometheus.CounterVec
	restoreConflict *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Trip archive exports by result.",
		}, []string{"result"}),
		exportBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Estimated bytes of successfully streamed archives.",
		}),
		exportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent streaming an archive.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		restores: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Restore attempts by mode (dry_run, apply) and result.",
		}, []string{"mode", "result"}),
		restoredRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restored_rows_total",
			Help:      "Rows created by applied restores, by kind.",
		}, []string{"kind"}),
		restoreConflict: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_conflicts_total",
			Help:      "Conflicting identifiers found during restores, by kind.",
		}, []string{"kind"}),
	}
}

// ExportFinished records one streamed export.
func (m *Metrics) ExportFinished(err error, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.exports.WithLabelValues(ResultError).Inc()
		return
	}
	m.exports.WithLabelValues(ResultOK).Inc()
	m.exportBytes.Add(float64(bytes))
	m.exportDuration.Observe(elapsed.Seconds())
}

// RestoreFinished records one restore or dry run. Row counts are only added
// for applied restores that succeeded.
func (m *Metrics) RestoreFinished(dryRun bool, err error, sum domain.RestoreSummary) {
	if m == nil {
		return
	}
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.restores.WithLabelValues(mode, result).Inc()
	if err != nil {
		return
	}

	c := sum.Conflicts
	m.restoreConflict.WithLabelValues("entry").Add(float64(len(c.Entries)))
	m.restoreConflict.WithLabelValues("tag").Add(float64(len(c.Tags)))
	m.restoreConflict.WithLabelValues("media").Add(float64(len(c.Media)))
	m.restoreConflict.WithLabelValues("media_url").Add(float64(len(c.MediaURLs)))

	if dryRun {
		return
	}
	m.restoredRows.WithLabelValues("trip").Add(float64(sum.Counts.Trip))
	m.restoredRows.WithLabelValues("entry").Add(float64(sum.Counts.Entries))
	m.restoredRows.WithLabelValues("tag").Add(float64(sum.Counts.Tags))
	m.restoredRows.WithLabelValues("media").Add(float64(sum.Counts.Media))
}

// Handler serves the collectors of g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
