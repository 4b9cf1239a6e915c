// Package metrics exposes Prometheus collectors for reconciliation,
// commits, coverage and drift correction.
package metrics

import (
	"sync"

	"github.com/ministry-roster-api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ministry"

type collectors struct {
	reconcileRows    *prometheus.CounterVec
	commitChunks     *prometheus.CounterVec
	commitRows       *prometheus.CounterVec
	driftCorrections prometheus.Counter
	syncRuns         *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	coverageRequests *prometheus.CounterVec
	leaderDriftGauge prometheus.Gauge
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		reconcileRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_rows_total",
			Help:      "Rows classified by snapshot analysis.",
		}, []string{"catalog", "status"}),
		commitChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_chunks_total",
			Help:      "Chunk transactions attempted by commits.",
		}, []string{"catalog", "result"}),
		commitRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_rows_total",
			Help:      "Rows written by committed chunks.",
		}, []string{"catalog"}),
		driftCorrections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_corrections_total",
			Help:      "Participation department labels realigned with the roster.",
		}),
		syncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Drift correction passes.",
		}, []string{"result"}),
		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Duration of drift correction passes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		coverageRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coverage_requests_total",
			Help:      "Coverage computations by mode.",
		}, []string{"mode"}),
		leaderDriftGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leader_drift",
			Help:      "Leaders whose directory department differs from the roster at the last pass.",
		}),
	}
})

// ObserveReport counts the rows of an analyzed report
func ObserveReport(catalog models.Catalog, summary models.ReportSummary) {
	m := singleton()
	m.reconcileRows.WithLabelValues(string(catalog), string(models.StatusNew)).Add(float64(summary.New))
	m.reconcileRows.WithLabelValues(string(catalog), string(models.StatusUpdated)).Add(float64(summary.Updated))
	m.reconcileRows.WithLabelValues(string(catalog), string(models.StatusInactivated)).Add(float64(summary.Inactivated))
	m.reconcileRows.WithLabelValues(string(catalog), string(models.StatusUnchanged)).Add(float64(summary.Unchanged))
}

// ObserveChunk records one chunk transaction
func ObserveChunk(catalog models.Catalog, size int, err error) {
	m := singleton()
	if err != nil {
		m.commitChunks.WithLabelValues(string(catalog), "error").Inc()
		return
	}
	m.commitChunks.WithLabelValues(string(catalog), "ok").Inc()
	m.commitRows.WithLabelValues(string(catalog)).Add(float64(size))
}

// ObserveSync records one drift correction pass
func ObserveSync(corrections, leaderDrifts int, seconds float64, err error) {
	m := singleton()
	m.syncDuration.Observe(seconds)
	m.leaderDriftGauge.Set(float64(leaderDrifts))
	if err != nil {
		m.syncRuns.WithLabelValues("error").Inc()
		return
	}
	m.syncRuns.WithLabelValues("ok").Inc()
	m.driftCorrections.Add(float64(corrections))
}

// ObserveCoverage counts one coverage computation
func ObserveCoverage(mode string) {
	singleton().coverageRequests.WithLabelValues(mode).Inc()
}
