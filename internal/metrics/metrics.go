// Package metrics exposes ingestion and catalog counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private prometheus registry so tests and multiple
// servers in one process never collide on the global one.
type Registry struct {
	reg *prometheus.Registry

	RowsRead      *prometheus.CounterVec
	RowsWritten   *prometheus.CounterVec
	RowsDefaulted *prometheus.CounterVec
	RowsRejected  *prometheus.CounterVec
	TableFailures *prometheus.CounterVec
	ImportSeconds prometheus.Histogram
	Queries       prometheus.Counter
	Mutations     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	byTable := []string{"table"}

	rowsRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_ingest_rows_read_total",
		Help: "Source rows read per table.",
	}, byTable)
	rowsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_ingest_rows_written_total",
		Help: "Canonical rows written to the store per table.",
	}, byTable)
	rowsDefaulted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_ingest_fields_defaulted_total",
		Help: "Field values replaced by a default during normalization.",
	}, byTable)
	rowsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_ingest_rows_rejected_total",
		Help: "Rows dropped because a reference could not be resolved.",
	}, byTable)
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_ingest_table_failures_total",
		Help: "Tables whose load failed.",
	}, byTable)
	importSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salon_ingest_duration_seconds",
		Help:    "Wall time of an ingestion run.",
		Buckets: prometheus.DefBuckets,
	})
	queries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salon_catalog_queries_total",
		Help: "Catalog queries evaluated.",
	})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salon_mutations_total",
		Help: "Single-record changes made through the API.",
	}, []string{"op"})

	r.MustRegister(rowsRead, rowsWritten, rowsDefaulted, rowsRejected, failures, importSeconds, queries, mutations)
	return &Registry{
		reg:           r,
		RowsRead:      rowsRead,
		RowsWritten:   rowsWritten,
		RowsDefaulted: rowsDefaulted,
		RowsRejected:  rowsRejected,
		TableFailures: failures,
		ImportSeconds: importSeconds,
		Queries:       queries,
		Mutations:     mutations,
	}
}

// TableLoad records the outcome of loading one table. Safe on a nil Registry.
func (r *Registry) TableLoad(table string, read, written, defaulted, rejected int, failed bool) {
	if r == nil {
		return
	}
	r.RowsRead.WithLabelValues(table).Add(float64(read))
	r.RowsWritten.WithLabelValues(table).Add(float64(written))
	r.RowsDefaulted.WithLabelValues(table).Add(float64(defaulted))
	r.RowsRejected.WithLabelValues(table).Add(float64(rejected))
	if failed {
		r.TableFailures.WithLabelValues(table).Inc()
	}
}

// ImportDone records the duration of an ingestion run. Safe on a nil Registry.
func (r *Registry) ImportDone(d time.Duration) {
	if r == nil {
		return
	}
	r.ImportSeconds.Observe(d.Seconds())
}

// Query counts one catalog query. Safe on a nil Registry.
func (r *Registry) Query() {
	if r == nil {
		return
	}
	r.Queries.Inc()
}

// Mutation counts one successful record change. Safe on a nil Registry.
func (r *Registry) Mutation(op string) {
	if r == nil {
		return
	}
	r.Mutations.WithLabelValues(op).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
