// Package metrics provides ETL run metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ETLMetrics contains Prometheus metrics for one ETL run
type ETLMetrics struct {
	registry *prometheus.Registry

	tenantsTotal       *prometheus.CounterVec
	tenantDuration     *prometheus.HistogramVec
	rowsInsertedTotal  *prometheus.CounterVec
	rowsDroppedTotal   *prometheus.CounterVec
	lastRunTimestamp   prometheus.Gauge
	lastRunTenants     prometheus.Gauge
	lastRunFailedGauge prometheus.Gauge

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewETLMetrics creates and registers new ETL metrics
func NewETLMetrics(registry *prometheus.Registry) (*ETLMetrics, error) {
	m := &ETLMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ETLMetrics) initMetrics() {
	m.tenantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rqm_etl_tenants_total",
			Help: "Total number of tenants processed",
		},
		[]string{"status", "category"}, // category is empty on success
	)

	m.tenantDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rqm_etl_tenant_duration_seconds",
			Help:    "Time taken to select, extract and load one tenant",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount15), // 100ms to ~27m
		},
		[]string{"status"},
	)

	m.rowsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rqm_etl_rows_inserted_total",
			Help: "Total number of rows appended to the local store",
		},
		[]string{"table"},
	)

	m.rowsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rqm_etl_rows_dropped_total",
			Help: "Total number of rows dropped because a cell could not be decoded",
		},
		[]string{"table"},
	)

	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rqm_etl_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})

	m.lastRunTenants = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rqm_etl_last_run_tenants",
		Help: "Number of tenants discovered by the last run",
	})

	m.lastRunFailedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rqm_etl_last_run_failed_tenants",
		Help: "Number of tenants that failed in the last run",
	})

	m.collectors = []prometheus.Collector{
		m.tenantsTotal,
		m.tenantDuration,
		m.rowsInsertedTotal,
		m.rowsDroppedTotal,
		m.lastRunTimestamp,
		m.lastRunTenants,
		m.lastRunFailedGauge,
	}
}

// Describe implements the Collector interface
func (m *ETLMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ETLMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// TenantCompleted records one tenant's outcome
func (m *ETLMetrics) TenantCompleted(status, category string, elapsed time.Duration) {
	m.tenantsTotal.WithLabelValues(status, category).Inc()
	m.tenantDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// RowsInserted records rows appended to table
func (m *ETLMetrics) RowsInserted(table string, n int) {
	if n > 0 {
		m.rowsInsertedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RowsDropped records rows of table discarded by the decoder
func (m *ETLMetrics) RowsDropped(table string, n int) {
	if n > 0 {
		m.rowsDroppedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RunCompleted records the end of a run
func (m *ETLMetrics) RunCompleted(finished time.Time, tenants, failed int) {
	m.lastRunTimestamp.Set(float64(finished.Unix()))
	m.lastRunTenants.Set(float64(tenants))
	m.lastRunFailedGauge.Set(float64(failed))
}
