// Package observability provides metrics for the rqm-etl application. A batch
// job has nothing to scrape, so run metrics are pushed to a Prometheus
// Pushgateway when one is configured.
package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	ETL      *metrics.ETLMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	etlMetrics, err := metrics.NewETLMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ETL metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		ETL:      etlMetrics,
	}, nil
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push replaces the metrics stored on the Pushgateway at url under job with
// the current values. instance, when set, is added as a grouping label.
func (m *Metrics) Push(ctx context.Context, url, job, instance string) error {
	pusher := push.New(url, job).Gatherer(m.registry)
	if instance != "" {
		pusher = pusher.Grouping("instance", instance)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryIntegration).
			Context("operation", "pushgateway_push").
			Context("job", job).
			Build()
	}
	return nil
}
