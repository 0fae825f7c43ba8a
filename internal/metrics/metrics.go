// Package metrics provides Prometheus metrics for a harvester run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "irve_harvester"

// Skip reasons.
const (
	ReasonOrphan   = "orphan"
	ReasonSelf     = "self"
	ReasonNotCSV   = "not_csv"
	ReasonDownload = "download_error"
)

// Metrics holds the counters of one run on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DatasetsTotal      prometheus.Counter
	DatasetsSkipped    *prometheus.CounterVec
	ResourcesTotal     prometheus.Counter
	ResourcesSkipped   *prometheus.CounterVec
	ResourcesWritten   prometheus.Counter
	BytesWritten       prometheus.Counter
	FilesValidated     *prometheus.CounterVec
	RunDuration        prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge
	CatalogTruncated   prometheus.Gauge
	SchemaErrorsLogged prometheus.Counter
}

// NewMetrics creates and registers all run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DatasetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_total",
			Help:      "Datasets returned by the catalog",
		}),
		DatasetsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_skipped_total",
			Help:      "Datasets skipped before download",
		}, []string{"reason"}),
		ResourcesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Resources seen in non-skipped datasets",
		}),
		ResourcesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_skipped_total",
			Help:      "Resources not written to disk",
		}, []string{"reason"}),
		ResourcesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_downloaded_total",
			Help:      "Resources written to disk",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to disk",
		}),
		FilesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_validated_total",
			Help:      "CSV files by validation outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		CatalogTruncated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_omitted_datasets",
			Help:      "Datasets beyond the first catalog page, not fetched",
		}),
		SchemaErrorsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_errors_total",
			Help:      "Schema validation errors found across files",
		}),
	}

	m.registry.MustRegister(
		m.DatasetsTotal,
		m.DatasetsSkipped,
		m.ResourcesTotal,
		m.ResourcesSkipped,
		m.ResourcesWritten,
		m.BytesWritten,
		m.FilesValidated,
		m.RunDuration,
		m.LastRunTimestamp,
		m.CatalogTruncated,
		m.SchemaErrorsLogged,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// DatasetSeen counts a dataset returned by the catalog.
func (m *Metrics) DatasetSeen() {
	if m == nil {
		return
	}

	m.DatasetsTotal.Inc()
}

// DatasetSkipped counts a skipped dataset.
func (m *Metrics) DatasetSkipped(reason string) {
	if m == nil {
		return
	}

	m.DatasetsSkipped.WithLabelValues(reason).Inc()
}

// ResourceSeen counts a resource of a non-skipped dataset.
func (m *Metrics) ResourceSeen() {
	if m == nil {
		return
	}

	m.ResourcesTotal.Inc()
}

// ResourceSkipped counts a resource that was not written.
func (m *Metrics) ResourceSkipped(reason string) {
	if m == nil {
		return
	}

	m.ResourcesSkipped.WithLabelValues(reason).Inc()
}

// ResourceWritten counts a written resource and its size.
func (m *Metrics) ResourceWritten(size int) {
	if m == nil {
		return
	}

	m.ResourcesWritten.Inc()
	m.BytesWritten.Add(float64(size))
}

// FileValidated counts a file by outcome and its schema errors.
func (m *Metrics) FileValidated(outcome string, schemaErrors int) {
	if m == nil {
		return
	}

	m.FilesValidated.WithLabelValues(outcome).Inc()
	m.SchemaErrorsLogged.Add(float64(schemaErrors))
}

// CatalogOmitted records how many datasets the first page left out.
func (m *Metrics) CatalogOmitted(n int) {
	if m == nil {
		return
	}

	m.CatalogTruncated.Set(float64(n))
}

// RunFinished records the run duration and completion time.
func (m *Metrics) RunFinished(duration time.Duration, at time.Time) {
	if m == nil {
		return
	}

	m.RunDuration.Set(duration.Seconds())
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}

	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	return nil
}
