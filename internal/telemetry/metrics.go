package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// SyncMetricsMeterName is the meter of the sync engine instruments
const SyncMetricsMeterName = "github.com/voyagedesk/inventory-sync/sync"

// SyncMetrics records run outcomes, conflicts and failures. A nil
// *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	tenant         string
	runDuration    metric.Float64Histogram
	runsTotal      metric.Int64Counter
	conflictsTotal metric.Int64Counter
	errorsTotal    metric.Int64Counter
	itemsProcessed metric.Int64Gauge
}

// NewSyncMetrics creates the instruments. A nil provider returns nil.
func NewSyncMetrics(provider metric.MeterProvider, tenant string) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"invsync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs from start to finalization"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, err
	}
	runsTotal, err := meter.Int64Counter(
		"invsync_runs_total",
		metric.WithDescription("Finished sync runs by terminal status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}
	conflictsTotal, err := meter.Int64Counter(
		"invsync_conflicts_total",
		metric.WithDescription("Conflicts detected by type"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}
	errorsTotal, err := meter.Int64Counter(
		"invsync_errors_total",
		metric.WithDescription("Sync errors recorded by type and severity"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	itemsProcessed, err := meter.Int64Gauge(
		"invsync_items_processed",
		metric.WithDescription("Items processed by the latest run of each supplier"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		tenant:         tenant,
		runDuration:    runDuration,
		runsTotal:      runsTotal,
		conflictsTotal: conflictsTotal,
		errorsTotal:    errorsTotal,
		itemsProcessed: itemsProcessed,
	}, nil
}

// RecordRun records a finished run
func (m *SyncMetrics) RecordRun(ctx context.Context, run *inventory.SyncRun, duration time.Duration) {
	if m == nil || run == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tenant", m.tenant),
		attribute.String("supplier", run.SupplierID),
		attribute.String("status", string(run.Status)),
		attribute.String("trigger", string(run.Trigger)),
	)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.runsTotal.Add(ctx, 1, attrs)
	m.itemsProcessed.Record(ctx, int64(run.ItemsProcessed), metric.WithAttributes(
		attribute.String("tenant", m.tenant),
		attribute.String("supplier", run.SupplierID),
	))
}

// RecordConflict counts one detected conflict
func (m *SyncMetrics) RecordConflict(ctx context.Context, supplierID string, conflictType inventory.ConflictType) {
	if m == nil {
		return
	}
	m.conflictsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", m.tenant),
		attribute.String("supplier", supplierID),
		attribute.String("conflict_type", string(conflictType)),
	))
}

// RecordError counts one recorded SyncError
func (m *SyncMetrics) RecordError(ctx context.Context, supplierID, errorType string, severity inventory.Severity) {
	if m == nil {
		return
	}
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tenant", m.tenant),
		attribute.String("supplier", supplierID),
		attribute.String("error_type", errorType),
		attribute.String("severity", string(severity)),
	))
}
