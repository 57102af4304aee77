package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Result values used on lifecycle counters
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultConflict = "conflict"
	ResultSkipped  = "skipped"
)

// Attribute keys for lifecycle metrics
var (
	AttrKind   = attribute.Key("document.kind")
	AttrAction = attribute.Key("document.action")
	AttrStatus = attribute.Key("document.status")
	AttrTarget = attribute.Key("document.target_kind")
	AttrResult = attribute.Key("result")
	AttrSweep  = attribute.Key("sweep")
)

// StatusCountProvider reports how many documents sit in each status, keyed kind -> status
type StatusCountProvider interface {
	CountByStatus(ctx context.Context) (map[string]map[string]int64, error)
}

// LifecycleMetrics records document lifecycle activity.
// A nil *LifecycleMetrics is valid and records nothing.
type LifecycleMetrics struct {
	logger *zap.Logger

	transitions       *Counter
	conversions       *Counter
	bulkItems         *Counter
	bulkBatchSize     *Histogram
	sweepTransitioned *Counter
	sweepSkipped      *Counter
	sweepDuration     *Histogram
	searchFailures    *Counter
	documentsByStatus *Gauge

	provider    StatusCountProvider
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// LifecycleMetricsConfig holds configuration for lifecycle metrics
type LifecycleMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Provider StatusCountProvider // optional, feeds the documents-by-status gauge
}

// NewLifecycleMetrics creates the lifecycle instruments on cfg.Meter
func NewLifecycleMetrics(cfg LifecycleMetricsConfig) (*LifecycleMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LifecycleMetrics{
		logger:   logger,
		provider: cfg.Provider,
		stopChan: make(chan struct{}),
	}

	var err error
	if m.transitions, err = NewCounter(cfg.Meter, "docflow_transitions_total",
		"Lifecycle transitions attempted", "{transitions}"); err != nil {
		return nil, err
	}
	if m.conversions, err = NewCounter(cfg.Meter, "docflow_conversions_total",
		"Document conversions attempted", "{conversions}"); err != nil {
		return nil, err
	}
	if m.bulkItems, err = NewCounter(cfg.Meter, "docflow_bulk_items_total",
		"Items processed by bulk transitions", "{items}"); err != nil {
		return nil, err
	}
	if m.bulkBatchSize, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "docflow_bulk_batch_size",
		Description: "Number of ids per bulk transition request",
		Unit:        "{items}",
		Boundaries:  []float64{1, 5, 10, 50, 100, 250, 500},
	}); err != nil {
		return nil, err
	}
	if m.sweepTransitioned, err = NewCounter(cfg.Meter, "docflow_sweep_transitioned_total",
		"Documents moved by a sweep", "{documents}"); err != nil {
		return nil, err
	}
	if m.sweepSkipped, err = NewCounter(cfg.Meter, "docflow_sweep_skipped_total",
		"Sweep candidates skipped after losing a concurrent update", "{documents}"); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "docflow_sweep_duration_seconds",
		Description: "Duration of a sweep run",
		Unit:        "s",
	}); err != nil {
		return nil, err
	}
	if m.searchFailures, err = NewCounter(cfg.Meter, "docflow_search_sync_failures_total",
		"Search sync notifications that failed", "{notifications}"); err != nil {
		return nil, err
	}
	if m.documentsByStatus, err = NewGauge(cfg.Meter, "docflow_documents",
		"Documents currently in each status", "{documents}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTransition counts one transition attempt
func (m *LifecycleMetrics) RecordTransition(ctx context.Context, kind, action, result string) {
	if m == nil {
		return
	}
	m.transitions.Inc(ctx, AttrKind.String(kind), AttrAction.String(action), AttrResult.String(result))
}

// RecordConversion counts one conversion attempt
func (m *LifecycleMetrics) RecordConversion(ctx context.Context, source, target, result string) {
	if m == nil {
		return
	}
	m.conversions.Inc(ctx, AttrKind.String(source), AttrTarget.String(target), AttrResult.String(result))
}

// RecordBulk records the outcome of one bulk request
func (m *LifecycleMetrics) RecordBulk(ctx context.Context, kind, action string, succeeded, failed int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrKind.String(kind), AttrAction.String(action)}
	m.bulkBatchSize.Record(ctx, float64(succeeded+failed), attrs...)
	m.bulkItems.Add(ctx, int64(succeeded), append(attrs, AttrResult.String(ResultSuccess))...)
	m.bulkItems.Add(ctx, int64(failed), append(attrs, AttrResult.String(ResultFailed))...)
}

// RecordSweep records one sweep run
func (m *LifecycleMetrics) RecordSweep(ctx context.Context, sweep string, transitioned, skipped int, d time.Duration) {
	if m == nil {
		return
	}
	attr := AttrSweep.String(sweep)
	m.sweepTransitioned.Add(ctx, int64(transitioned), attr)
	m.sweepSkipped.Add(ctx, int64(skipped), attr)
	m.sweepDuration.RecordDuration(ctx, d, attr)
}

// RecordSearchSyncFailure counts a dropped search notification
func (m *LifecycleMetrics) RecordSearchSyncFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.searchFailures.Inc(ctx, AttrKind.String(kind))
}

// StartPeriodicCollection refreshes the documents-by-status gauge every interval.
// Non-blocking; use Stop to end collection.
func (m *LifecycleMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if m == nil || m.provider == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runPeriodicCollection(ctx, interval)
	})
}

func (m *LifecycleMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectStatusCounts(ctx)
	for {
		select {
		case <-m.stopChan:
			m.logger.Info("Stopping document status collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectStatusCounts(ctx)
		}
	}
}

func (m *LifecycleMetrics) collectStatusCounts(ctx context.Context) {
	counts, err := m.provider.CountByStatus(ctx)
	if err != nil {
		m.logger.Warn("Failed to collect document status counts", zap.Error(err))
		return
	}
	for kind, byStatus := range counts {
		for status, n := range byStatus {
			m.documentsByStatus.Record(ctx, n, AttrKind.String(kind), AttrStatus.String(status))
		}
	}
}

// Stop stops the periodic collection
func (m *LifecycleMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil
var ErrMeterNil = &MetricsError{Op: "NewLifecycleMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
