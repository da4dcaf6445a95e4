package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for database operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartSyncSpan starts a span for a sync-engine operation
func StartSyncSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("sync.%s", operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", "sync"),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SyncMetrics holds sync-engine metrics
type SyncMetrics struct {
	syncAttempts  metric.Int64Counter
	syncFailures  metric.Int64Counter
	drainedQueued metric.Int64Histogram
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	syncAttempts, err := meter.Int64Counter(
		"sync.attempts",
		metric.WithDescription("Total number of sync runs attempted"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	syncFailures, err := meter.Int64Counter(
		"sync.failures",
		metric.WithDescription("Sync runs that ended in a transport or server failure"),
		metric.WithUnit("{runs}"),
	)
	if err != nil {
		return nil, err
	}

	drainedQueued, err := meter.Int64Histogram(
		"sync.queue.drained",
		metric.WithDescription("Number of pending changes drained per successful sync"),
		metric.WithUnit("{changes}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncAttempts:  syncAttempts,
		syncFailures:  syncFailures,
		drainedQueued: drainedQueued,
	}, nil
}

// RecordAttempt counts a sync run
func (m *SyncMetrics) RecordAttempt(ctx context.Context) {
	m.syncAttempts.Add(ctx, 1)
}

// RecordFailure counts a failed sync run
func (m *SyncMetrics) RecordFailure(ctx context.Context) {
	m.syncFailures.Add(ctx, 1)
}

// RecordDrained records how many changes a successful run drained
func (m *SyncMetrics) RecordDrained(ctx context.Context, n int) {
	m.drainedQueued.Record(ctx, int64(n))
}
