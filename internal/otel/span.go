// Package otel provides OpenTelemetry instrumentation utilities for the sync engine.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Shared attribute keys so traces from every component line up.
const (
	AttrTenant       = attribute.Key("tenant")
	AttrSupplierID   = attribute.Key("supplier.id")
	AttrRunID        = attribute.Key("sync.run_id")
	AttrTrigger      = attribute.Key("sync.trigger")
	AttrConflictID   = attribute.Key("conflict.id")
	AttrConflictType = attribute.Key("conflict.type")
	AttrResolution   = attribute.Key("conflict.resolution")
	AttrErrorID      = attribute.Key("sync_error.id")
	AttrItemCount    = attribute.Key("items.count")
	AttrResultCount  = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// The status description stays generic so SQL or connection details do not
// leak into trace status; the full error is kept as a span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
