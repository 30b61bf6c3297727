package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys recorded along the query pipeline.
const (
	HTTPRequestID = "http.request_id"

	QueryProvince = "query.province"
	QueryAsset    = "query.asset"
	QueryDocClass = "query.doc_class"
	QueryTopic    = "query.topic"
	QueryMode     = "query.mode"

	RetrievalTopK     = "retrieval.top_k"
	RetrievalHitCount = "retrieval.hit_count"
)

// StartSpan opens a span on the named tracer and returns the derived
// context. The span still works (as a no-op) when tracing is disabled.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// AddSpanAttributes sets attributes on the active span, if any.
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordError marks the active span failed and attaches err as an
// event. A nil error does nothing.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext returns the active trace ID, or "" outside a
// traced request. Request logs carry it so logs and traces join up.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// String builds a string span attribute.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Int builds an int span attribute.
func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}
