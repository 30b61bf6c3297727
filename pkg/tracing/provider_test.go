package tracing

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func noopOptions() *Options {
	return &Options{
		Enabled:       true,
		ServiceName:   "regqa-test",
		ExporterType:  ExporterNoop,
		SamplerType:   SamplerAlwaysOn,
		BatchTimeout:  5 * time.Second,
		BatchMaxSize:  512,
		ExportTimeout: 30 * time.Second,
		MaxQueueSize:  2048,
	}
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	if opts.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if opts.ServiceName != "regqa" {
		t.Errorf("default service name = %s, want regqa", opts.ServiceName)
	}
	if opts.ExporterType != ExporterOTLPGRPC {
		t.Errorf("default exporter = %s, want %s", opts.ExporterType, ExporterOTLPGRPC)
	}
	if opts.SamplerType != SamplerParentBased {
		t.Errorf("default sampler = %s, want %s", opts.SamplerType, SamplerParentBased)
	}
	if opts.SamplerRatio != 1.0 {
		t.Errorf("default sampler ratio = %f, want 1.0", opts.SamplerRatio)
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := func() *Options {
		return &Options{
			Enabled:       true,
			ServiceName:   "test",
			ExporterType:  ExporterOTLPGRPC,
			Endpoint:      "localhost:4317",
			SamplerType:   SamplerAlwaysOn,
			BatchTimeout:  5 * time.Second,
			BatchMaxSize:  512,
			ExportTimeout: 30 * time.Second,
			MaxQueueSize:  2048,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"valid configuration", func(o *Options) {}, false},
		{"disabled tracing always validates", func(o *Options) { o.Enabled = false; o.ServiceName = "" }, false},
		{"missing service name", func(o *Options) { o.ServiceName = "" }, true},
		{"missing endpoint for OTLP exporter", func(o *Options) { o.Endpoint = "" }, true},
		{"stdout exporter needs no endpoint", func(o *Options) { o.ExporterType = ExporterStdout; o.Endpoint = "" }, false},
		{"noop exporter needs no endpoint", func(o *Options) { o.ExporterType = ExporterNoop; o.Endpoint = "" }, false},
		{"invalid exporter type", func(o *Options) { o.ExporterType = "invalid" }, true},
		{"invalid sampler type", func(o *Options) { o.SamplerType = "invalid" }, true},
		{"sampler ratio out of range", func(o *Options) { o.SamplerType = SamplerRatio; o.SamplerRatio = 1.5 }, true},
		{"negative batch timeout", func(o *Options) { o.BatchTimeout = -1 * time.Second }, true},
		{"zero queue size", func(o *Options) { o.MaxQueueSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid()
			tt.mutate(opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsComplete(t *testing.T) {
	opts := &Options{}
	if err := opts.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if opts.Headers == nil || opts.ResourceAttributes == nil {
		t.Error("Complete() should initialize nil maps")
	}
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(&Options{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if tracer := provider.Tracer("test"); tracer == nil {
		t.Error("disabled provider should still hand out tracers")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSpanHelpers(t *testing.T) {
	provider, err := NewProvider(noopOptions())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "regqa", "query.resolve")
	defer span.End()

	AddSpanAttributes(ctx,
		String(QueryProvince, "gd"),
		Int(RetrievalTopK, 12),
	)
	RecordError(ctx, fmt.Errorf("backend down"))
	RecordError(ctx, nil)

	if TraceIDFromContext(ctx) == "" {
		t.Error("expected an active trace ID inside the span")
	}
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Errorf("trace ID without an active span = %s, want empty", got)
	}
}

func TestProviderShutdown(t *testing.T) {
	provider, err := NewProvider(noopOptions())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	tracer := provider.Tracer("test")
	_, span := tracer.Start(context.Background(), "test-span")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// Repeated shutdown stays a no-op.
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestNoopExporter(t *testing.T) {
	exporter := noopExporter{}

	ctx := context.Background()
	if err := exporter.ExportSpans(ctx, nil); err != nil {
		t.Errorf("ExportSpans() error = %v", err)
	}
	if err := exporter.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
