package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function, got nil")
	}

	_, span := StartCommandSpan(ctx, "bot list")
	if span.SpanContext().IsValid() {
		t.Error("disabled provider should not produce valid spans")
	}
	span.End()

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderEnabled(t *testing.T) {
	cfg := ExportConfig("http://127.0.0.1:4318")
	cfg.SampleRate = 0.5

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, cfg)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	t.Cleanup(func() { _, _ = InitProvider(ctx, DefaultConfig()) })

	if _, ok := GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected sdk provider, got %T", GetTracerProvider())
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function, got nil")
	}
}

func TestInitProviderRejectsSampleRate(t *testing.T) {
	cfg := ExportConfig("collector:4318")
	cfg.SampleRate = 2

	if _, err := InitProvider(context.Background(), cfg); err == nil {
		t.Fatal("expected error for sample rate above 1")
	}
}

func TestExportConfig(t *testing.T) {
	if ExportConfig("").Enabled {
		t.Error("empty endpoint should leave tracing disabled")
	}
	cfg := ExportConfig("collector:4318")
	if !cfg.Enabled || cfg.Endpoint != "collector:4318" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ServiceName != "botctl" {
		t.Errorf("ServiceName = %q, want botctl", cfg.ServiceName)
	}
}

func TestEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	EndSpan(ok, nil)
	_, failed := tracer.Start(context.Background(), "failed")
	EndSpan(failed, errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "boom" {
		t.Errorf("second span status = %+v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestShutdownWithoutProvider(t *testing.T) {
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
