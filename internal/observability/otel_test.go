package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-thanks-backend/internal/config"
)

func enabledConfig(name string) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1,
	}
}

// keepGlobals restores the OTel globals when the test ends.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

// captureSpans swaps the OTLP exporter for an in-memory one.
func captureSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	mem := tracetest.NewInMemoryExporter()
	orig := newExporterFn
	newExporterFn = func(context.Context, otlptrace.Client) (sdktrace.SpanExporter, error) { return mem, nil }
	t.Cleanup(func() { newExporterFn = orig })
	return mem
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil || shutdown == nil {
		t.Fatalf("shutdown=%v err=%v", shutdown, err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider replaced while disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_SpansCarryServiceResource(t *testing.T) {
	keepGlobals(t)
	mem := captureSpans(t)

	shutdown, err := SetupOTel(context.Background(), enabledConfig("thanks-test"), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "ThanksService.Thank")
	span.End()
	// Flush rather than shut down: the in-memory exporter forgets spans on Shutdown.
	tp := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := mem.GetSpans()
	if len(spans) != 1 || spans[0].Name != "ThanksService.Thank" {
		t.Fatalf("spans = %+v", spans)
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	want := map[attribute.Key]string{
		"service.name":      "thanks-test",
		"service.version":   "v1.2.3",
		"service.namespace": "wiki",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("resource %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestSetupOTel_PropagatesW3CContext(t *testing.T) {
	keepGlobals(t)
	captureSpans(t)

	shutdown, err := SetupOTel(context.Background(), enabledConfig("thanks-prop"), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "outbound")
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("traceparent not injected: %v", carrier)
	}
	got := trace.SpanContextFromContext(otel.GetTextMapPropagator().Extract(context.Background(), carrier))
	if got.TraceID() != span.SpanContext().TraceID() {
		t.Fatal("trace id lost in round trip")
	}
}

func TestSetupOTel_RealExporterBothTransports(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		keepGlobals(t)
		cfg := enabledConfig("thanks-otlp")
		cfg.Insecure = insecure

		// Connection is lazy, so this succeeds with no collector running.
		shutdown, err := SetupOTel(context.Background(), cfg, "v1")
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("insecure=%v: provider not installed", insecure)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	}
}

func TestSetupOTel_FailuresLeaveGlobals(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"exporter": func(t *testing.T) {
			orig := newExporterFn
			newExporterFn = func(context.Context, otlptrace.Client) (sdktrace.SpanExporter, error) {
				return nil, errors.New("no exporter")
			}
			t.Cleanup(func() { newExporterFn = orig })
		},
		"resource": func(t *testing.T) {
			captureSpans(t)
			orig := newServiceResourceFn
			newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("no resource")
			}
			t.Cleanup(func() { newServiceResourceFn = orig })
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			keepGlobals(t)
			breakIt(t)
			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()

			if _, err := SetupOTel(context.Background(), enabledConfig("svc"), "v0"); err == nil {
				t.Fatal("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatal("globals changed on failure")
			}
		})
	}
}

func TestSampler_Bounds(t *testing.T) {
	params := sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		Name:          "root",
	}
	cases := []struct {
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{-1, sdktrace.Drop},
		{0, sdktrace.Drop},
		{1, sdktrace.RecordAndSample},
		{5, sdktrace.RecordAndSample},
	}
	for _, tc := range cases {
		if got := Sampler(tc.ratio).ShouldSample(params).Decision; got != tc.want {
			t.Fatalf("Sampler(%v) decision=%v want %v", tc.ratio, got, tc.want)
		}
	}
}
