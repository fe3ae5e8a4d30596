package tracing

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	providerOnce sync.Once
	providerMu   sync.RWMutex
	provider     *sdktrace.TracerProvider
	providerErr  error
)

// InitOpenTelemetry installs a process-wide tracer provider whose finished
// spans are written to the debug log. It is safe to call multiple times.
func InitOpenTelemetry(serviceName, version string) error {
	providerOnce.Do(func() {
		res, err := resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(version),
			),
		)
		if err != nil {
			providerErr = err
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithResource(res),
			sdktrace.WithSpanProcessor(logProcessor{}),
		)

		providerMu.Lock()
		provider = tp
		providerMu.Unlock()

		otel.SetTracerProvider(tp)
	})

	return providerErr
}

// ShutdownOpenTelemetry flushes and shuts down the global tracer provider.
func ShutdownOpenTelemetry(ctx context.Context) error {
	providerMu.RLock()
	tp := provider
	providerMu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// StartSpan starts a span tagged with the current run and records the span's
// trace ID on the run when it has none yet.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	run := RunFrom(ctx)
	if run.ID != "" {
		attrs = append(attrs, attribute.String("run_id", run.ID))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))

	if sc := span.SpanContext(); run.TraceID == "" && sc.IsValid() {
		run.TraceID = sc.TraceID().String()
		ctx = WithRun(ctx, run)
	}
	return ctx, span
}

// logProcessor writes each finished span as a debug log line
type logProcessor struct{}

func (logProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (logProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	event := log.Debug().
		Str("span", s.Name()).
		Str("trace_id", s.SpanContext().TraceID().String()).
		Dur("duration", s.EndTime().Sub(s.StartTime()))

	if status := s.Status(); status.Code == codes.Error {
		event = event.Str("status", "error").Str("reason", status.Description)
	}
	for _, kv := range s.Attributes() {
		if kv.Key == "run_id" {
			continue
		}
		event = event.Str(string(kv.Key), kv.Value.Emit())
	}

	event.Msg("Span finished")
}

func (logProcessor) Shutdown(context.Context) error   { return nil }
func (logProcessor) ForceFlush(context.Context) error { return nil }
