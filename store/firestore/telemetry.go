package firestore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cassina/langgraphgo-checkpoint-firestore/store/firestore"

// Operation names used in errors, span names and metric attributes.
const (
	opGetTuple     = "getTuple"
	opList         = "list"
	opPut          = "put"
	opPutWrites    = "putWrites"
	opDeleteThread = "deleteThread"
)

type telemetry struct {
	tracer     trace.Tracer
	operations metric.Int64Counter
	errors     metric.Int64Counter
	latency    metric.Float64Histogram
	deleted    metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	t, err := newInstruments(mp)
	if err != nil {
		t, _ = newInstruments(noop.NewMeterProvider())
	}
	t.tracer = tp.Tracer(instrumentationName)
	return t
}

func newInstruments(mp metric.MeterProvider) (*telemetry, error) {
	meter := mp.Meter(instrumentationName)

	operations, err := meter.Int64Counter("checkpoint.operations",
		metric.WithDescription("Number of checkpoint saver operations"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("checkpoint.errors",
		metric.WithDescription("Number of failed checkpoint saver operations"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("checkpoint.latency_ms",
		metric.WithDescription("Checkpoint saver operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deleted, err := meter.Int64Counter("checkpoint.documents_deleted",
		metric.WithDescription("Number of documents removed by thread deletion"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		operations: operations,
		errors:     errs,
		latency:    latency,
		deleted:    deleted,
	}, nil
}

// start opens the span of one saver operation. The returned func ends it and
// records the outcome.
func (t *telemetry) start(ctx context.Context, op, threadID string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, "checkpoint."+op,
		trace.WithAttributes(
			attribute.String("checkpoint.operation", op),
			attribute.String("checkpoint.thread_id", threadID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	began := time.Now()

	return ctx, func(err error) {
		attrs := metric.WithAttributes(attribute.String("operation", op))
		t.operations.Add(ctx, 1, attrs)
		t.latency.Record(ctx, float64(time.Since(began).Microseconds())/1000, attrs)
		if err != nil {
			t.errors.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (t *telemetry) recordDeleted(ctx context.Context, collection string, n int) {
	if n == 0 {
		return
	}
	t.deleted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("collection", collection)))
	trace.SpanFromContext(ctx).AddEvent("documents deleted", trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.Int("count", n),
	))
}
