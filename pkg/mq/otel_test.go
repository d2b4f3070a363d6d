package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	t.Run("set allocates table", func(t *testing.T) {
		carrier := &HeaderCarrier{}
		carrier.Set("traceparent", "00-aa-bb-01")
		assert.Equal(t, "00-aa-bb-01", carrier.Get("traceparent"))
	})

	t.Run("non string values ignored", func(t *testing.T) {
		carrier := &HeaderCarrier{Headers: amqp.Table{"x-delay": int64(5)}}
		assert.Equal(t, "", carrier.Get("x-delay"))
	})

	t.Run("missing key", func(t *testing.T) {
		carrier := &HeaderCarrier{Headers: amqp.Table{}}
		assert.Equal(t, "", carrier.Get("traceparent"))
	})

	t.Run("keys", func(t *testing.T) {
		carrier := &HeaderCarrier{Headers: amqp.Table{"a": "1", "b": "2"}}
		assert.ElementsMatch(t, []string{"a", "b"}, carrier.Keys())
	})
}

func TestTraceContextRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	propagator := propagation.TraceContext{}

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	carrier := &HeaderCarrier{}
	propagator.Inject(ctx, carrier)
	require.NotEmpty(t, carrier.Get("traceparent"))

	extracted := propagator.Extract(context.Background(), carrier)
	got := trace.SpanContextFromContext(extracted)
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanID())
}
