package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
	mqPublishErrors   metric.Int64Counter
	mqConsumeErrors   metric.Int64Counter
)

// InitMQMetrics registers messaging counters on the meter.
func InitMQMetrics(meter metric.Meter) error {
	var err error

	mqMessagesTotal, err = meter.Int64Counter(
		"mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	mqMessageDuration, err = meter.Float64Histogram(
		"mq.message.duration",
		metric.WithDescription("RabbitMQ message processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	mqPublishErrors, err = meter.Int64Counter(
		"mq.publish.errors",
		metric.WithDescription("Number of RabbitMQ publish errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mqConsumeErrors, err = meter.Int64Counter(
		"mq.consume.errors",
		metric.WithDescription("Number of RabbitMQ consume errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// HeaderCarrier adapts amqp.Table to propagation.TextMapCarrier so W3C trace
// context travels inside message headers.
type HeaderCarrier struct {
	Headers amqp.Table
}

func (m *HeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *HeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}

// InstrumentedChannel wraps amqp.Channel with publish/consume tracing.
type InstrumentedChannel struct {
	ch          *amqp.Channel
	serviceName string
	propagators propagation.TextMapPropagator
	tracer      trace.Tracer
}

func NewInstrumentedChannel(ch *amqp.Channel, serviceName string) *InstrumentedChannel {
	return &InstrumentedChannel{
		ch:          ch,
		serviceName: serviceName,
		propagators: otel.GetTextMapPropagator(),
		tracer:      otel.Tracer(serviceName + ".rabbitmq"),
	}
}

// PublishWithContext publishes msg with the current trace context injected
// into its headers.
func (ic *InstrumentedChannel) PublishWithContext(
	ctx context.Context,
	exchange, routingKey string,
	mandatory, immediate bool,
	msg amqp.Publishing,
) error {
	startTime := time.Now()

	spanName := "rabbitmq.publish"
	if exchange != "" {
		spanName = "rabbitmq.publish." + exchange
	}

	ctx, span := ic.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			attribute.String("service.name", ic.serviceName),
		))
	defer span.End()

	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ic.propagators.Inject(ctx, &HeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ic.ch.PublishWithContext(ctx, exchange, routingKey, mandatory, immediate, msg)
	duration := time.Since(startTime).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if mqPublishErrors != nil {
			mqPublishErrors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "Message published")
	}

	if mqMessagesTotal != nil {
		labels := []attribute.KeyValue{
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.rabbitmq.exchange", exchange),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
			attribute.String("messaging.status", status),
		}
		mqMessagesTotal.Add(ctx, 1, metric.WithAttributes(labels...))
		mqMessageDuration.Record(ctx, duration, metric.WithAttributes(labels...))
	}

	return err
}

// ExtractContext recovers the producer's trace context from a delivery.
func (ic *InstrumentedChannel) ExtractContext(ctx context.Context, msg amqp.Delivery) context.Context {
	return ic.propagators.Extract(ctx, &HeaderCarrier{Headers: msg.Headers})
}

// StartConsumeSpan opens a consumer span parented to the producer's context.
// Callers must End the returned span after handling the delivery.
func (ic *InstrumentedChannel) StartConsumeSpan(ctx context.Context, queue string, msg amqp.Delivery) (context.Context, trace.Span) {
	msgCtx := ic.ExtractContext(ctx, msg)

	return ic.tracer.Start(msgCtx, "rabbitmq.consume."+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(queue),
			semconv.MessagingRabbitmqDestinationRoutingKey(msg.RoutingKey),
			semconv.MessagingMessageID(msg.MessageId),
			attribute.String("messaging.rabbitmq.exchange", msg.Exchange),
			attribute.String("service.name", ic.serviceName),
		))
}

// RecordConsume reports the outcome of one delivery.
func RecordConsume(ctx context.Context, queue string, duration time.Duration, err error) {
	if mqMessagesTotal == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		mqConsumeErrors.Add(ctx, 1)
	}

	labels := []attribute.KeyValue{
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.operation", "consume"),
		attribute.String("messaging.rabbitmq.queue", queue),
		attribute.String("messaging.status", status),
	}
	mqMessagesTotal.Add(ctx, 1, metric.WithAttributes(labels...))
	mqMessageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(labels...))
}

// Channel exposes the wrapped amqp.Channel.
func (ic *InstrumentedChannel) Channel() *amqp.Channel {
	return ic.ch
}
