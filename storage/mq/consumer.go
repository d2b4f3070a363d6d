package mq

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	otelmq "github.com/last9/otelkit/pkg/mq"
)

// MessageHandler processes one delivery body; ctx carries the producer's
// trace context. A non-nil error nacks the message back onto the queue,
// except a SkipMessageError, which acks it so poison messages do not cycle
// forever.
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume blocks reading from the queue until ctx is canceled or the
// delivery channel closes.
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	ic := otelmq.NewInstrumentedChannel(ch, config.Cfg.ServiceName)

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack = false
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			msgCtx, span := ic.StartConsumeSpan(ctx, opts.Queue, msg)
			start := time.Now()
			err := opts.Handler(msgCtx, msg.Body)
			otelmq.RecordConsume(msgCtx, opts.Queue, time.Since(start), err)

			if err != nil {
				span.RecordError(err)
				span.End()

				if pkgerrors.IsSkipMessageError(err) {
					logger.Logger.Warn("Dropping message",
						zap.String("queue", opts.Queue),
						zap.String("consumer_tag", opts.ConsumerTag),
						zap.Error(err),
					)
					_ = msg.Ack(false)
					continue
				}

				logger.Logger.Error("Failed to process message",
					zap.String("queue", opts.Queue),
					zap.String("consumer_tag", opts.ConsumerTag),
					zap.Error(err),
				)

				_ = msg.Nack(false, true) // requeue
				continue
			}

			span.End()
			_ = msg.Ack(false)
		}
	}
}
