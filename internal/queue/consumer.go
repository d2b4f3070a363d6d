package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/last9/otelkit/internal/model"
	pkgerrors "github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/storage/mq"
	"github.com/last9/otelkit/storage/redis"
)

// OrderProcessor handles a consumed order.created event. The worker injects
// the service implementation at startup so the queue package stays free of a
// service import cycle.
type OrderProcessor interface {
	MarkProcessed(ctx context.Context, orderID int64) error
}

var orderProcessor OrderProcessor

// SetOrderProcessor wires the order service in (called from the worker).
func SetOrderProcessor(p OrderProcessor) {
	orderProcessor = p
}

// StartOrderCreatedConsumer consumes order.created events and marks the
// orders processed. Events are deduplicated by event ID in Redis.
func StartOrderCreatedConsumer(ctx context.Context) error {
	handler := func(ctx context.Context, body []byte) error {
		return processOrderCreated(ctx, redis.Client(), body)
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.OrderCreatedQueue,
		ConsumerTag:   "order_created_consumer",
		PrefetchCount: 10,
		Handler:       handler,
	})
}

// processOrderCreated handles one delivery. A body that does not decode is
// returned as a SkipMessageError so the consume loop drops it instead of
// requeueing a message that can never succeed.
func processOrderCreated(ctx context.Context, rdb redislib.Cmdable, body []byte) error {
	var event model.OrderCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("undecodable order.created event: %v", err)}
	}

	dedupKey := redis.Key("event", event.EventID)
	fresh, err := rdb.SetNX(ctx, dedupKey, 1, 24*time.Hour).Result()
	if err != nil {
		// dedup is best effort; MarkProcessed is idempotent on status
		logger.Logger.Warn("Failed to check event dedup key, processing anyway",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	} else if !fresh {
		logger.Logger.Info("Event already processed, skipping",
			zap.String("event_id", event.EventID),
			zap.Int64("order_id", event.OrderID),
		)
		return nil
	}

	if orderProcessor == nil {
		return fmt.Errorf("order processor not configured")
	}

	if err := orderProcessor.MarkProcessed(ctx, event.OrderID); err != nil {
		// release the dedup key so a redelivery can retry
		if delErr := rdb.Del(ctx, dedupKey).Err(); delErr != nil {
			logger.Logger.Warn("Failed to release event dedup key",
				zap.String("event_id", event.EventID),
				zap.Error(delErr),
			)
		}
		return err
	}

	logger.Logger.Info("Processed order.created event",
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.OrderID),
		zap.Int64("total_cents", event.TotalCents),
	)
	return nil
}

// StartAllConsumers launches every worker consumer.
func StartAllConsumers(ctx context.Context) error {
	if err := StartOrderCreatedConsumer(ctx); err != nil {
		return fmt.Errorf("failed to start order.created consumer: %w", err)
	}
	return nil
}
