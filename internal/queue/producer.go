package queue

import (
	"context"

	"github.com/last9/otelkit/internal/model"
	"github.com/last9/otelkit/storage/mq"
)

// PublishOrderCreated puts the event on the orders exchange. The publish span
// and trace headers are handled by the instrumented channel.
func PublishOrderCreated(ctx context.Context, event model.OrderCreatedEvent) error {
	return mq.Publish(ctx, mq.OrdersExchange, mq.OrderCreatedRouting, event)
}
