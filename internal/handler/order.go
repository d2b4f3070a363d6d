package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/attribute"

	"github.com/last9/otelkit/internal/model"
	"github.com/last9/otelkit/internal/service"
	"github.com/last9/otelkit/pkg/response"
)

// ListOrders returns recent orders.
// GET /v1/orders
func ListOrders(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.ListOrders")
	defer span.End()

	orders, err := service.Orders().List(ctx)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	response.SuccessWithMeta(ctx, c, orders, map[string]interface{}{
		"count": len(orders),
	})
}

// GetOrder returns one order with its items.
// GET /v1/orders/:id
func GetOrder(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")

	ctx, span := tracer.Start(ctx, "handler.GetOrder")
	span.SetAttributes(attribute.String("order.id", id))
	defer span.End()

	order, err := service.Orders().Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, order)
}

// CreateOrder accepts an order, prices it against the catalog and publishes
// the order.created event.
// POST /v1/orders
func CreateOrder(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.CreateOrder")
	defer span.End()

	var req model.CreateOrderRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	order, err := service.Orders().Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.Int64("order.total_cents", order.TotalCents),
		attribute.Int("order.item_count", len(order.Items)),
	)
	response.Created(ctx, c, order)
}
