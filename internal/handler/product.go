package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/attribute"

	"github.com/last9/otelkit/internal/service"
	"github.com/last9/otelkit/pkg/response"
)

// ListProducts returns the catalog.
// GET /v1/products
func ListProducts(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.ListProducts")
	defer span.End()

	products := service.Products().List()
	span.SetAttributes(attribute.Int("products.count", len(products)))
	response.Success(ctx, c, products)
}

// GetProduct returns one catalog entry.
// GET /v1/products/:id
func GetProduct(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")

	ctx, span := tracer.Start(ctx, "handler.GetProduct")
	span.SetAttributes(attribute.String("product.id", id))
	defer span.End()

	product, err := service.Products().Get(id)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, product)
}
