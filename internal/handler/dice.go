package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/last9/otelkit/internal/service"
	"github.com/last9/otelkit/pkg/response"
)

// RollDice returns a single die roll. The roll value goes on the span so the
// hello-world trace has something to look at.
// GET /v1/rolldice
func RollDice(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.RollDice")
	defer span.End()

	value := service.Dice().Roll()
	span.SetAttributes(attribute.Int("dice.roll.value", value))
	if diceRollsTotal != nil {
		diceRollsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("dice.roll.value", value),
		))
	}

	response.Success(ctx, c, map[string]interface{}{
		"value": value,
	})
}
