package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/last9/otelkit/internal/model"
	"github.com/last9/otelkit/internal/service"
	"github.com/last9/otelkit/pkg/response"
)

var tracer = otel.Tracer("github.com/last9/otelkit/internal/handler")

// ListUsers returns all users.
// GET /v1/users
func ListUsers(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.ListUsers")
	defer span.End()

	users, err := service.Users().List(ctx)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	response.SuccessWithMeta(ctx, c, users, map[string]interface{}{
		"count": len(users),
	})
}

// GetUser returns one user by ID.
// GET /v1/users/:id
func GetUser(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")

	ctx, span := tracer.Start(ctx, "handler.GetUser")
	span.SetAttributes(attribute.String("user.id", id))
	defer span.End()

	user, err := service.Users().Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, user)
}

// CreateUser creates a user.
// POST /v1/users
func CreateUser(ctx context.Context, c *app.RequestContext) {
	ctx, span := tracer.Start(ctx, "handler.CreateUser")
	defer span.End()

	var req model.CreateUserRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	user, err := service.Users().Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	response.Created(ctx, c, user)
}

// DeleteUser removes a user.
// DELETE /v1/users/:id
func DeleteUser(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")

	ctx, span := tracer.Start(ctx, "handler.DeleteUser")
	span.SetAttributes(attribute.String("user.id", id))
	defer span.End()

	if err := service.Users().Delete(ctx, id); err != nil {
		span.RecordError(err)
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
