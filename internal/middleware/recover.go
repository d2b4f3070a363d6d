package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/response"
)

// RecoverMiddleware converts panics into 500 responses. The panic is logged
// with its stack and recorded on the active span.
func RecoverMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}) {
	stack := debug.Stack()

	logger.Logger.Error("Panic recovered",
		zap.Any("panic", err),
		zap.String("method", string(c.Method())),
		zap.String("path", string(c.Path())),
		zap.String("client_ip", c.ClientIP()),
		zap.ByteString("stack", stack),
	)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(fmt.Errorf("panic: %v", err))
		span.SetStatus(codes.Error, "panic recovered")
	}

	def := errors.Definition{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "Internal server error",
	}
	if !config.Cfg.IsProduction() {
		def.Message = fmt.Sprintf("Internal error: %v", err)
	}

	response.Error(ctx, c, def)
	c.Abort()
}
