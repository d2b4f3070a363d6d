package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/last9/otelkit/config"
)

// Healthz is the liveness probe.
// GET /healthz
func Healthz(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": config.Cfg.ServiceName,
		"version": config.Cfg.ServiceVersion,
	})
}
