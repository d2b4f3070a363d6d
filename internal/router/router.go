package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/internal/handler"
	"github.com/last9/otelkit/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")
	if config.Cfg.RateLimitEnabled {
		v1.Use(middleware.GeneralRateLimitMiddleware())
	}

	users := v1.Group("/users")
	{
		users.GET("", handler.ListUsers)
		users.POST("", handler.CreateUser)
		users.GET("/:id", handler.GetUser)
		users.DELETE("/:id", handler.DeleteUser)
	}

	orders := v1.Group("/orders")
	{
		orders.GET("", handler.ListOrders)
		orders.POST("", handler.CreateOrder)
		orders.GET("/:id", handler.GetOrder)
	}

	products := v1.Group("/products")
	{
		products.GET("", handler.ListProducts)
		products.GET("/:id", handler.GetProduct)
	}

	v1.GET("/rolldice", handler.RollDice)
}
