package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/internal/handler"
	"github.com/last9/otelkit/internal/middleware"
	"github.com/last9/otelkit/internal/router"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/snowflake"
	"github.com/last9/otelkit/pkg/telemetry"
	"github.com/last9/otelkit/storage"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// telemetry first so every later init is already instrumented
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    config.Cfg.ServiceName,
		ServiceVersion: config.Cfg.ServiceVersion,
		Environment:    config.Cfg.Environment,
		Endpoint:       config.Cfg.OTLPEndpoint,
		Headers:        config.Cfg.OTLPHeaders,
		Sampler:        config.Cfg.TracesSampler,
		SamplerArg:     config.Cfg.TracesSamplerArg,
		MetricInterval: time.Duration(config.Cfg.MetricExportInterval) * time.Millisecond,
	})
	if err != nil {
		logger.Logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Logger.Error("Failed to flush telemetry", zap.Error(err))
		}
	}()

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	if err := handler.InitMetrics(otel.Meter("github.com/last9/otelkit/internal/handler")); err != nil {
		logger.Logger.Fatal("Failed to initialize handler metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
		zap.String("otlp_endpoint", config.Cfg.OTLPEndpoint),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)

	// the hertz tracer extracts inbound W3C context before our middleware
	// opens its server span
	tracerOpt, tracerMw := middleware.NewServerTracerConfig()
	h := server.Default(server.WithHostPorts(addr), tracerOpt)
	h.Use(tracerMw)

	router.Register(h)

	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
