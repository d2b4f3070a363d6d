package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/internal/middleware"
	"github.com/last9/otelkit/internal/queue"
	"github.com/last9/otelkit/internal/service"
	"github.com/last9/otelkit/pkg/logger"
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

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    config.Cfg.ServiceName + "-worker",
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

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	queue.SetOrderProcessor(service.Orders())

	logger.Logger.Info("Worker starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	if err := queue.StartAllConsumers(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Logger.Error("Consumer stopped with error", zap.Error(err))
	}

	logger.Logger.Info("Worker shutting down gracefully")
}
