package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/internal/dbm"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/telemetry"
	"github.com/last9/otelkit/storage/database"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if !config.Cfg.DBMEnabled {
		logger.Logger.Info("DBM collection disabled, set DBM_ENABLED=true to run")
		return
	}

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
		ServiceName:    config.Cfg.ServiceName + "-dbm",
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

	if err := dbm.InitDBMMetrics(otel.Meter("github.com/last9/otelkit/internal/dbm")); err != nil {
		logger.Logger.Fatal("Failed to initialize DBM metrics", zap.Error(err))
	}

	if err := database.Init(); err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer closeCancel()
		if err := database.Close(closeCtx); err != nil {
			logger.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	collector := dbm.NewCollector(database.DB())
	if err := collector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Logger.Error("Collector stopped with error", zap.Error(err))
	}

	logger.Logger.Info("DBM collector shutting down gracefully")
}
