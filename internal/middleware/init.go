package middleware

import (
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/last9/otelkit/pkg/database"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/mq"
	"github.com/last9/otelkit/pkg/redis"
)

// Init registers every metric instrument against the global meter provider.
// Must run after telemetry.Init so the instruments land on the real provider.
func Init() error {
	meter := otel.Meter("github.com/last9/otelkit")

	if err := InitMetrics(meter); err != nil {
		return fmt.Errorf("failed to init HTTP metrics: %w", err)
	}
	if err := database.InitDatabaseMetrics(meter); err != nil {
		return fmt.Errorf("failed to init database metrics: %w", err)
	}
	if err := redis.InitRedisMetrics(meter); err != nil {
		return fmt.Errorf("failed to init redis metrics: %w", err)
	}
	if err := mq.InitMQMetrics(meter); err != nil {
		return fmt.Errorf("failed to init mq metrics: %w", err)
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
