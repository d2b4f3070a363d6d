package redis

import (
	"context"
	"strings"
	"sync"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/pkg/logger"
	otelredis "github.com/last9/otelkit/pkg/redis"
)

var (
	client *redislib.Client
	once   sync.Once
	errIn  error
)

func Init() error {
	once.Do(func() {
		c := redislib.NewClient(&redislib.Options{
			Addr:     config.Cfg.RedisAddr,
			Password: config.Cfg.RedisPassword,
			DB:       config.Cfg.RedisDB,
		})

		c.AddHook(otelredis.NewTracingHook(config.Cfg.ServiceName, config.Cfg.RedisDB))

		if err := c.Ping(context.Background()).Err(); err != nil {
			errIn = err
			logger.Logger.Error("Failed to ping Redis", zap.Error(err))
			return
		}

		client = c
		logger.Logger.Info("Redis initialized successfully",
			zap.String("addr", config.Cfg.RedisAddr),
		)
	})

	return errIn
}

func Client() *redislib.Client {
	return client
}

// Key joins segments under the configured prefix.
func Key(parts ...string) string {
	return config.Cfg.RedisPrefix + ":" + strings.Join(parts, ":")
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
