package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/pkg/errors"
	"github.com/last9/otelkit/pkg/logger"
	"github.com/last9/otelkit/pkg/response"
	"github.com/last9/otelkit/storage/redis"
)

type RateLimitConfig struct {
	// window length in seconds
	Window int
	// max requests per window
	MaxRequests int
	// key prefix under the Redis namespace
	KeyPrefix string
}

// DefaultRateLimitConfig applies per client IP across the API group.
var DefaultRateLimitConfig = RateLimitConfig{
	Window:      60,
	MaxRequests: 100,
	KeyPrefix:   "rate:limit",
}

type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config}
}

func (rl *RateLimiter) getKey(c *app.RequestContext) string {
	return redis.Key(rl.config.KeyPrefix, fmt.Sprintf("ip:%s", c.ClientIP()))
}

// Allow runs the sliding window check in a single pipeline: drop expired
// entries, add this request, count the window.
func (rl *RateLimiter) Allow(ctx context.Context, c *app.RequestContext) (bool, int, error) {
	key := rl.getKey(c)
	now := time.Now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	client := redis.Client()
	pipe := client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	allowed := count <= rl.config.MaxRequests

	return allowed, count, nil
}

// RateLimitMiddleware enforces the sliding window. When Redis is down the
// request passes; the limiter is not worth an outage.
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(cfg)

	return func(ctx context.Context, c *app.RequestContext) {
		allowed, count, err := limiter.Allow(ctx, c)
		if err != nil {
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			c.Next(ctx)
			return
		}

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		remaining := cfg.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(cfg.Window)*time.Second).Unix(), 10))

		if !allowed {
			c.AbortWithStatus(consts.StatusTooManyRequests)
			response.Error(ctx, c, errors.TooManyRequests)
			return
		}

		c.Next(ctx)
	}
}

// GeneralRateLimitMiddleware limits the whole API group using the configured
// requests-per-window budget.
func GeneralRateLimitMiddleware() app.HandlerFunc {
	cfg := DefaultRateLimitConfig
	if config.Cfg.RateLimitRPS > 0 {
		cfg.MaxRequests = config.Cfg.RateLimitRPS * cfg.Window
	}
	return RateLimitMiddleware(cfg)
}
