package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	redisCommandsTotal   metric.Int64Counter
	redisCommandDuration metric.Float64Histogram
	redisCacheHits       metric.Int64Counter
	redisCacheMisses     metric.Int64Counter
)

// InitRedisMetrics registers the command and cache counters on the meter.
func InitRedisMetrics(meter metric.Meter) error {
	var err error

	redisCommandsTotal, err = meter.Int64Counter(
		"redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	redisCommandDuration, err = meter.Float64Histogram(
		"redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	redisCacheHits, err = meter.Int64Counter(
		"redis.cache.hits",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	redisCacheMisses, err = meter.Int64Counter(
		"redis.cache.misses",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// TracingHook traces every command and pipeline through the client.
type TracingHook struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func NewTracingHook(serviceName string, db int) *TracingHook {
	return &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
			attribute.String("service.name", serviceName),
		},
	}
}

func (th *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (th *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		span.SetAttributes(semconv.DBOperation(cmd.Name()))
		if keys := ExtractKeys(cmd.Args()); len(keys) > 0 {
			span.SetAttributes(attribute.StringSlice("redis.keys", keys))
		}

		startTime := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(startTime).Seconds()

		status := "success"
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "Success")
		case err == redis.Nil:
			status = "not_found"
			span.SetStatus(codes.Ok, "Key not found")
		default:
			status = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		if redisCommandsTotal != nil {
			labels := []attribute.KeyValue{
				attribute.String("redis.command", cmd.Name()),
				attribute.String("redis.status", status),
			}
			redisCommandsTotal.Add(ctx, 1, metric.WithAttributes(labels...))
			redisCommandDuration.Record(ctx, duration, metric.WithAttributes(labels...))

			name := strings.ToUpper(cmd.Name())
			if name == "GET" || name == "MGET" {
				if err == redis.Nil {
					redisCacheMisses.Add(ctx, 1)
				} else if err == nil {
					redisCacheHits.Add(ctx, 1)
				}
			}
		}

		return err
	}
}

func (th *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		span.SetAttributes(attribute.Int("redis.pipeline.count", len(cmds)))

		err := next(ctx, cmds)

		successCount := 0
		for _, cmd := range cmds {
			if cmd.Err() == nil || cmd.Err() == redis.Nil {
				successCount++
			}
		}
		span.SetAttributes(
			attribute.Int("redis.pipeline.success_count", successCount),
			attribute.Int("redis.pipeline.error_count", len(cmds)-successCount),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		if redisCommandsTotal != nil {
			redisCommandsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("redis.command", "pipeline"),
			))
		}

		return err
	}
}

// ExtractKeys pulls up to five key arguments out of a command for span
// attributes, masking anything that looks credential-bearing.
func ExtractKeys(args []interface{}) []string {
	if len(args) < 2 {
		return nil
	}

	keys := make([]string, 0, len(args)-1)
	for i := 1; i < len(args) && len(keys) < 5; i++ {
		if key, ok := args[i].(string); ok {
			keys = append(keys, SanitizeKey(key))
		}
	}
	return keys
}

// SanitizeKey hides key segments that commonly embed secrets.
func SanitizeKey(key string) string {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "token") ||
		strings.Contains(lower, "password") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "session") {
		parts := strings.Split(key, ":")
		if len(parts) > 1 {
			return parts[0] + ":***"
		}
		return "***"
	}

	if len(key) > 100 {
		return key[:100] + "..."
	}
	return key
}
