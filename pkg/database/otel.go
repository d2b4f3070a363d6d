package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	dbQueriesTotal  metric.Int64Counter
	dbQueryDuration metric.Float64Histogram
)

// InitDatabaseMetrics registers the query counters on the given meter. Must
// run after the global meter provider is set.
func InitDatabaseMetrics(meter metric.Meter) error {
	var err error

	dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return err
	}

	return nil
}

// TracingPlugin is a gorm.Plugin that wraps every statement in a client span
// and records query metrics.
type TracingPlugin struct {
	tracer trace.Tracer
	config PluginConfig
}

type PluginConfig struct {
	ServiceName   string
	DatabaseName  string
	EnableMetrics bool
	MaxSQLLength  int
}

func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		ServiceName:   "otelkit",
		EnableMetrics: true,
		// statements are truncated before being attached as span attributes
		MaxSQLLength: 500,
	}
}

func NewTracingPlugin(config PluginConfig) *TracingPlugin {
	if config.ServiceName == "" {
		config.ServiceName = "otelkit"
	}
	if config.MaxSQLLength <= 0 {
		config.MaxSQLLength = 500
	}

	return &TracingPlugin{
		tracer: otel.Tracer(config.ServiceName + ".gorm"),
		config: config,
	}
}

func (p *TracingPlugin) Name() string {
	return "otel_tracing"
}

// Initialize registers before/after callbacks for every statement class.
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	callbacks := db.Callback()

	callbacks.Query().Before("gorm:query").Register("otel:before_query", p.before)
	callbacks.Query().After("gorm:query").Register("otel:after_query", p.after)

	callbacks.Create().Before("gorm:create").Register("otel:before_create", p.before)
	callbacks.Create().After("gorm:create").Register("otel:after_create", p.after)

	callbacks.Update().Before("gorm:update").Register("otel:before_update", p.before)
	callbacks.Update().After("gorm:update").Register("otel:after_update", p.after)

	callbacks.Delete().Before("gorm:delete").Register("otel:before_delete", p.before)
	callbacks.Delete().After("gorm:delete").Register("otel:after_delete", p.after)

	callbacks.Row().Before("gorm:row").Register("otel:before_row", p.before)
	callbacks.Row().After("gorm:row").Register("otel:after_row", p.after)

	callbacks.Raw().Before("gorm:raw").Register("otel:before_raw", p.before)
	callbacks.Raw().After("gorm:raw").Register("otel:after_raw", p.after)

	return nil
}

func (p *TracingPlugin) before(db *gorm.DB) {
	ctx, span := p.tracer.Start(db.Statement.Context, operationName(db),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(p.attributes(db)...),
	)

	db.InstanceSet("otel:start_time", time.Now())
	db.InstanceSet("otel:span", span)
	db.Statement.Context = ctx
}

func (p *TracingPlugin) after(db *gorm.DB) {
	spanI, exists := db.InstanceGet("otel:span")
	if !exists {
		return
	}
	span, ok := spanI.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	startTimeI, exists := db.InstanceGet("otel:start_time")
	if !exists {
		return
	}
	startTime, ok := startTimeI.(time.Time)
	if !ok {
		return
	}
	duration := time.Since(startTime).Seconds()

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}

	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "Success")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		// a miss is an application-level outcome, not a client error
		span.SetStatus(codes.Ok, "Record not found")
	default:
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if p.config.EnableMetrics && dbQueriesTotal != nil {
		p.recordMetrics(db.Statement.Context, db, duration)
	}
}

func operationName(db *gorm.DB) string {
	sql := strings.ToUpper(strings.TrimSpace(db.Statement.SQL.String()))
	switch {
	case sql == "":
		return "db.unknown"
	case strings.HasPrefix(sql, "SELECT"):
		return "db.select"
	case strings.HasPrefix(sql, "INSERT"):
		return "db.insert"
	case strings.HasPrefix(sql, "UPDATE"):
		return "db.update"
	case strings.HasPrefix(sql, "DELETE"):
		return "db.delete"
	default:
		return "db.query"
	}
}

func (p *TracingPlugin) attributes(db *gorm.DB) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.DBSystemPostgreSQL,
		attribute.String("service.name", p.config.ServiceName),
	}

	if p.config.DatabaseName != "" {
		attrs = append(attrs, semconv.DBName(p.config.DatabaseName))
	}
	if table := db.Statement.Table; table != "" {
		attrs = append(attrs, attribute.String("db.table", table))
	}

	sql := db.Statement.SQL.String()
	if len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	attrs = append(attrs, semconv.DBStatement(SanitizeSQL(sql)))

	return attrs
}

var sensitiveSQLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password\s*=\s*)'[^']*'`),
	regexp.MustCompile(`(?i)(token\s*=\s*)'[^']*'`),
	regexp.MustCompile(`(?i)(secret\s*=\s*)'[^']*'`),
}

// SanitizeSQL masks values assigned to credential-looking columns before the
// statement is attached to a span.
func SanitizeSQL(sql string) string {
	for _, re := range sensitiveSQLPatterns {
		sql = re.ReplaceAllString(sql, "${1}'***'")
	}
	return sql
}

func (p *TracingPlugin) recordMetrics(ctx context.Context, db *gorm.DB, duration float64) {
	status := "success"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		status = "error"
	}

	labels := []attribute.KeyValue{
		attribute.String("db.operation", operationName(db)),
		attribute.String("db.status", status),
	}

	dbQueriesTotal.Add(ctx, 1, metric.WithAttributes(labels...))
	dbQueryDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}

// WithTracing attaches the plugin to an open gorm handle.
func WithTracing(db *gorm.DB, config PluginConfig) error {
	return db.Use(NewTracingPlugin(config))
}
